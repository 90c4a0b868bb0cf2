package probe

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testServerImpl = &mcp.Implementation{Name: "warehouse-test", Version: "0.1.0"}

func queryTool(fail bool) (*mcp.Tool, mcp.ToolHandler) {
	tool := &mcp.Tool{
		Name:        "query_run_query",
		Description: "Run a SQL query",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}
	handler := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
		if fail {
			var res mcp.CallToolResult
			res.SetError(errors.New("warehouse suspended"))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: `[{"VERSION":"9.1.0","QUERY":"` + args.Query + `"}]`}},
		}, nil
	}
	return tool, handler
}

// serve runs srv on an in-memory transport and returns the client side
func serve(t *testing.T, srv *mcp.Server) mcp.Transport {
	t.Helper()
	serverT, clientT := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx, serverT)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return clientT
}

func TestProbe_CallsQueryTool(t *testing.T) {
	srv := mcp.NewServer(testServerImpl, nil)
	srv.AddTool(queryTool(false))

	res, err := Probe(context.Background(), serve(t, srv), Options{
		QueryTool: "query_run_query",
		Query:     "SELECT CURRENT_VERSION()",
	})
	require.NoError(t, err)
	assert.Equal(t, "warehouse-test 0.1.0", res.Server)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, "query_run_query", res.Tools[0].Name)
	assert.True(t, res.QueryCalled)
	assert.Contains(t, res.Output, "9.1.0")
	assert.Contains(t, res.Output, "SELECT CURRENT_VERSION()")
}

func TestProbe_WithoutQueryTool(t *testing.T) {
	srv := mcp.NewServer(testServerImpl, nil)

	res, err := Probe(context.Background(), serve(t, srv), Options{QueryTool: "query_run_query"})
	require.NoError(t, err)
	assert.Empty(t, res.Tools)
	assert.False(t, res.QueryCalled)
}

func TestProbe_ToolError(t *testing.T) {
	srv := mcp.NewServer(testServerImpl, nil)
	srv.AddTool(queryTool(true))

	res, err := Probe(context.Background(), serve(t, srv), Options{QueryTool: "query_run_query", Query: "SELECT 1"})
	require.Error(t, err)
	assert.True(t, res.QueryCalled)
	assert.Contains(t, err.Error(), "warehouse suspended")
}

func TestRun_RequiresCommand(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRun_MissingExecutable(t *testing.T) {
	_, err := Run(context.Background(), Options{Command: "definitely-not-an-mcp-server-binary"})
	assert.Error(t, err)
}

func TestMergeEnv(t *testing.T) {
	out := mergeEnv([]string{"PATH=/bin", "SNOWFLAKE_USER=old"}, map[string]string{
		"SNOWFLAKE_USER":    "analyst",
		"SNOWFLAKE_ACCOUNT": "acme",
	})
	assert.Equal(t, []string{"PATH=/bin", "SNOWFLAKE_ACCOUNT=acme", "SNOWFLAKE_USER=analyst"}, out)

	base := []string{"A=1"}
	assert.Equal(t, base, mergeEnv(base, nil))
}
