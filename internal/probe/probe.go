// Package probe checks that the warehouse MCP server starts and answers a
// trivial query.
package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var clientImpl = &mcp.Implementation{Name: "insight-pipeline-probe", Version: "1.0.0"}

// Options describe the server to spawn and the query to send
type Options struct {
	Command   string
	Args      []string
	Env       map[string]string // added to the current environment
	QueryTool string
	Query     string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Tool is one tool the server advertises
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Result is what the probe found
type Result struct {
	Server      string `json:"server"`
	Tools       []Tool `json:"tools"`
	QueryCalled bool   `json:"query_called"`
	Output      string `json:"output,omitempty"`
}

// Run spawns the configured server over stdio and probes it
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Command == "" {
		return Result{}, fmt.Errorf("probe command is required")
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Env = mergeEnv(os.Environ(), opts.Env)
	cmd.Stderr = os.Stderr

	return Probe(ctx, &mcp.CommandTransport{Command: cmd}, opts)
}

// Probe connects over transport, lists the tools, and calls the query tool
// when the server has it
func Probe(ctx context.Context, transport mcp.Transport, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := mcp.NewClient(clientImpl, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return Result{}, fmt.Errorf("mcp connect: %w", err)
	}
	defer session.Close()

	var res Result
	if init := session.InitializeResult(); init != nil && init.ServerInfo != nil {
		res.Server = strings.TrimSpace(init.ServerInfo.Name + " " + init.ServerInfo.Version)
	}
	logger.Info("connected to MCP server", zap.String("server", res.Server))

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("list tools: %w", err)
	}
	hasQuery := false
	for _, t := range tools.Tools {
		res.Tools = append(res.Tools, Tool{Name: t.Name, Description: t.Description})
		if t.Name == opts.QueryTool {
			hasQuery = true
		}
	}
	logger.Info("listed tools", zap.Int("count", len(res.Tools)))

	if opts.QueryTool == "" || !hasQuery {
		return res, nil
	}

	out, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      opts.QueryTool,
		Arguments: map[string]any{"query": opts.Query},
	})
	if err != nil {
		return res, fmt.Errorf("call %s: %w", opts.QueryTool, err)
	}
	res.QueryCalled = true
	res.Output = textOf(out)
	if out.IsError {
		return res, fmt.Errorf("%s failed: %s", opts.QueryTool, res.Output)
	}
	return res, nil
}

func textOf(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(base)+len(keys))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, override := extra[name]; !override {
			out = append(out, kv)
		}
	}
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}
