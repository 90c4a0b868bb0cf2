package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"go-insight-pipeline/internal/model"
	"strings"
)

// Extraction modes
const (
	ExtractLine  = "line"
	ExtractBlock = "block"
)

// Extractor finds the query payload inside the tool's standard output
type Extractor interface {
	Extract(stdout string) (model.ResultSet, bool)
}

// NewExtractor returns the extractor for a mode name ("" means line)
func NewExtractor(mode string) (Extractor, error) {
	switch strings.ToLower(mode) {
	case "", ExtractLine:
		return LineExtractor{}, nil
	case ExtractBlock:
		return BlockExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extract mode: %s", mode)
	}
}

// ExtractPayload runs the default line-based extraction
func ExtractPayload(stdout string) (model.ResultSet, bool) {
	return LineExtractor{}.Extract(stdout)
}

// ------------------- Line Extraction -------------------

// LineExtractor scans output lines from the last to the first and returns
// the first one that holds a complete JSON array of objects.
// Earlier log lines that happen to start with '[' or '{' are skipped when
// they do not decode that way.
type LineExtractor struct{}

func (LineExtractor) Extract(stdout string) (model.ResultSet, bool) {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "{") {
			continue
		}
		if rs, ok := decodeRows([]byte(line)); ok {
			return rs, true
		}
	}
	return model.ResultSet{}, false
}

// ------------------- Block Extraction -------------------

// BlockExtractor falls back to pretty-printed payloads: when no single line
// matches, it decodes the array that opens on the last line holding only '['.
type BlockExtractor struct{}

func (BlockExtractor) Extract(stdout string) (model.ResultSet, bool) {
	if rs, ok := (LineExtractor{}).Extract(stdout); ok {
		return rs, true
	}

	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "[" {
			continue
		}
		block := strings.Join(lines[i:], "\n")
		dec := json.NewDecoder(strings.NewReader(block))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		if rs, ok := decodeRows(raw); ok {
			return rs, true
		}
	}
	return model.ResultSet{}, false
}

// ------------------- Decoding -------------------

var errNotObject = errors.New("array element is not an object")

// decodeRows decodes a JSON array of objects, keeping column order as first seen
func decodeRows(raw []byte) (model.ResultSet, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return model.ResultSet{}, false
	}

	rs := model.ResultSet{Rows: make([]model.Record, 0, len(items))}
	seen := make(map[string]bool)
	for _, item := range items {
		rec, keys, err := decodeRecord(item)
		if err != nil {
			return model.ResultSet{}, false
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				rs.Columns = append(rs.Columns, k)
			}
		}
		rs.Rows = append(rs.Rows, rec)
	}
	return rs, true
}

func decodeRecord(raw json.RawMessage) (model.Record, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errNotObject
	}

	rec := make(model.Record)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = value
	}
	return rec, keys, nil
}
