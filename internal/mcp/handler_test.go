package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/format"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

type fakePipeline struct {
	res  *pipeline.Result
	err  error
	last pipeline.Request
}

func (f *fakePipeline) Ask(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.last = req
	return f.res, f.err
}

func (f *fakePipeline) GenerateSQL(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.last = req
	return f.res, f.err
}

func newTestServer(p Pipeline) *MCPServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMCPServer(p, schema.Inventory(), schema.DialectName("sqlite"), "test", logger)
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestAskTool(t *testing.T) {
	p := &fakePipeline{res: &pipeline.Result{
		SQL:     "SELECT COUNT(*) AS n FROM warehouses",
		Model:   "primary",
		Columns: []string{"n"},
		Rows:    []map[string]any{{"n": int64(3)}},
		Answer:  format.Answer{Text: "The count is 3.", RowCount: 1},
	}}
	s := newTestServer(p)

	res, err := s.handleAsk(context.Background(), callRequest(map[string]interface{}{"question": "how many warehouses"}))
	if err != nil {
		t.Fatalf("handleAsk: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out["answer"] != "The count is 3." || out["row_count"] != float64(1) {
		t.Errorf("result = %v", out)
	}
	if p.last.Source != pipeline.SourceMCP || p.last.Question != "how many warehouses" {
		t.Errorf("request = %+v", p.last)
	}
}

func TestAskToolMissingQuestion(t *testing.T) {
	s := newTestServer(&fakePipeline{})
	res, err := s.handleAsk(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handleAsk: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "question") {
		t.Errorf("expected missing parameter error, got %+v", res)
	}
}

func TestToolReportsPipelineKind(t *testing.T) {
	p := &fakePipeline{err: pipeline.Wrap(pipeline.ReadOnlyRefusal, "changes are not allowed", nil)}
	s := newTestServer(p)

	for name, call := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"ask":          s.handleAsk,
		"generate_sql": s.handleGenerateSQL,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := call(context.Background(), callRequest(map[string]interface{}{"question": "delete all stock"}))
			if err != nil {
				t.Fatal(err)
			}
			text := resultText(t, res)
			if !res.IsError || !strings.HasPrefix(text, "read_only_refusal: changes are not allowed") {
				t.Errorf("got %q", text)
			}
			if !strings.Contains(text, pipeline.ReadOnlyRefusal.Hint()) {
				t.Error("hint missing")
			}
		})
	}
}

func TestToolReportsStageReason(t *testing.T) {
	p := &fakePipeline{err: &pipeline.Error{
		Kind:    pipeline.ValidationFailed,
		Reason:  "forbidden_pattern",
		Rule:    "stacked_statement",
		Message: "forbidden pattern (stacked_statement)",
	}}
	s := newTestServer(p)

	res, err := s.handleGenerateSQL(context.Background(), callRequest(map[string]interface{}{"question": "list products"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !res.IsError || !strings.Contains(text, "Reason: forbidden_pattern (stacked_statement)") {
		t.Errorf("got %q", text)
	}
}

func TestGenerateSQLTool(t *testing.T) {
	s := newTestServer(&fakePipeline{res: &pipeline.Result{SQL: "SELECT name FROM products", Model: "fallback"}})
	res, err := s.handleGenerateSQL(context.Background(), callRequest(map[string]interface{}{"question": "list products"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if res.IsError || !strings.Contains(text, "SELECT name FROM products") || !strings.Contains(text, "fallback") {
		t.Errorf("got %q", text)
	}
}

func TestDescribeSchema(t *testing.T) {
	s := newTestServer(&fakePipeline{})

	res, err := s.handleDescribeSchema(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	for _, table := range []string{"stock_quants", "stock_valuation_layer", "SQLite 3"} {
		if !strings.Contains(text, table) {
			t.Errorf("schema text missing %q", table)
		}
	}

	contents, err := s.handleSchemaResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != SchemaURI || tc.Text != text {
		t.Errorf("resource does not match tool output")
	}
}

func TestReadOnlyAnnotation(t *testing.T) {
	ann := readOnlyAnnotation()
	if ann.ReadOnlyHint == nil || !*ann.ReadOnlyHint {
		t.Errorf("ReadOnlyHint = %v, want true", ann.ReadOnlyHint)
	}
}
