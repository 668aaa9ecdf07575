package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/format"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/generator"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/openapi"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/server/middleware"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/service"
)

// fakeAsker returns a fixed result or error and remembers the last request.
type fakeAsker struct {
	res  *pipeline.Result
	err  error
	last pipeline.Request
}

func (f *fakeAsker) Ask(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.last = req
	return f.res, f.err
}

func (f *fakeAsker) GenerateSQL(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.last = req
	return f.res, f.err
}

func (f *fakeAsker) ExecuteSQL(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.last = req
	return f.res, f.err
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		Question: "how many products",
		SQL:      "SELECT COUNT(*) AS product_count FROM products",
		Model:    "gemini-2.0-flash",
		Columns:  []string{"product_count"},
		Rows:     []map[string]any{{"product_count": int64(2)}},
		Answer:   format.Answer{Text: "The count is 2.", RowCount: 1},
		Timings:  pipeline.Timings{Generate: 120 * time.Millisecond, Execute: 4 * time.Millisecond},
	}
}

func doJSON(t *testing.T, h http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	middleware.RequestID(h).ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAsk(t *testing.T) {
	asker := &fakeAsker{res: sampleResult()}
	h := NewQueryHandler(asker)

	rr := doJSON(t, h.Ask, "POST", `{"question":"how many products"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[model.QueryResponse](t, rr)
	if resp.Answer != "The count is 2." || resp.RowCount != 1 || resp.SQL == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Meta.GenerateMs == nil || *resp.Meta.GenerateMs != 120 {
		t.Errorf("generate_ms = %v", resp.Meta.GenerateMs)
	}
	if resp.Meta.ExecuteMs == nil || resp.Meta.Timestamp == "" || resp.Meta.RequestID == "" {
		t.Errorf("meta = %+v", resp.Meta)
	}
	if asker.last.Source != pipeline.SourceHTTP || asker.last.RequestID != resp.Meta.RequestID {
		t.Errorf("request = %+v", asker.last)
	}
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantKind string
	}{
		{"bad json", `{"question":`, nil, http.StatusBadRequest, "invalid_question"},
		{"read only", `{"question":"drop stock"}`, pipeline.Wrap(pipeline.ReadOnlyRefusal, "read only", nil), http.StatusBadRequest, "read_only_refusal"},
		{"validation", `{"question":"x y z"}`, pipeline.Wrap(pipeline.ValidationFailed, "forbidden keyword DROP", nil), http.StatusBadRequest, "validation_failed"},
		{"generation", `{"question":"x y z"}`, pipeline.Wrap(pipeline.GenerationFailed, "no model", nil), http.StatusInternalServerError, "generation_failed"},
		{"untyped", `{"question":"x y z"}`, errors.New("boom"), http.StatusInternalServerError, "query_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewQueryHandler(&fakeAsker{err: tt.err})
			rr := doJSON(t, h.Ask, "POST", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			resp := decode[model.ErrorResponse](t, rr)
			if resp.Error.Code != tt.wantCode || resp.Error.Context["kind"] != tt.wantKind {
				t.Errorf("envelope = %+v", resp.Error)
			}
			if hint, _ := resp.Error.Context["hint"].(string); hint == "" {
				t.Error("missing hint")
			}
			if resp.Meta == nil || resp.Meta.Timestamp == "" {
				t.Error("missing meta on error")
			}
		})
	}
}

// cannedGenerator answers every question with the same completion.
type cannedGenerator string

func (g cannedGenerator) Generate(ctx context.Context, req generator.Request) (generator.RawCompletion, error) {
	return generator.RawCompletion{Text: string(g), Model: "m1", Kind: generator.KindSQL, Attempts: 1}, nil
}

func TestAskErrorReason(t *testing.T) {
	tests := []struct {
		name       string
		completion string
		wantReason string
		wantRule   string
	}{
		{"stacked drop", "SELECT * FROM products; DROP TABLE products", "forbidden_pattern", "stacked_statement"},
		{"keyword", "SELECT * FROM products FOR UPDATE", "forbidden_keyword", "UPDATE"},
		{"cte delete", "WITH x AS (SELECT 1) DELETE FROM products", "forbidden_keyword", "DELETE"},
		{"prose", "I am not sure what you mean.", "no_select_found", ""},
		{"fences only", "```sql\n```", "empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pipeline.New(pipeline.Options{
				Generator: cannedGenerator(tt.completion),
				Models:    []string{"m1"},
				Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			h := NewQueryHandler(p)

			rr := doJSON(t, h.GenerateSQL, "POST", `{"question":"drop the products table"}`)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
			}
			resp := decode[model.ErrorResponse](t, rr)
			if got := resp.Error.Context["reason"]; got != tt.wantReason {
				t.Errorf("reason = %v, want %s", got, tt.wantReason)
			}
			rule, _ := resp.Error.Context["rule"].(string)
			if rule != tt.wantRule {
				t.Errorf("rule = %q, want %q", rule, tt.wantRule)
			}
		})
	}
}

func TestGenerateSQLHandler(t *testing.T) {
	h := NewQueryHandler(&fakeAsker{res: sampleResult()})
	rr := doJSON(t, h.GenerateSQL, "POST", `{"question":"how many products"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[map[string]any](t, rr)
	if resp["sql"] != "SELECT COUNT(*) AS product_count FROM products" || resp["model"] != "gemini-2.0-flash" {
		t.Errorf("response = %v", resp)
	}
	if _, ok := resp["rows"]; ok {
		t.Error("sql endpoint must not return rows")
	}
}

func TestExecuteHandler(t *testing.T) {
	asker := &fakeAsker{res: sampleResult()}
	h := NewQueryHandler(asker)
	rr := doJSON(t, h.Execute, "POST", `{"sql":"SELECT COUNT(*) AS product_count FROM products"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if asker.last.SQL != "SELECT COUNT(*) AS product_count FROM products" {
		t.Errorf("sql not forwarded: %+v", asker.last)
	}
}

func TestSchemaHandler(t *testing.T) {
	h := NewSchemaHandler(schema.Inventory(), schema.DialectName("mysql"))
	rr := doJSON(t, h.Get, "GET", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[schemaResponse](t, rr)
	if resp.Version != schema.InventoryVersion || len(resp.Tables) == 0 || len(resp.Rules) == 0 {
		t.Errorf("response = %+v", resp)
	}
	if !strings.Contains(resp.Prompt, "MySQL") {
		t.Error("prompt should name the dialect")
	}
}

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryHandler(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, status := range []string{model.QueryStatusOK, model.QueryStatusError, model.QueryStatusOK} {
		if err := store.RecordQuery(ctx, &model.QueryRecord{Source: "http", Question: "q", Status: status}); err != nil {
			t.Fatal(err)
		}
	}
	h := NewHistoryHandler(store)

	req := httptest.NewRequest("GET", "/api/v1/history?limit=2", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)
	resp := decode[historyResponse](t, rr)
	if len(resp.Resource) != 2 {
		t.Errorf("got %d entries, want 2", len(resp.Resource))
	}

	req = httptest.NewRequest("GET", "/api/v1/history?status=error", nil)
	rr = httptest.NewRecorder()
	h.List(rr, req)
	resp = decode[historyResponse](t, rr)
	if len(resp.Resource) != 1 || resp.Resource[0].Status != model.QueryStatusError {
		t.Errorf("status filter: %+v", resp.Resource)
	}

	req = httptest.NewRequest("GET", "/api/v1/history?status=bogus", nil)
	rr = httptest.NewRecorder()
	h.List(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bogus status: got %d", rr.Code)
	}
}

func TestTokenHandler(t *testing.T) {
	store := newTestStore(t)
	auth := service.NewAuthService(store, "handler-test-secret")
	h := NewTokenHandler(auth, 15*time.Minute)

	rr := httptest.NewRecorder()
	h.Issue(rr, httptest.NewRequest("POST", "/api/v1/auth/token", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("without principal: got %d", rr.Code)
	}

	req := httptest.NewRequest("POST", "/api/v1/auth/token", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.AuthPrincipalKey,
		&middleware.Principal{Method: middleware.MethodAPIKey, KeyID: 7, KeyPrefix: "sm_12345678"}))
	rr = httptest.NewRecorder()
	h.Issue(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[tokenResponse](t, rr)
	if resp.ExpiresIn != 900 || resp.TokenType != "bearer" {
		t.Errorf("response = %+v", resp)
	}
	p, err := auth.ValidateToken(context.Background(), resp.AccessToken)
	if err != nil || p.KeyID != 7 {
		t.Errorf("issued token does not validate: %v %+v", err, p)
	}
}

func TestOpenAPIHandler(t *testing.T) {
	h := NewOpenAPIHandler(openapi.Options{Version: "test"}, schema.Inventory())
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeSpec(rr, httptest.NewRequest("GET", "/openapi.json", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		doc := decode[map[string]any](t, rr)
		paths, _ := doc["paths"].(map[string]any)
		if _, ok := paths["/api/v1/query"]; !ok {
			t.Errorf("paths = %v", paths)
		}
	}
}
