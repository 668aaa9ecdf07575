package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/completion"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector/sqlite"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/executor"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/generator"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/service"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const testJWTSecret = "test-secret-for-jwt-integration-tests"

// scriptedProvider answers every completion with the same text.
type scriptedProvider struct {
	text string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req completion.Request) (string, error) {
	return p.text, nil
}

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server   *Server
	store    *config.Store
	authSvc  *service.AuthService
	registry *connector.Registry
	provider *scriptedProvider
}

// newTestEnv wires the full stack: an on-disk SQLite inventory with the
// inventory tables, an in-memory config store, and a scripted backend.
func newTestEnv(t *testing.T, authEnabled bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := connector.NewRegistry()
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	dsn := filepath.Join(t.TempDir(), "inventory.db")
	if err := registry.Connect(connector.InventoryService, connector.ConnectionConfig{Driver: "sqlite", DSN: dsn}); err != nil {
		t.Fatalf("connect inventory: %v", err)
	}
	t.Cleanup(registry.CloseAll)

	conn, _ := registry.Get(connector.InventoryService)
	stmts, err := schema.Inventory().CreateStatements("sqlite")
	if err != nil {
		t.Fatalf("CreateStatements: %v", err)
	}
	stmts = append(stmts, `INSERT INTO warehouses (id, name, short_code) VALUES (1, 'Central', 'CEN'), (2, 'North', 'NOR')`)
	for _, s := range stmts {
		if _, err := conn.DB().Exec(s); err != nil {
			t.Fatalf("setup %q: %v", s, err)
		}
	}

	provider := &scriptedProvider{text: "SELECT COUNT(*) AS warehouse_count FROM warehouses"}
	gen := generator.New(generator.Options{
		Provider: provider,
		Dialect:  schema.DialectName("sqlite"),
		Logger:   logger,
		Sleep:    func(context.Context, time.Duration) error { return nil },
	})
	p := pipeline.New(pipeline.Options{
		Generator: gen,
		Executor:  executor.New(conn, executor.Options{Logger: logger}),
		Models:    []string{"primary"},
		History:   store,
		Logger:    logger,
	})

	authSvc := service.NewAuthService(store, testJWTSecret)
	cfg := DefaultConfig()
	cfg.AuthEnabled = authEnabled

	srv := New(cfg, Deps{
		Asker:      p,
		Descriptor: schema.Inventory(),
		Driver:     "sqlite",
		Registry:   registry,
		Store:      store,
		Auth:       authSvc,
	}, logger)

	return &testEnv{
		server:   srv,
		store:    store,
		authSvc:  authSvc,
		registry: registry,
		provider: provider,
	}
}

// apiKey creates a key and returns its raw value.
func (e *testEnv) apiKey(t *testing.T) string {
	t.Helper()
	raw, _, err := e.authSvc.GenerateAPIKey(context.Background(), "test", nil)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	return raw
}

// do executes an HTTP request against the test server and returns the recorder.
// headers is an optional map of header key-value pairs.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Health checks
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	env.registry.CloseAll()
	rr = env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, rr, &body)
	if body.Status != "degraded" || body.Checks["config"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

// ---------------------------------------------------------------------------
// Question endpoints
// ---------------------------------------------------------------------------

func TestQueryEndToEnd(t *testing.T) {
	env := newTestEnv(t, true)
	key := env.apiKey(t)

	rr := env.do(t, "POST", "/api/v1/query",
		jsonBody(t, map[string]string{"question": "How many warehouses do we have?"}),
		map[string]string{"X-API-Key": key})
	assertStatus(t, rr, http.StatusOK)

	var resp model.QueryResponse
	decodeJSON(t, rr, &resp)
	if resp.Answer != "The count is 2." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.SQL != "SELECT COUNT(*) AS warehouse_count FROM warehouses" || resp.Model != "primary" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Meta.GenerateMs == nil || resp.Meta.ExecuteMs == nil {
		t.Errorf("meta lacks timings: %+v", resp.Meta)
	}

	records, err := env.store.ListQueries(context.Background(), config.HistoryFilter{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != model.QueryStatusOK || records[0].RequestID != resp.Meta.RequestID {
		t.Errorf("history = %+v", records)
	}
}

func TestQueryRequiresCredential(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(t, "POST", "/api/v1/query", jsonBody(t, map[string]string{"question": "how many warehouses"}), nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	var errResp model.ErrorResponse
	decodeJSON(t, rr, &errResp)
	if errResp.Error.Code != 401 || errResp.Error.Context["kind"] != "unauthorized" {
		t.Errorf("envelope = %+v", errResp.Error)
	}
}

func TestQueryOpenWhenAuthDisabled(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, "POST", "/api/v1/sql", jsonBody(t, map[string]string{"question": "how many warehouses"}), nil)
	assertStatus(t, rr, http.StatusOK)

	// Raw SQL and history still need a key.
	rr = env.do(t, "POST", "/api/v1/execute", jsonBody(t, map[string]string{"sql": "SELECT 1"}), nil)
	assertStatus(t, rr, http.StatusUnauthorized)
	rr = env.do(t, "GET", "/api/v1/history", nil, nil)
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestReadOnlyRefusal(t *testing.T) {
	env := newTestEnv(t, false)
	env.provider.text = "READ_ONLY_ERROR"

	rr := env.do(t, "POST", "/api/v1/query", jsonBody(t, map[string]string{"question": "delete the north warehouse"}), nil)
	assertStatus(t, rr, http.StatusBadRequest)

	var errResp model.ErrorResponse
	decodeJSON(t, rr, &errResp)
	if errResp.Error.Context["kind"] != "read_only_refusal" {
		t.Errorf("envelope = %+v", errResp.Error)
	}
}

func TestExecuteRejectsWrites(t *testing.T) {
	env := newTestEnv(t, true)
	key := env.apiKey(t)
	headers := map[string]string{"X-API-Key": key}

	rr := env.do(t, "POST", "/api/v1/execute",
		jsonBody(t, map[string]string{"sql": "SELECT name FROM warehouses; DROP TABLE warehouses"}), headers)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, "POST", "/api/v1/execute",
		jsonBody(t, map[string]string{"sql": "SELECT name FROM warehouses ORDER BY id"}), headers)
	assertStatus(t, rr, http.StatusOK)

	var resp model.QueryResponse
	decodeJSON(t, rr, &resp)
	if resp.RowCount != 2 || resp.Rows[0]["name"] != "Central" {
		t.Errorf("rows = %v", resp.Rows)
	}
}

// ---------------------------------------------------------------------------
// Token exchange
// ---------------------------------------------------------------------------

func TestTokenExchange(t *testing.T) {
	env := newTestEnv(t, true)
	key := env.apiKey(t)

	rr := env.do(t, "POST", "/api/v1/auth/token", nil, map[string]string{"X-API-Key": key})
	assertStatus(t, rr, http.StatusOK)
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, rr, &tok)

	bearer := map[string]string{"Authorization": "Bearer " + tok.AccessToken}
	rr = env.do(t, "GET", "/api/v1/history", nil, bearer)
	assertStatus(t, rr, http.StatusOK)

	// A token cannot mint another token.
	rr = env.do(t, "POST", "/api/v1/auth/token", nil, bearer)
	assertStatus(t, rr, http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Documents and cross-cutting middleware
// ---------------------------------------------------------------------------

func TestSchemaAndOpenAPI(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, "GET", "/api/v1/schema", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "stock_quants") {
		t.Error("schema response lacks inventory tables")
	}

	rr = env.do(t, "GET", "/openapi.json", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	var doc map[string]interface{}
	decodeJSON(t, rr, &doc)
	if doc["openapi"] == nil || doc["paths"] == nil {
		t.Errorf("document = %v", doc)
	}
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(t, "OPTIONS", "/api/v1/query", nil, map[string]string{
		"Origin":                         "http://localhost:5173",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "Content-Type,X-API-Key",
	})
	if rr.Code < 200 || rr.Code >= 300 {
		t.Errorf("CORS preflight status = %d, want 2xx", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, false)

	big := strings.Repeat("a", int(DefaultConfig().MaxBodySize)+1)
	rr := env.do(t, "POST", "/api/v1/query", jsonBody(t, map[string]string{"question": big}), nil)
	assertStatus(t, rr, http.StatusBadRequest)

	var errResp model.ErrorResponse
	decodeJSON(t, rr, &errResp)
	if errResp.Error.Context["kind"] != "invalid_question" {
		t.Errorf("envelope = %+v", errResp.Error)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(t, "PATCH", "/healthz", nil, nil)
	if rr.Code != http.StatusMethodNotAllowed && rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 405 or 404", rr.Code)
	}
}
