package openapi

import (
	"encoding/json"
	"testing"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

func TestMapDBType(t *testing.T) {
	tests := []struct {
		in   string
		want TypeMapping
	}{
		{"INT", TypeMapping{"integer", "int32"}},
		{"int unsigned", TypeMapping{"integer", "int32"}},
		{"DECIMAL(15,2)", TypeMapping{"number", "double"}},
		{"VARCHAR(255)", TypeMapping{"string", ""}},
		{" datetime ", TypeMapping{"string", "date-time"}},
		{"DATE", TypeMapping{"string", "date"}},
		{"ENUM", TypeMapping{"string", ""}},
		{"geometry", TypeMapping{"string", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MapDBType(tt.in); got != tt.want {
				t.Errorf("MapDBType(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateDocument(t *testing.T) {
	doc := Generate(Options{BaseURL: "http://localhost:3000", Version: "1.2.3"}, schema.Inventory())

	if doc.OpenAPI != "3.1.0" || doc.Info.Version != "1.2.3" {
		t.Errorf("header = %s %s", doc.OpenAPI, doc.Info.Version)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", raw["openapi"])
	}
}

func TestGeneratePaths(t *testing.T) {
	doc := Generate(Options{}, schema.Inventory())

	for _, path := range []string{
		"/healthz", "/readyz", "/api/v1/query", "/api/v1/sql", "/api/v1/execute",
		"/api/v1/schema", "/api/v1/history", "/api/v1/auth/token",
	} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("missing path %s", path)
		}
	}
	if doc.Paths.Find("/api/v1/query").Post == nil {
		t.Error("query must be a POST")
	}
}

func TestGenerateSecurity(t *testing.T) {
	open := Generate(Options{AuthEnabled: false}, schema.Inventory())
	if open.Paths.Find("/api/v1/query").Post.Security != nil {
		t.Error("query should be open when auth is disabled")
	}
	if open.Paths.Find("/api/v1/execute").Post.Security == nil {
		t.Error("execute always requires credentials")
	}

	closed := Generate(Options{AuthEnabled: true}, schema.Inventory())
	sec := closed.Paths.Find("/api/v1/query").Post.Security
	if sec == nil || len(*sec) != 2 {
		t.Errorf("query security = %v, want key or token", sec)
	}
	token := closed.Paths.Find("/api/v1/auth/token").Post.Security
	if token == nil || len(*token) != 1 {
		t.Errorf("token exchange should accept only an API key, got %v", token)
	}
}

func TestGenerateTableSchemas(t *testing.T) {
	doc := Generate(Options{}, schema.Inventory())

	products, ok := doc.Components.Schemas["Inventory_Products"]
	if !ok {
		t.Fatal("missing Inventory_Products schema")
	}
	price := products.Value.Properties["standard_price"]
	if price == nil || !price.Value.Type.Is("number") {
		t.Errorf("standard_price = %+v", price)
	}
	tracking := products.Value.Properties["tracking"]
	if tracking == nil || len(tracking.Value.Enum) != 3 {
		t.Errorf("tracking enum = %+v", tracking)
	}

	moves := doc.Components.Schemas["Inventory_Stock_moves"]
	if moves == nil || moves.Value.Properties["product_id"].Value.Description == "" {
		t.Error("foreign keys should be described")
	}
}

func TestSanitizeSchemaName(t *testing.T) {
	tests := []struct {
		prefix, table, want string
	}{
		{"Inventory", "products", "Inventory_Products"},
		{"inventory", "stock-lots", "Inventory_Stock_lots"},
		{"Inventory", "my table", "Inventory_My_table"},
	}
	for _, tt := range tests {
		if got := sanitizeSchemaName(tt.prefix, tt.table); got != tt.want {
			t.Errorf("sanitizeSchemaName(%q, %q) = %q, want %q", tt.prefix, tt.table, got, tt.want)
		}
	}
}
