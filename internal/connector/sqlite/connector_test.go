package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
)

func newTestConnector(t *testing.T) connector.Connector {
	t.Helper()
	c := New()
	dsn := filepath.Join(t.TempDir(), "inventory.db")
	if err := c.Connect(connector.ConnectionConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 2}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Disconnect() })

	for _, stmt := range []string{
		`CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, sku TEXT)`,
		`CREATE TABLE stock (id INTEGER PRIMARY KEY, product_id INTEGER, quantity INTEGER)`,
	} {
		if _, err := c.DB().Exec(stmt); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	return c
}

func TestTableColumns(t *testing.T) {
	c := newTestConnector(t)

	got, err := c.TableColumns(context.Background())
	if err != nil {
		t.Fatalf("TableColumns: %v", err)
	}
	want := map[string][]string{
		"products": {"id", "name", "sku"},
		"stock":    {"id", "product_id", "quantity"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TableColumns = %v, want %v", got, want)
	}
}

func TestReadOnlyGuard(t *testing.T) {
	c := newTestConnector(t)
	ctx := context.Background()
	guard := c.ReadOnlyGuard()

	if guard.TxOptions.ReadOnly {
		t.Error("sqlite guard must not request a read-only transaction")
	}

	conn, err := c.DB().Connx(ctx)
	if err != nil {
		t.Fatalf("Connx: %v", err)
	}
	defer conn.Close()

	for _, stmt := range guard.Session {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO products (name, sku) VALUES ('Widget', 'W-1')`); err == nil {
		t.Fatal("expected insert to fail while query_only is on")
	}

	for _, stmt := range guard.Reset {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO products (name, sku) VALUES ('Widget', 'W-1')`); err != nil {
		t.Fatalf("insert after reset: %v", err)
	}
}

func TestMetadata(t *testing.T) {
	c := New()
	if c.DriverName() != "sqlite" {
		t.Errorf("DriverName = %s", c.DriverName())
	}
	if got := c.QuoteIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdentifier = %s", got)
	}
	if c.ParameterPlaceholder(3) != "?" {
		t.Error("placeholder should be ?")
	}
}
