package connector_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector/mysql"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector/oracle"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector/postgres"
)

// Integration tests run against live servers named by environment variables:
//
//	STOCKMASTER_INTEGRATION=1
//	STOCKMASTER_TEST_MYSQL_DSN, STOCKMASTER_TEST_POSTGRES_DSN, STOCKMASTER_TEST_ORACLE_DSN
//
// Each database must already contain the inventory tables (stockmaster demo seed).
func TestMain(m *testing.M) {
	if os.Getenv("STOCKMASTER_INTEGRATION") == "" {
		fmt.Println("skipping integration tests: set STOCKMASTER_INTEGRATION=1 to run")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func dsnOrSkip(t *testing.T, env string) string {
	t.Helper()
	dsn := os.Getenv(env)
	if dsn == "" {
		t.Skipf("%s not set", env)
	}
	return dsn
}

func runConnectorSuite(t *testing.T, conn connector.Connector, cfg connector.ConnectionConfig) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.Connect(cfg); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { conn.Disconnect() })

	t.Run("Ping", func(t *testing.T) {
		if err := conn.Ping(ctx); err != nil {
			t.Fatalf("Ping failed: %v", err)
		}
	})

	t.Run("TableColumns", func(t *testing.T) {
		cols, err := conn.TableColumns(ctx)
		if err != nil {
			t.Fatalf("TableColumns failed: %v", err)
		}
		if len(cols["products"]) == 0 {
			t.Fatalf("expected products table, got %v", cols)
		}
	})

	t.Run("ReadOnlyGuardBlocksWrites", func(t *testing.T) {
		guard := conn.ReadOnlyGuard()
		c, err := conn.DB().Connx(ctx)
		if err != nil {
			t.Fatalf("Connx: %v", err)
		}
		defer c.Close()

		for _, stmt := range guard.Session {
			if _, err := c.ExecContext(ctx, stmt); err != nil {
				t.Fatalf("%s: %v", stmt, err)
			}
		}
		defer func() {
			for _, stmt := range guard.Reset {
				c.ExecContext(ctx, stmt)
			}
		}()

		tx, err := c.BeginTxx(ctx, &guard.TxOptions)
		if err != nil {
			t.Fatalf("BeginTxx: %v", err)
		}
		defer tx.Rollback()
		for _, stmt := range guard.InTx {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				t.Fatalf("%s: %v", stmt, err)
			}
		}

		if _, err := tx.ExecContext(ctx, "UPDATE products SET name = name WHERE id = -1"); err == nil {
			t.Fatal("expected the read-only transaction to reject UPDATE")
		}
	})
}

func TestMySQLIntegration(t *testing.T) {
	runConnectorSuite(t, mysql.New(), connector.ConnectionConfig{
		Driver: "mysql",
		DSN:    dsnOrSkip(t, "STOCKMASTER_TEST_MYSQL_DSN"),
	})
}

func TestPostgresIntegration(t *testing.T) {
	runConnectorSuite(t, postgres.New(), connector.ConnectionConfig{
		Driver: "postgres",
		DSN:    dsnOrSkip(t, "STOCKMASTER_TEST_POSTGRES_DSN"),
	})
}

func TestOracleIntegration(t *testing.T) {
	runConnectorSuite(t, oracle.New(), connector.ConnectionConfig{
		Driver: "oracle",
		DSN:    dsnOrSkip(t, "STOCKMASTER_TEST_ORACLE_DSN"),
	})
}
