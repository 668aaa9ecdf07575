package mysql

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
)

// MySQLConnector implements connector.Connector for MySQL databases.
type MySQLConnector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates a new MySQLConnector with default settings.
func New() connector.Connector {
	return &MySQLConnector{}
}

// Connect opens the pool and resolves the schema name used for column
// listing when none is configured.
func (c *MySQLConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("mysql", connector.SanitizeDSN("mysql", cfg.DSN))
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	connector.ConfigurePool(db, cfg)

	c.schemaName = cfg.SchemaName
	if c.schemaName == "" {
		var dbName string
		if err := db.Get(&dbName, "SELECT DATABASE()"); err == nil && dbName != "" {
			c.schemaName = dbName
		}
	}

	c.db = db
	return nil
}

// Disconnect closes the database connection pool.
func (c *MySQLConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *MySQLConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *MySQLConnector) DB() *sqlx.DB {
	return c.db
}

// ReadOnlyGuard marks the session read-only before the transaction starts.
// The driver also honors TxOptions.ReadOnly via START TRANSACTION READ ONLY.
func (c *MySQLConnector) ReadOnlyGuard() connector.ReadOnlyGuard {
	g := connector.ReadOnlyGuard{
		Session: []string{"SET SESSION TRANSACTION READ ONLY"},
		Reset:   []string{"SET SESSION TRANSACTION READ WRITE"},
	}
	g.TxOptions.ReadOnly = true
	return g
}

// TableColumns lists the columns of every base table in the schema.
func (c *MySQLConnector) TableColumns(ctx context.Context) (map[string][]string, error) {
	var rows []connector.ColumnRow
	err := c.db.SelectContext(ctx, &rows, `
		SELECT c.TABLE_NAME AS table_name, c.COLUMN_NAME AS column_name
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE c.TABLE_SCHEMA = ? AND t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`, c.schemaName)
	if err != nil {
		return nil, fmt.Errorf("list mysql columns: %w", err)
	}
	return connector.GroupColumns(rows), nil
}

// DriverName returns the driver identifier for MySQL.
func (c *MySQLConnector) DriverName() string { return "mysql" }

// QuoteIdentifier wraps a SQL identifier in backticks, escaping any
// embedded backticks.
func (c *MySQLConnector) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ParameterPlaceholder returns a MySQL-style positional parameter
// placeholder (?). MySQL ignores the index.
func (c *MySQLConnector) ParameterPlaceholder(_ int) string {
	return "?"
}
