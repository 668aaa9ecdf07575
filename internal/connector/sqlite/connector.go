package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
)

// SQLiteConnector implements connector.Connector for SQLite databases.
type SQLiteConnector struct {
	db *sqlx.DB
}

// New creates a new SQLiteConnector.
func New() connector.Connector {
	return &SQLiteConnector{}
}

// Connect opens the SQLite database file specified in the DSN. The DSN is a
// file path (e.g. "/path/to/inventory.db") or ":memory:"; query parameters
// like ?_journal_mode=WAL are supported.
func (c *SQLiteConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("sqlite", cfg.DSN)
	if err != nil {
		return fmt.Errorf("sqlite connect: %w", err)
	}
	connector.ConfigurePool(db, cfg)

	c.db = db
	return nil
}

// Disconnect closes the database connection.
func (c *SQLiteConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *SQLiteConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *SQLiteConnector) DB() *sqlx.DB {
	return c.db
}

// ReadOnlyGuard uses query_only on the connection. The driver rejects
// TxOptions.ReadOnly, so the transaction itself is opened normally.
func (c *SQLiteConnector) ReadOnlyGuard() connector.ReadOnlyGuard {
	return connector.ReadOnlyGuard{
		Session: []string{"PRAGMA query_only = ON"},
		Reset:   []string{"PRAGMA query_only = OFF"},
	}
}

// TableColumns lists the columns of every user table.
func (c *SQLiteConnector) TableColumns(ctx context.Context) (map[string][]string, error) {
	var rows []connector.ColumnRow
	err := c.db.SelectContext(ctx, &rows, `
		SELECT m.name AS table_name, p.name AS column_name
		FROM sqlite_master m
		JOIN pragma_table_info(m.name) p
		WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.name, p.cid`)
	if err != nil {
		return nil, fmt.Errorf("list sqlite columns: %w", err)
	}
	return connector.GroupColumns(rows), nil
}

// DriverName returns the driver identifier for SQLite.
func (c *SQLiteConnector) DriverName() string { return "sqlite" }

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func (c *SQLiteConnector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ParameterPlaceholder returns a SQLite-style positional parameter
// placeholder (?). SQLite ignores the index.
func (c *SQLiteConnector) ParameterPlaceholder(_ int) string {
	return "?"
}
