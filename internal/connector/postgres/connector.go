package postgres

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
)

// PostgresConnector implements connector.Connector for PostgreSQL databases.
type PostgresConnector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates a new PostgresConnector with default settings.
func New() connector.Connector {
	return &PostgresConnector{schemaName: "public"}
}

// Connect establishes a connection to the PostgreSQL database using the
// provided configuration.
func (c *PostgresConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("pgx", connector.SanitizeDSN("postgres", cfg.DSN))
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	connector.ConfigurePool(db, cfg)

	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}

	c.db = db
	return nil
}

// Disconnect closes the database connection pool.
func (c *PostgresConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *PostgresConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *PostgresConnector) DB() *sqlx.DB {
	return c.db
}

// ReadOnlyGuard sets the session default to read-only and also begins the
// transaction READ ONLY.
func (c *PostgresConnector) ReadOnlyGuard() connector.ReadOnlyGuard {
	g := connector.ReadOnlyGuard{
		Session: []string{"SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY"},
		Reset:   []string{"SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE"},
	}
	g.TxOptions.ReadOnly = true
	return g
}

// TableColumns lists the columns of every base table in the schema.
func (c *PostgresConnector) TableColumns(ctx context.Context) (map[string][]string, error) {
	var rows []connector.ColumnRow
	err := c.db.SelectContext(ctx, &rows, `
		SELECT c.table_name, c.column_name
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position`, c.schemaName)
	if err != nil {
		return nil, fmt.Errorf("list postgres columns: %w", err)
	}
	return connector.GroupColumns(rows), nil
}

// DriverName returns the driver identifier for PostgreSQL.
func (c *PostgresConnector) DriverName() string { return "postgres" }

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func (c *PostgresConnector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ParameterPlaceholder returns a PostgreSQL-style numbered parameter
// placeholder (e.g., $1, $2, $3).
func (c *PostgresConnector) ParameterPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}
