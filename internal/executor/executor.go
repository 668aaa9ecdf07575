// Package executor runs validated statements against the inventory database
// inside a read-only transaction that is always rolled back.
package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/query"
)

const (
	DefaultAcquireTimeout = 10 * time.Second
	DefaultQueryTimeout   = 30 * time.Second
	DefaultMaxRows        = 1000

	resetTimeout = 5 * time.Second
)

// ErrorKind classifies execution failures.
type ErrorKind string

const (
	PoolExhausted ErrorKind = "pool_exhausted"
	QueryFailed   ErrorKind = "query_failed"
	NotValidated  ErrorKind = "not_validated"
)

// ExecutionError is returned by Execute.
type ExecutionError struct {
	Kind    ErrorKind
	Message string
	// ReadOnlyViolation is set when the database itself refused a write.
	ReadOnlyViolation bool
	Err               error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute sql: %s: %s", e.Kind, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ResultSet holds the captured rows of one execution.
type ResultSet struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated"`
}

// Options bounds an Executor.
type Options struct {
	AcquireTimeout time.Duration
	QueryTimeout   time.Duration
	MaxRows        int
	Logger         *slog.Logger
}

// Stats is a snapshot of the executor counters.
type Stats struct {
	Executions uint64 `json:"executions"`
	Rollbacks  uint64 `json:"rollbacks"`
	Failures   uint64 `json:"failures"`
}

// Executor runs accepted statements on a connector's pool.
type Executor struct {
	conn   connector.Connector
	opts   Options
	logger *slog.Logger

	executions atomic.Uint64
	rollbacks  atomic.Uint64
	failures   atomic.Uint64
}

// New creates an Executor over conn.
func New(conn connector.Connector, opts Options) *Executor {
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = DefaultAcquireTimeout
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{conn: conn, opts: opts, logger: logger}
}

// Stats returns the current counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Executions: e.executions.Load(),
		Rollbacks:  e.rollbacks.Load(),
		Failures:   e.failures.Load(),
	}
}

// Execute runs stmt once. The transaction is rolled back whether or not the
// query succeeds, and the session is restored before the connection returns
// to the pool.
func (e *Executor) Execute(ctx context.Context, stmt query.Accepted) (rs *ResultSet, err error) {
	if stmt.IsZero() {
		return nil, &ExecutionError{Kind: NotValidated, Message: "statement was not accepted by the validator"}
	}

	e.executions.Add(1)
	start := time.Now()
	defer func() {
		if err != nil {
			e.failures.Add(1)
			return
		}
		e.logger.Debug("query executed",
			"rows", len(rs.Rows),
			"truncated", rs.Truncated,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	conn, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	guard := e.conn.ReadOnlyGuard()
	defer e.restore(ctx, conn, guard)

	// QueryTimeout covers the guard statements as well as the query.
	qctx, cancel := context.WithTimeout(ctx, e.opts.QueryTimeout)
	defer cancel()

	for _, s := range guard.Session {
		if _, err := conn.ExecContext(qctx, s); err != nil {
			return nil, queryError("apply read-only session", err)
		}
	}

	tx, err := conn.BeginTxx(qctx, &guard.TxOptions)
	if err != nil {
		return nil, queryError("begin read-only transaction", err)
	}
	defer e.rollback(tx)

	for _, s := range guard.InTx {
		if _, err := tx.ExecContext(qctx, s); err != nil {
			return nil, queryError("apply read-only transaction", err)
		}
	}

	return e.run(qctx, tx, stmt.SQL())
}

func (e *Executor) acquire(ctx context.Context) (*sqlx.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, e.opts.AcquireTimeout)
	defer cancel()

	conn, err := e.conn.DB().Connx(actx)
	if err == nil {
		return conn, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &ExecutionError{
			Kind:    PoolExhausted,
			Message: fmt.Sprintf("no database connection available within %s", e.opts.AcquireTimeout),
			Err:     err,
		}
	}
	return nil, queryError("acquire connection", err)
}

func (e *Executor) run(ctx context.Context, tx *sqlx.Tx, sqlText string) (*ResultSet, error) {
	rows, err := tx.QueryxContext(ctx, sqlText)
	if err != nil {
		return nil, queryError("query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, queryError("read columns", err)
	}

	rs := &ResultSet{Columns: cols, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		if len(rs.Rows) >= e.opts.MaxRows {
			rs.Truncated = true
			break
		}
		row := make(map[string]any, len(cols))
		if err := rows.MapScan(row); err != nil {
			return nil, queryError("scan row", err)
		}
		cleanMapValues(row)
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("read rows", err)
	}
	return rs, nil
}

func (e *Executor) rollback(tx *sqlx.Tx) {
	e.rollbacks.Add(1)
	// A cancelled context already rolled the transaction back.
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		e.logger.Warn("rollback failed", "error", err)
	}
}

// restore undoes the session guard. A connection that cannot be restored is
// discarded instead of being returned to the pool.
func (e *Executor) restore(ctx context.Context, conn *sqlx.Conn, guard connector.ReadOnlyGuard) {
	if len(guard.Reset) == 0 {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetTimeout)
	defer cancel()

	for _, s := range guard.Reset {
		if _, err := conn.ExecContext(rctx, s); err != nil {
			e.logger.Warn("session reset failed, discarding connection", "statement", s, "error", err)
			conn.Raw(func(any) error { return driver.ErrBadConn })
			return
		}
	}
}

func queryError(step string, err error) *ExecutionError {
	return &ExecutionError{
		Kind:              QueryFailed,
		Message:           step + ": " + err.Error(),
		ReadOnlyViolation: isReadOnlyViolation(err),
		Err:               err,
	}
}

// isReadOnlyViolation recognizes the engines' "read-only transaction"
// errors.
func isReadOnlyViolation(err error) bool {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1792
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "25006"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "readonly database") ||
		strings.Contains(msg, "read-only transaction") ||
		strings.Contains(msg, "ora-01456")
}

// cleanMapValues converts []byte values to strings so rows serialize as
// text rather than base64.
func cleanMapValues(m map[string]any) {
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}
}
