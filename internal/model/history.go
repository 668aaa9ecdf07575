package model

import "time"

// Query outcomes recorded in the history log.
const (
	QueryStatusOK    = "ok"
	QueryStatusError = "error"
)

// QueryRecord is one entry of the query audit log. Records are written after
// every pipeline run and are never used to answer later questions.
type QueryRecord struct {
	ID         int64     `json:"id" db:"id"`
	RequestID  string    `json:"request_id,omitempty" db:"request_id"`
	Source     string    `json:"source" db:"source"` // http, cli, mcp
	Question   string    `json:"question" db:"question"`
	SQL        string    `json:"sql,omitempty" db:"sql_text"`
	Model      string    `json:"model,omitempty" db:"model"`
	Status     string    `json:"status" db:"status"`
	ErrorKind  string    `json:"error_kind,omitempty" db:"error_kind"`
	RowCount   int       `json:"row_count" db:"row_count"`
	Truncated  bool      `json:"truncated" db:"truncated"`
	GenerateMs int64     `json:"generate_ms" db:"generate_ms"`
	ExecuteMs  int64     `json:"execute_ms" db:"execute_ms"`
	TotalMs    int64     `json:"total_ms" db:"total_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
