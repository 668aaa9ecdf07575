package model

// ResponseMeta carries timing information on every API response.
type ResponseMeta struct {
	TookMs     float64 `json:"took_ms"`
	Timestamp  string  `json:"timestamp"`
	GenerateMs *int64  `json:"generate_ms,omitempty"`
	ExecuteMs  *int64  `json:"execute_ms,omitempty"`
	RequestID  string  `json:"request_id,omitempty"`
}

// QueryResponse is the body of a successful question or SQL execution.
type QueryResponse struct {
	Question  string           `json:"question,omitempty"`
	SQL       string           `json:"sql"`
	Model     string           `json:"model,omitempty"`
	Columns   []string         `json:"columns,omitempty"`
	Rows      []map[string]any `json:"rows,omitempty"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
	Answer    string           `json:"answer,omitempty"`
	Summary   string           `json:"summary,omitempty"`
	Meta      ResponseMeta     `json:"meta"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail   `json:"error"`
	Meta  *ResponseMeta `json:"meta,omitempty"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}
