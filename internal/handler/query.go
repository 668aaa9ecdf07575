package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/server/middleware"
)

// Asker runs questions and statements through the pipeline.
// *pipeline.Pipeline implements it.
type Asker interface {
	Ask(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	GenerateSQL(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	ExecuteSQL(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// QueryHandler serves the question, SQL generation and execution endpoints.
type QueryHandler struct {
	asker Asker
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(asker Asker) *QueryHandler {
	return &QueryHandler{asker: asker}
}

type questionRequest struct {
	Question string `json:"question"`
}

type executeRequest struct {
	SQL      string `json:"sql"`
	Question string `json:"question"`
}

type sqlResponse struct {
	Question string             `json:"question"`
	SQL      string             `json:"sql"`
	Model    string             `json:"model"`
	Meta     model.ResponseMeta `json:"meta"`
}

// Ask answers a natural-language question.
// POST /api/v1/query
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req questionRequest
	if err := readJSON(r, &req); err != nil {
		writeInvalidBody(w, r, start, err)
		return
	}

	res, err := h.asker.Ask(r.Context(), h.request(r, req.Question, ""))
	if err != nil {
		writePipelineError(w, r, start, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse(r, start, res))
}

// GenerateSQL returns the validated statement for a question without running it.
// POST /api/v1/sql
func (h *QueryHandler) GenerateSQL(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req questionRequest
	if err := readJSON(r, &req); err != nil {
		writeInvalidBody(w, r, start, err)
		return
	}

	res, err := h.asker.GenerateSQL(r.Context(), h.request(r, req.Question, ""))
	if err != nil {
		writePipelineError(w, r, start, err)
		return
	}

	meta := newMeta(r, start)
	meta.GenerateMs = ms(res.Timings.Generate)
	writeJSON(w, http.StatusOK, sqlResponse{
		Question: res.Question,
		SQL:      res.SQL,
		Model:    res.Model,
		Meta:     meta,
	})
}

// Execute runs a caller-supplied statement under the same guards as a
// generated one.
// POST /api/v1/execute
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req executeRequest
	if err := readJSON(r, &req); err != nil {
		writeInvalidBody(w, r, start, err)
		return
	}

	res, err := h.asker.ExecuteSQL(r.Context(), h.request(r, req.Question, req.SQL))
	if err != nil {
		writePipelineError(w, r, start, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse(r, start, res))
}

func (h *QueryHandler) request(r *http.Request, question, sql string) pipeline.Request {
	return pipeline.Request{
		Question:  question,
		SQL:       sql,
		RequestID: middleware.GetRequestID(r.Context()),
		Source:    pipeline.SourceHTTP,
	}
}

func queryResponse(r *http.Request, start time.Time, res *pipeline.Result) model.QueryResponse {
	meta := newMeta(r, start)
	if res.Timings.Generate > 0 {
		meta.GenerateMs = ms(res.Timings.Generate)
	}
	meta.ExecuteMs = ms(res.Timings.Execute)
	return model.QueryResponse{
		Question:  res.Question,
		SQL:       res.SQL,
		Model:     res.Model,
		Columns:   res.Columns,
		Rows:      res.Rows,
		RowCount:  len(res.Rows),
		Truncated: res.Truncated,
		Answer:    res.Answer.Text,
		Summary:   res.Answer.Summary,
		Meta:      meta,
	}
}

func writeInvalidBody(w http.ResponseWriter, r *http.Request, start time.Time, err error) {
	writePipelineError(w, r, start, pipeline.Wrap(pipeline.InvalidQuestion, "Invalid request body: "+err.Error(), err))
}
