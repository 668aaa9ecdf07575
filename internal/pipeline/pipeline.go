// Package pipeline answers inventory questions end to end: generate a SQL
// candidate, extract and validate it, run it under the read-only guard and
// phrase the result.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/executor"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/format"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/generator"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/query"
)

const (
	MinQuestionLength = 3
	MaxQuestionLength = 1000

	recordTimeout = 5 * time.Second
)

// Where a request came from, recorded in the history log.
const (
	SourceHTTP = "http"
	SourceCLI  = "cli"
	SourceMCP  = "mcp"
)

// SQLGenerator produces raw completions. *generator.Generator implements it.
type SQLGenerator interface {
	Generate(ctx context.Context, req generator.Request) (generator.RawCompletion, error)
}

// StatementExecutor runs accepted statements. *executor.Executor implements it.
type StatementExecutor interface {
	Execute(ctx context.Context, stmt query.Accepted) (*executor.ResultSet, error)
}

// HistoryRecorder persists one entry per pipeline run. *config.Store
// implements it.
type HistoryRecorder interface {
	RecordQuery(ctx context.Context, rec *model.QueryRecord) error
}

// Options wires a Pipeline.
type Options struct {
	Generator SQLGenerator
	Executor  StatementExecutor
	Models    []string
	Retries   int
	History   HistoryRecorder // optional
	Logger    *slog.Logger
}

// Request is one question, or one raw statement for ExecuteSQL.
type Request struct {
	Question  string
	SQL       string
	RequestID string
	Source    string
}

// Timings breaks down where a run spent its time.
type Timings struct {
	Generate time.Duration
	Execute  time.Duration
	Total    time.Duration
}

// Result is the outcome of a successful run. Fields that a method does not
// produce are left empty.
type Result struct {
	Question  string
	SQL       string
	Model     string
	Attempts  int
	Columns   []string
	Rows      []map[string]any
	Truncated bool
	Answer    format.Answer
	Timings   Timings
}

// Pipeline is safe for concurrent use; it keeps no per-request state.
type Pipeline struct {
	gen     SQLGenerator
	exec    StatementExecutor
	models  []string
	retries int
	history HistoryRecorder
	logger  *slog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &Pipeline{
		gen:     opts.Generator,
		exec:    opts.Executor,
		models:  opts.Models,
		retries: retries,
		history: opts.History,
		logger:  logger,
	}
}

// Models returns the ordered candidate models.
func (p *Pipeline) Models() []string {
	return append([]string(nil), p.models...)
}

// Ask runs the full pipeline for req.Question.
func (p *Pipeline) Ask(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{}
	err := p.ask(ctx, req, res)
	res.Timings.Total = time.Since(start)
	return p.finish(ctx, req, res, err)
}

func (p *Pipeline) ask(ctx context.Context, req Request, res *Result) error {
	stmt, err := p.generate(ctx, req, res)
	if err != nil {
		return err
	}
	return p.execute(ctx, stmt, res)
}

// GenerateSQL runs generation, extraction and validation but does not touch
// the database.
func (p *Pipeline) GenerateSQL(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{}
	_, err := p.generate(ctx, req, res)
	res.Timings.Total = time.Since(start)
	return p.finish(ctx, req, res, err)
}

// ExecuteSQL normalizes and validates the caller-supplied req.SQL exactly as
// a generated candidate would be, then executes it.
func (p *Pipeline) ExecuteSQL(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{Question: req.Question}
	err := func() error {
		stmt, err := query.Prepare(req.SQL)
		if err != nil {
			return classify(err)
		}
		res.SQL = stmt.SQL()
		return p.execute(ctx, stmt, res)
	}()
	res.Timings.Total = time.Since(start)
	return p.finish(ctx, req, res, err)
}

func (p *Pipeline) generate(ctx context.Context, req Request, res *Result) (query.Accepted, error) {
	q, err := query.CleanQuestion(req.Question, MinQuestionLength, MaxQuestionLength)
	if err != nil {
		return query.Accepted{}, Wrap(InvalidQuestion, err.Error(), nil)
	}
	res.Question = q

	genStart := time.Now()
	rc, err := p.gen.Generate(ctx, generator.Request{
		Question:        q,
		Models:          p.models,
		RetriesPerModel: p.retries,
	})
	res.Timings.Generate = time.Since(genStart)
	res.Model = rc.Model
	res.Attempts = rc.Attempts
	if err != nil {
		var ge *generator.GenerationError
		if errors.As(err, &ge) {
			res.Model = ge.Model
			res.Attempts = ge.Attempts
		}
		return query.Accepted{}, classify(err)
	}

	switch rc.Kind {
	case generator.KindRefused:
		return query.Accepted{}, readOnlyRefusal()
	case generator.KindUnanswerable:
		return query.Accepted{}, cannotAnswer()
	}

	stmt, err := query.Prepare(rc.Text)
	if err != nil {
		p.logger.Debug("completion rejected", "model", rc.Model, "completion", rc.Text, "error", err)
		return query.Accepted{}, classify(err)
	}
	res.SQL = stmt.SQL()
	return stmt, nil
}

func (p *Pipeline) execute(ctx context.Context, stmt query.Accepted, res *Result) error {
	execStart := time.Now()
	rs, err := p.exec.Execute(ctx, stmt)
	res.Timings.Execute = time.Since(execStart)
	if err != nil {
		return classify(err)
	}

	rows := format.NormalizeAggregate(stmt.SQL(), rs.Columns, rs.Rows)
	res.Columns = rs.Columns
	res.Rows = rows
	res.Truncated = rs.Truncated
	res.Answer = format.Format(res.Question, rs.Columns, rows)
	return nil
}

// finish logs the run and appends it to the history log.
func (p *Pipeline) finish(ctx context.Context, req Request, res *Result, err error) (*Result, error) {
	rec := &model.QueryRecord{
		RequestID:  req.RequestID,
		Source:     req.Source,
		Question:   res.Question,
		SQL:        res.SQL,
		Model:      res.Model,
		Status:     model.QueryStatusOK,
		RowCount:   len(res.Rows),
		Truncated:  res.Truncated,
		GenerateMs: res.Timings.Generate.Milliseconds(),
		ExecuteMs:  res.Timings.Execute.Milliseconds(),
		TotalMs:    res.Timings.Total.Milliseconds(),
	}
	if rec.Question == "" {
		rec.Question = req.Question
	}

	if err != nil {
		rec.Status = model.QueryStatusError
		rec.ErrorKind = string(KindOf(err))
		p.logger.Warn("pipeline failed",
			"request_id", req.RequestID,
			"kind", rec.ErrorKind,
			"model", res.Model,
			"attempts", res.Attempts,
			"error", err,
		)
	} else {
		p.logger.Info("pipeline completed",
			"request_id", req.RequestID,
			"model", res.Model,
			"attempts", res.Attempts,
			"rows", len(res.Rows),
			"generate_ms", rec.GenerateMs,
			"execute_ms", rec.ExecuteMs,
			"total_ms", rec.TotalMs,
		)
	}

	if p.history != nil {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if herr := p.history.RecordQuery(hctx, rec); herr != nil {
			p.logger.Warn("record query history failed", "error", herr)
		}
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}
