package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/format"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
)

// maxTableRows bounds the rows printed as a table; the answer summary and
// --json still cover the full result.
const maxTableRows = 50

func newAskCmd() *cobra.Command {
	var (
		sqlOnly    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the inventory",
		Long: `Translate a question into a read-only SQL query, run it against the
inventory database and print the answer.`,
		Example: `  stockmaster ask "how much stock of steel bolts is available"
  stockmaster ask --sql-only "total inventory valuation per warehouse"
  stockmaster ask --json "which products are below 10 units"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), strings.Join(args, " "), sqlOnly, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&sqlOnly, "sql-only", false, "Only generate and validate the SQL, do not run it")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAsk(ctx context.Context, question string, sqlOnly, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(ctx, !sqlOnly)
	if err != nil {
		return err
	}

	req := pipeline.Request{Question: question, Source: pipeline.SourceCLI}
	sp := startSpinner("Thinking...")
	var res *pipeline.Result
	if sqlOnly {
		res, err = p.GenerateSQL(ctx, req)
	} else {
		res, err = p.Ask(ctx, req)
	}
	sp.Stop()
	if err != nil {
		return askError(err, jsonOutput)
	}

	if jsonOutput {
		return printJSON(jsonResult(res))
	}

	if sqlOnly {
		fmt.Println(res.SQL)
		return nil
	}

	pterm.Success.Println(res.Answer.Text)
	pterm.Println(pterm.Gray(res.SQL))
	pterm.Println(pterm.Gray(fmt.Sprintf("model %s, %d ms", res.Model, res.Timings.Total.Milliseconds())))
	if len(res.Rows) == 0 {
		return nil
	}

	fmt.Println()
	if err := printTable(headerRow(res.Columns), tableRows(res.Columns, res.Rows)); err != nil {
		return err
	}
	if len(res.Rows) > maxTableRows {
		pterm.Info.Printf("Showing %d of %d rows. Use --json for the full result.\n", maxTableRows, len(res.Rows))
	}
	if res.Truncated {
		pterm.Warning.Println("The result was cut off at the configured row limit.")
	}
	return nil
}

// jsonResult mirrors the body of POST /api/v1/query.
func jsonResult(res *pipeline.Result) model.QueryResponse {
	meta := model.ResponseMeta{
		TookMs:    float64(res.Timings.Total.Microseconds()) / 1000,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if res.Timings.Generate > 0 {
		v := res.Timings.Generate.Milliseconds()
		meta.GenerateMs = &v
	}
	if res.Timings.Execute > 0 {
		v := res.Timings.Execute.Milliseconds()
		meta.ExecuteMs = &v
	}
	return model.QueryResponse{
		Question:  res.Question,
		SQL:       res.SQL,
		Model:     res.Model,
		Columns:   res.Columns,
		Rows:      res.Rows,
		RowCount:  res.Answer.RowCount,
		Truncated: res.Truncated,
		Answer:    res.Answer.Text,
		Summary:   res.Answer.Summary,
		Meta:      meta,
	}
}

func headerRow(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = format.ColumnName(c)
	}
	return out
}

func tableRows(columns []string, rows []map[string]any) [][]string {
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = format.Value(row[c], c)
		}
		out[i] = cells
	}
	return out
}

// askError prints the hint for a pipeline failure, or the API error body
// with --json, and returns the error so the process exits non-zero.
func askError(err error, jsonOutput bool) error {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return err
	}
	if jsonOutput {
		if perr := printJSON(jsonError(pe)); perr != nil {
			return perr
		}
	} else if hint := pe.Kind.Hint(); hint != "" {
		pterm.Info.Println(hint)
	}
	if pe.Reason != "" {
		return fmt.Errorf("%s (%s): %s", pe.Kind, pe.Reason, pe.Message)
	}
	return fmt.Errorf("%s: %s", pe.Kind, pe.Message)
}

// jsonError mirrors the error envelope of POST /api/v1/query.
func jsonError(pe *pipeline.Error) model.ErrorResponse {
	return model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    pe.Kind.HTTPStatus(),
			Message: pe.Message,
			Context: pe.Context(),
		},
	}
}
