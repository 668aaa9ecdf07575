package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		status     string
		jsonOutput bool
		prune      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently asked questions",
		Long: `Show the query audit log: every question with its SQL, model, outcome and
timings, newest first.`,
		Example: `  stockmaster history --limit 20
  stockmaster history --status error
  stockmaster history --prune 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && status != model.QueryStatusOK && status != model.QueryStatusError {
				return fmt.Errorf("invalid --status %q (use %s or %s)", status, model.QueryStatusOK, model.QueryStatusError)
			}
			return runHistory(cmd.Context(), config.HistoryFilter{Status: status, Limit: limit}, jsonOutput, prune)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVar(&status, "status", "", "Only show entries with this status (ok or error)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete entries older than this age instead of listing")

	return cmd
}

func runHistory(ctx context.Context, filter config.HistoryFilter, jsonOutput bool, prune time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	if prune > 0 {
		n, err := store.PruneQueries(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		pterm.Success.Printf("Deleted %d history entries older than %s.\n", n, prune)
		return nil
	}

	records, err := store.ListQueries(ctx, filter)
	if err != nil {
		return err
	}

	if jsonOutput {
		if records == nil {
			records = []model.QueryRecord{}
		}
		return printJSON(records)
	}
	if len(records) == 0 {
		fmt.Println("No questions recorded yet.")
		return nil
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		outcome := pterm.Green(r.Status)
		if r.Status == model.QueryStatusError {
			outcome = pterm.Red(r.ErrorKind)
		}
		rows[i] = []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Source,
			truncate(r.Question, 50),
			outcome,
			strconv.Itoa(r.RowCount),
			strconv.FormatInt(r.TotalMs, 10),
		}
	}
	return printTable([]string{"Time", "Source", "Question", "Outcome", "Rows", "ms"}, rows)
}
