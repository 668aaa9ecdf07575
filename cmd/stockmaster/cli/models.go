package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/completion"
)

func newModelsCmd() *cobra.Command {
	var (
		all        bool
		save       bool
		jsonOutput bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Check which completion models answer with the current credential",
		Long: `Send a tiny prompt to every candidate model and report whether it works,
does not exist for this key, is out of quota, or failed for another reason.

With --save the working models become the candidate list used by serve, ask
and mcp when backend.models is not configured.`,
		Example: `  stockmaster models
  stockmaster models --all --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd.Context(), all, save, jsonOutput, timeout)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Probe every model the backend lists instead of the candidate list")
	cmd.Flags().BoolVar(&save, "save", false, "Save the working models as the candidate list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Timeout per model")

	return cmd
}

func runModels(ctx context.Context, all, save, jsonOutput bool, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	provider, models, err := a.backend(ctx)
	if err != nil {
		return err
	}
	if all {
		lister, ok := provider.(completion.ModelLister)
		if !ok {
			return fmt.Errorf("provider %s cannot list models", provider.Name())
		}
		if models, err = lister.ListModels(ctx); err != nil {
			return fmt.Errorf("list models: %w", err)
		}
	}
	if len(models) == 0 {
		return errors.New("no models to probe")
	}

	sp := startSpinner(fmt.Sprintf("Probing %d models...", len(models)))
	results := completion.Probe(ctx, provider, models, timeout)
	sp.Stop()

	if save {
		working := completion.WorkingModels(results)
		if len(working) == 0 {
			return errors.New("no working models, candidate list left unchanged")
		}
		if err := a.store.SetSetting(ctx, settingModels, strings.Join(working, ",")); err != nil {
			return err
		}
	}

	if jsonOutput {
		return printJSON(results)
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.Model, statusLabel(r.Status), r.Duration.Round(time.Millisecond).String(), truncate(r.Detail, 60)}
	}
	if err := printTable([]string{"Model", "Status", "Time", "Detail"}, rows); err != nil {
		return err
	}
	if save {
		pterm.Success.Printf("Saved %d working models as the candidate list.\n", len(completion.WorkingModels(results)))
	}
	return nil
}

func statusLabel(status string) string {
	switch status {
	case completion.ProbeWorks:
		return pterm.Green("works")
	case completion.ProbeNotFound:
		return pterm.Yellow("not found")
	case completion.ProbeQuota:
		return pterm.Yellow("quota exceeded")
	default:
		return pterm.Red("error")
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
