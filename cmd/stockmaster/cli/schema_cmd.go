package cli

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the inventory schema the model is given",
	}
	cmd.AddCommand(newSchemaShowCmd())
	cmd.AddCommand(newSchemaCheckCmd())
	return cmd
}

func newSchemaShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		question   string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the schema descriptor",
		Example: `  stockmaster schema show
  stockmaster schema show --prompt "how many warehouses do we have"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			d := schema.Inventory()
			switch {
			case jsonOutput:
				return printJSON(d)
			case question != "":
				fmt.Println(d.Prompt(schema.DialectName(cfg.Database.Driver), question))
			default:
				fmt.Printf("Schema version %s (%s)\n\n", d.Version(), schema.DialectName(cfg.Database.Driver))
				fmt.Println(d.Render())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&question, "prompt", "", "Print the full prompt that would be sent for this question")

	return cmd
}

func newSchemaCheckCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the descriptor with the live inventory database",
		Long: `List every table and column the model is told about that the connected
database does not have. Exits non-zero when anything is missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaCheck(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSchemaCheck(ctx context.Context, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	conn, err := a.connectInventory()
	if err != nil {
		return err
	}
	live, err := conn.TableColumns(ctx)
	if err != nil {
		return fmt.Errorf("read live schema: %w", err)
	}
	issues := a.descriptor().Drift(live)

	if jsonOutput {
		if issues == nil {
			issues = []schema.DriftIssue{}
		}
		if err := printJSON(issues); err != nil {
			return err
		}
	} else if len(issues) == 0 {
		pterm.Success.Println("The live database matches the schema descriptor.")
	} else {
		rows := make([][]string, len(issues))
		for i, is := range issues {
			rows[i] = []string{is.Table, is.Column, is.Problem}
		}
		if err := printTable([]string{"Table", "Column", "Problem"}, rows); err != nil {
			return err
		}
	}

	if len(issues) > 0 {
		return fmt.Errorf("schema drift: %d issue(s)", len(issues))
	}
	return nil
}
