package cli

import (
	"encoding/json"
	"os"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable renders header and rows as a boxed table.
func printTable(header []string, rows [][]string) error {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, header)
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// spinner shows text while work runs. On a non-interactive stdout it is a
// no-op so piped output stays clean.
type spinner struct {
	sp *pterm.SpinnerPrinter
}

func startSpinner(text string) *spinner {
	if !stdoutIsTerminal() {
		return &spinner{}
	}
	sp, err := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(text)
	if err != nil {
		return &spinner{}
	}
	return &spinner{sp: sp}
}

func (s *spinner) Stop() {
	if s.sp != nil {
		s.sp.Stop()
	}
}
