package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cashplan/internal/cli"
	"cashplan/internal/core"
	"cashplan/internal/planner"
)

var (
	flagFrom        string
	flagTo          string
	flagDueSoonDays int
)

var occurrencesCmd = &cobra.Command{
	Use:   "occurrences",
	Short: "List bill occurrences in a date window, most urgent first",
	RunE:  runOccurrences,
}

func init() {
	occurrencesCmd.Flags().StringVar(&flagFrom, "from", "", "First day, YYYY-MM-DD (default today)")
	occurrencesCmd.Flags().StringVar(&flagTo, "to", "", "Last day, YYYY-MM-DD (default from + 30 days)")
	occurrencesCmd.Flags().IntVar(&flagDueSoonDays, "due-soon-days", 0, "Due-soon window in days (default from config)")
	rootCmd.AddCommand(occurrencesCmd)
}

// dateFlag parses a YYYY-MM-DD flag, falling back to def when empty.
func dateFlag(name, value string, def core.Date) (core.Date, error) {
	if value == "" {
		return def, nil
	}
	d, err := core.ParseDate(value)
	if err != nil {
		return core.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func runOccurrences(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	today := core.DateOf(time.Now().UTC())
	from, err := dateFlag("from", flagFrom, today)
	if err != nil {
		return err
	}
	to, err := dateFlag("to", flagTo, from.AddDays(30))
	if err != nil {
		return err
	}
	if flagDueSoonDays != 0 && (flagDueSoonDays < 1 || flagDueSoonDays > 60) {
		return fmt.Errorf("--due-soon-days must be between 1 and 60")
	}

	occ, err := a.planner.Occurrences(cmd.Context(), from, to, flagDueSoonDays)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, planner.NewOccurrenceViews(occ))
	}

	out := cmd.OutOrStdout()
	if len(occ) == 0 {
		fmt.Fprintln(out, "\n  No occurrences in the selected window.")
		return nil
	}

	rows := make([][]string, 0, len(occ))
	for _, o := range occ {
		status := string(o.Status)
		if o.Status == planner.StatusActive && o.DueSoon {
			status = "due soon"
		}
		rows = append(rows, []string{
			o.Name,
			o.Due.String(),
			cli.FormatMoney(o.Amount),
			cli.FormatMoney(o.Contributed),
			cli.FormatPercent(o.Progress * 100),
			strconv.Itoa(o.DaysToDue),
			strconv.FormatFloat(o.PriorityScore, 'f', 3, 64),
			cli.FormatStatus(status),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("OCCURRENCES  %s .. %s", from, to),
		Headers: []string{"Bill", "Due", "Amount", "Saved", "Progress", "Days", "Score", "Status"},
		Rows:    rows,
	}))
	return nil
}
