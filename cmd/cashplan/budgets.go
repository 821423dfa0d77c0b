package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cashplan/internal/cli"
	"cashplan/internal/core"
	"cashplan/internal/planner"
)

var budgetsCmd = &cobra.Command{
	Use:   "budgets",
	Short: "Compare budgeted and actual spend per category for a month",
	Args:  cobra.NoArgs,
	RunE:  runBudgets,
}

func init() {
	budgetsCmd.Flags().IntVar(&flagYear, "year", 0, "Budget year (default current)")
	budgetsCmd.Flags().IntVar(&flagMonth, "month", 0, "Budget month 1-12 (default current)")
	rootCmd.AddCommand(budgetsCmd)
}

func runBudgets(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	rows, err := a.planner.BudgetVsActual(cmd.Context(), flagYear, flagMonth)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, planner.NewBudgetVsActualViews(rows))
	}

	year, month := flagYear, flagMonth
	now := time.Now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintf(out, "No budgets for %04d-%02d.\n", year, month)
		return nil
	}

	var budgeted, actual core.Money
	table := make([][]string, 0, len(rows)+1)
	for _, r := range rows {
		budgeted, actual = budgeted.Add(r.Budgeted), actual.Add(r.Actual)
		table = append(table, []string{r.Name, cli.FormatMoney(r.Budgeted), cli.FormatMoney(r.Actual), cli.FormatVariance(r.Variance())})
	}
	table = append(table, []string{"Total", cli.FormatMoney(budgeted), cli.FormatMoney(actual), cli.FormatVariance(budgeted.Sub(actual))})

	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("BUDGET VS ACTUAL  %04d-%02d", year, month),
		Headers: []string{"Category", "Budgeted", "Actual", "Variance"},
		Rows:    table,
	}))
	return nil
}
