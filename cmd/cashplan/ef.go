package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cashplan/internal/cli"
	"cashplan/internal/planner"
)

var efCmd = &cobra.Command{
	Use:   "ef",
	Short: "Show emergency fund progress and the recommended contribution",
	RunE:  runEF,
}

func init() {
	rootCmd.AddCommand(efCmd)
}

func runEF(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	ef, err := a.planner.EmergencyFund(cmd.Context())
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, planner.NewEmergencyFundView(ef))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("EMERGENCY FUND  %d months of outflow", a.cfg.EFTargetMonths),
		Headers: []string{"Figure", "Value"},
		Rows: [][]string{
			{"Baseline monthly outflow", cli.FormatMoney(ef.BaselineMonthlyOutflow)},
			{"Target", cli.FormatMoney(ef.Target)},
			{"Liquid", cli.FormatMoney(ef.Liquid)},
			{"Funded", cli.FormatPercent(ef.FundedPct)},
			{"Monthly income", cli.FormatMoney(ef.MonthlyIncome)},
			{"Recommended contribution", cli.FormatMoney(ef.Recommended)},
		},
	}))
	return nil
}
