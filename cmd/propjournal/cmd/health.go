package cmd

import (
	"fmt"

	"github.com/rustyeddy/propjournal/health"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health [account-id]",
	Short: "Report drawdown health, ruin and lot limits",
	Long: `Evaluate an account's trade history: high-water mark, trailing stop,
buffer, phase, trade statistics, probability of ruin and, when a per-lot risk
is given, the recommended lot band. Without an account id every account is
reported.

Examples:
  propjournal health apex-1
  propjournal health apex-1 --per-unit-risk 250 --org
  propjournal health`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHealth,
}

var curveCmd = &cobra.Command{
	Use:   "curve <account-id>",
	Short: "Print the equity curve with stop level after each trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runCurve,
}

var (
	healthOrg         bool
	healthPerUnitRisk float64
	healthBaseLots    float64
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(curveCmd)

	healthCmd.Flags().BoolVar(&healthOrg, "org", false, "print as Org-mode entries")
	healthCmd.Flags().Float64Var(&healthPerUnitRisk, "per-unit-risk", 0, "loss per lot at the planned stop; enables lot limits")
	healthCmd.Flags().Float64Var(&healthBaseLots, "base-lots", 1, "typical lots behind the recorded results")
}

func runHealth(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(store)
	if err != nil {
		return err
	}

	in := health.SizeInput{PerUnitRisk: healthPerUnitRisk, BaseLots: healthBaseLots}

	var reports []health.Report
	if len(args) == 1 {
		r, err := svc.Evaluate(cmd.Context(), args[0], in)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		reports = append(reports, r)
	} else {
		if reports, err = svc.EvaluateAll(cmd.Context(), in); err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if healthOrg {
			fmt.Fprint(out, health.FormatReportOrg(r))
		} else {
			health.PrintReport(out, r)
		}
	}
	return nil
}

func runCurve(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(store)
	if err != nil {
		return err
	}

	curve, err := svc.Curve(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("curve: %w", err)
	}
	health.PrintCurve(cmd.OutOrStdout(), curve)
	return nil
}
