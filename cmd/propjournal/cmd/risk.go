package cmd

import (
	"fmt"

	"github.com/rustyeddy/propjournal/health"
	"github.com/rustyeddy/propjournal/risk"
	"github.com/spf13/cobra"
)

var ruinCmd = &cobra.Command{
	Use:   "ruin",
	Short: "Estimate probability of ruin from summary statistics",
	Long: `Estimate the probability that a buffer is exhausted before the edge
compounds it, from win rate and average win/loss rather than a journal.

Example:
  propjournal ruin --win-rate 0.55 --avg-win 300 --avg-loss 200 --buffer 2500 --lots 2`,
	Args: cobra.NoArgs,
	RunE: runRuin,
}

var sizeCmd = &cobra.Command{
	Use:   "size <account-id>",
	Short: "Recommend a lot band or check a planned trade",
	Long: `Size the next trade for an account from its journal.

The per-lot risk comes from --per-unit-risk, or from --entry, --stop and
--point-value. With --lots the planned size is checked against the buffer, the
recommended band and the ruin tolerance.

Examples:
  propjournal size apex-1 --per-unit-risk 250
  propjournal size apex-1 --entry 5300 --stop 5290 --point-value 50 --lots 3`,
	Args: cobra.ExactArgs(1),
	RunE: runSize,
}

var (
	ruinWinRate  float64
	ruinAvgWin   float64
	ruinAvgLoss  float64
	ruinBuffer   float64
	ruinLots     float64
	ruinBaseLots float64

	sizePerUnitRisk float64
	sizeEntry       float64
	sizeStop        float64
	sizeTarget      float64
	sizePointValue  float64
	sizeLots        int
	sizeBaseLots    float64
)

func init() {
	rootCmd.AddCommand(ruinCmd)
	rootCmd.AddCommand(sizeCmd)

	ruinCmd.Flags().Float64Var(&ruinWinRate, "win-rate", 0, "fraction of winning trades, 0..1 (required)")
	ruinCmd.Flags().Float64Var(&ruinAvgWin, "avg-win", 0, "average winning trade (required)")
	ruinCmd.Flags().Float64Var(&ruinAvgLoss, "avg-loss", 0, "average losing trade, as a positive number (required)")
	ruinCmd.Flags().Float64Var(&ruinBuffer, "buffer", 0, "distance from balance to stop level (required)")
	ruinCmd.Flags().Float64Var(&ruinLots, "lots", 0, "rescale the estimate to this size")
	ruinCmd.Flags().Float64Var(&ruinBaseLots, "base-lots", 1, "lots behind the averages")
	ruinCmd.MarkFlagRequired("win-rate")
	ruinCmd.MarkFlagRequired("avg-win")
	ruinCmd.MarkFlagRequired("avg-loss")
	ruinCmd.MarkFlagRequired("buffer")

	sizeCmd.Flags().Float64Var(&sizePerUnitRisk, "per-unit-risk", 0, "loss per lot at the stop")
	sizeCmd.Flags().Float64Var(&sizeEntry, "entry", 0, "planned entry price")
	sizeCmd.Flags().Float64Var(&sizeStop, "stop", 0, "planned stop price")
	sizeCmd.Flags().Float64Var(&sizeTarget, "target", 0, "planned target price (reports reward:risk)")
	sizeCmd.Flags().Float64Var(&sizePointValue, "point-value", 0, "P/L of one lot for a 1.0 price move")
	sizeCmd.Flags().IntVar(&sizeLots, "lots", 0, "planned lots to check")
	sizeCmd.Flags().Float64Var(&sizeBaseLots, "base-lots", 1, "typical lots behind the recorded results")
}

func runRuin(cmd *cobra.Command, args []string) error {
	if ruinWinRate < 0 || ruinWinRate > 1 {
		return fmt.Errorf("--win-rate must be in [0, 1]")
	}
	if ruinAvgWin < 0 || ruinAvgLoss < 0 {
		return fmt.Errorf("--avg-win and --avg-loss must not be negative")
	}

	s := risk.NewStats(ruinWinRate, ruinAvgWin, ruinAvgLoss)
	policy := cfg.SizingPolicy()

	est := policy.EstimateRuin(s, ruinBuffer)
	if ruinLots > 0 {
		var err error
		if est, err = policy.RuinAtLots(s, ruinBuffer, ruinLots, ruinBaseLots); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Expectancy:    %.2f\n", s.Expectancy)
	fmt.Fprintf(out, "Variance:      %.2f\n", risk.Variance(s))
	fmt.Fprintf(out, "Ruin:          %.4f%% (%s)\n", est.Percent, est.Confidence)
	if est.Reason != "" {
		fmt.Fprintf(out, "Note:          %s\n", est.Reason)
	}
	if ceiling := risk.MaxLotsForRuin(s, ruinBuffer, ruinBaseLots, policy.RuinTolerancePct); ceiling > 0 {
		fmt.Fprintf(out, "Max Lots:      %d at %.1f%% tolerance\n", ceiling, policy.RuinTolerancePct)
	}
	return nil
}

func runSize(cmd *cobra.Command, args []string) error {
	perUnit := sizePerUnitRisk
	if perUnit == 0 && sizeEntry != 0 && sizeStop != 0 {
		if sizePointValue <= 0 {
			return fmt.Errorf("--point-value is required with --entry and --stop")
		}
		perUnit = risk.PerUnitRisk(sizeEntry, sizeStop, sizePointValue)
	}
	if perUnit <= 0 {
		return fmt.Errorf("give --per-unit-risk or --entry, --stop and --point-value")
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(store)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Per-lot Risk:  %.2f\n", perUnit)
	if sizeTarget != 0 && sizeEntry != 0 && sizeStop != 0 {
		fmt.Fprintf(out, "Reward:Risk:   %.2f\n", risk.RR(sizeEntry, sizeStop, sizeTarget))
	}

	if sizeLots == 0 {
		r, err := svc.Evaluate(cmd.Context(), args[0], health.SizeInput{PerUnitRisk: perUnit, BaseLots: sizeBaseLots})
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		fmt.Fprintf(out, "Buffer:        %s\n", r.Snapshot.Buffer.StringFixed(2))
		fmt.Fprintf(out, "Ruin:          %.2f%% (%s)\n", r.Ruin.Percent, r.Ruin.Confidence)
		if r.Limits == nil {
			fmt.Fprintf(out, "Lots:          n/a (%s)\n", r.LimitsNote)
			return nil
		}
		fmt.Fprintf(out, "Kelly:         %.4f\n", r.Limits.KellyFraction)
		fmt.Fprintf(out, "Lots:          %d - %d\n", r.Limits.LotMin, r.Limits.LotMax)
		return nil
	}

	d, r, err := svc.CheckProposal(cmd.Context(), args[0], risk.Proposal{
		Lots:        sizeLots,
		PerUnitRisk: perUnit,
		BaseLots:    sizeBaseLots,
	})
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	fmt.Fprintf(out, "Buffer:        %s\n", r.Snapshot.Buffer.StringFixed(2))
	fmt.Fprintf(out, "Planned Risk:  %.2f (%.1f%% of buffer)\n", d.PlannedRisk, d.BufferPct*100)
	fmt.Fprintf(out, "Ruin at Size:  %.2f%% (%s)\n", d.RuinAtSize.Percent, d.RuinAtSize.Confidence)
	if d.Recommended.LotMax > 0 {
		fmt.Fprintf(out, "Recommended:   %d - %d lots\n", d.Recommended.LotMin, d.Recommended.LotMax)
	}
	if d.Allowed {
		fmt.Fprintf(out, "✓ %d lots OK\n", sizeLots)
		return nil
	}
	for _, v := range d.Violations {
		fmt.Fprintf(out, "✗ %s: %s\n", v.Code, v.Msg)
	}
	return nil
}
