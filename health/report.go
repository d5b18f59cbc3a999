package health

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rustyeddy/propjournal/apex"
)

// PrintReport writes a human-readable summary of r.
func PrintReport(w io.Writer, r Report) {
	snap := r.Snapshot

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Account Health: %s\n", r.Account.Name)
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Account ID:    %s\n", r.Account.ID)
	fmt.Fprintf(w, "Initial:       %s\n", r.Account.InitialBalance.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown:  %s\n", snap.Tier.DDMax.StringFixed(2))
	if r.Account.EntryPhase != "" {
		fmt.Fprintf(w, "Entry Phase:   %s\n", r.Account.EntryPhase)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Drawdown")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Balance:       %s\n", snap.CurrentBalance.StringFixed(2))
	fmt.Fprintf(w, "High Water:    %s\n", snap.HighWaterMark.StringFixed(2))
	fmt.Fprintf(w, "Stop Level:    %s (%s)\n", snap.StopLevel.StringFixed(2), snap.StopStatus)
	fmt.Fprintf(w, "Buffer:        %s\n", snap.Buffer.StringFixed(2))
	fmt.Fprintf(w, "Lock At:       %s\n", snap.LockThreshold.StringFixed(2))
	fmt.Fprintf(w, "Phase:         %s\n", snap.Phase)
	if snap.GoalReached {
		fmt.Fprintln(w, "Next Goal:     reached")
	} else {
		fmt.Fprintf(w, "Next Goal:     %s (%s to go)\n", snap.NextGoal.StringFixed(2), snap.DistanceToGoal.StringFixed(2))
	}
	if r.LockEvent != nil {
		fmt.Fprintf(w, "Locked:        %s at trade %s\n", r.LockEvent.Time.UTC().Format(time.RFC3339), r.LockEvent.TradeID)
	}
	if r.Breach != nil {
		fmt.Fprintf(w, "BREACHED:      %s at trade %s\n", r.Breach.Time.UTC().Format(time.RFC3339), r.Breach.TradeID)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Stats.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Stats.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Stats.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.Stats.WinRate*100)
	fmt.Fprintf(w, "Avg Win:       %.2f\n", r.Stats.AvgWin)
	fmt.Fprintf(w, "Avg Loss:      %.2f\n", r.Stats.AvgLoss)
	fmt.Fprintf(w, "Expectancy:    %.2f\n", r.Stats.Expectancy)
	if pf := r.Stats.ProfitFactor(); pf > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", pf)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Risk")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Ruin:          %s\n", ruinLine(r))
	if r.Limits != nil {
		fmt.Fprintf(w, "Kelly:         %.4f\n", r.Limits.KellyFraction)
		fmt.Fprintf(w, "Lots:          %d - %d\n", r.Limits.LotMin, r.Limits.LotMax)
	} else if r.LimitsNote != "" {
		fmt.Fprintf(w, "Lots:          n/a (%s)\n", r.LimitsNote)
	}
}

// FormatReportOrg renders r as an Org-mode entry whose PROPERTIES drawer
// carries the snapshot figures.
func FormatReportOrg(r Report) string {
	snap := r.Snapshot

	var b strings.Builder
	fmt.Fprintf(&b, "* Health: %s [%s]\n", r.Account.Name, r.GeneratedAt.UTC().Format("2006-01-02 Mon 15:04"))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ACCOUNT_ID: %s\n", r.Account.ID)
	fmt.Fprintf(&b, ":BALANCE: %s\n", snap.CurrentBalance.StringFixed(2))
	fmt.Fprintf(&b, ":HIGH_WATER_MARK: %s\n", snap.HighWaterMark.StringFixed(2))
	fmt.Fprintf(&b, ":STOP_LEVEL: %s\n", snap.StopLevel.StringFixed(2))
	fmt.Fprintf(&b, ":STOP_STATUS: %s\n", snap.StopStatus)
	fmt.Fprintf(&b, ":BUFFER: %s\n", snap.Buffer.StringFixed(2))
	fmt.Fprintf(&b, ":PHASE: %s\n", snap.Phase)
	fmt.Fprintf(&b, ":TRADES: %d\n", snap.TradeCount)
	fmt.Fprintf(&b, ":RUIN_PCT: %.2f\n", r.Ruin.Percent)
	fmt.Fprintf(&b, ":RUIN_CONFIDENCE: %s\n", r.Ruin.Confidence)
	if r.Limits != nil {
		fmt.Fprintf(&b, ":LOT_MIN: %d\n", r.Limits.LotMin)
		fmt.Fprintf(&b, ":LOT_MAX: %d\n", r.Limits.LotMax)
	}
	b.WriteString(":END:\n")

	b.WriteString("\n** Notes\n- \n")
	return b.String()
}

// PrintCurve writes one line per equity point.
func PrintCurve(w io.Writer, curve []apex.EquityPoint) {
	fmt.Fprintf(w, "%-20s  %-26s  %10s  %12s  %12s  %12s  %10s  %s\n",
		"TIME", "TRADE", "RESULT", "BALANCE", "HWM", "STOP", "BUFFER", "STATUS")
	for _, p := range curve {
		fmt.Fprintf(w, "%-20s  %-26s  %10s  %12s  %12s  %12s  %10s  %s\n",
			p.Time.UTC().Format("2006-01-02 15:04:05"),
			p.TradeID,
			p.Result.StringFixed(2),
			p.Balance.StringFixed(2),
			p.HighWaterMark.StringFixed(2),
			p.StopLevel.StringFixed(2),
			p.Buffer.StringFixed(2),
			p.Status,
		)
	}
}

func ruinLine(r Report) string {
	s := fmt.Sprintf("%.2f%% (%s)", r.Ruin.Percent, r.Ruin.Confidence)
	if r.Ruin.Reason != "" {
		s += ", " + r.Ruin.Reason
	}
	return s
}
