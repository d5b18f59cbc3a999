package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/propjournal/apex"
)

// FormatTradeOrg renders a trade as an Org-mode block suitable for pasting into a journal.
// Structured facts go in a PROPERTIES drawer; Thesis/Review are left for the trader.
func FormatTradeOrg(t apex.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s (%s) %s\n", orDash(t.Instrument), shortID(t.ID), signed(t.Result.StringFixed(2)))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":ACCOUNT_ID: %s\n", t.AccountID)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", t.Instrument)
	fmt.Fprintf(&b, ":LOTS: %g\n", t.Lots)
	fmt.Fprintf(&b, ":RESULT: %s\n", t.Result.StringFixed(2))
	fmt.Fprintf(&b, ":TIMESTAMP: %s\n", t.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(":END:\n")
	if t.Notes != "" {
		fmt.Fprintf(&b, "\n%s\n", t.Notes)
	}
	b.WriteString("\n*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []apex.Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}
