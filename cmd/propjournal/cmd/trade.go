package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/rustyeddy/propjournal/journal"
	"github.com/rustyeddy/propjournal/pkg/id"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Record and query closed trades",
	Long: `Record closed trades and query the trade journal.

Subcommands:
  add     - Record one closed trade
  list    - List an account's trades (optionally one day, or as Org-mode)
  show    - Show one trade as an Org-mode entry
  import  - Import trades from CSV
  export  - Export trades to CSV

Examples:
  propjournal trade add apex-1 --result -125.50 --instrument ES --lots 2
  propjournal trade list apex-1 --day 2024-06-03 --org
  propjournal trade import apex-1 trades.csv
  propjournal trade export apex-1 -o trades.csv`,
}

var tradeAddCmd = &cobra.Command{
	Use:   "add <account-id>",
	Short: "Record one closed trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeAdd,
}

var tradeListCmd = &cobra.Command{
	Use:   "list <account-id>",
	Short: "List an account's trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeList,
}

var tradeShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show one trade as an Org-mode entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeShow,
}

var tradeImportCmd = &cobra.Command{
	Use:   "import <account-id> <file.csv>",
	Short: "Import trades from CSV",
	Long: `Import closed trades from a CSV file with a header row.

The result and timestamp columns are required; trade_id, instrument, lots and
notes are optional. Rows without a trade_id get a fresh ULID. The whole file
is recorded in one transaction: any bad row rejects the import.`,
	Args: cobra.ExactArgs(2),
	RunE: runTradeImport,
}

var tradeExportCmd = &cobra.Command{
	Use:   "export <account-id>",
	Short: "Export trades to CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeExport,
}

var (
	tradeID         string
	tradeResult     string
	tradeInstrument string
	tradeLots       float64
	tradeAt         string
	tradeNotes      string

	tradeListDay string
	tradeListOrg bool

	tradeExportOut string
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeAddCmd)
	tradeCmd.AddCommand(tradeListCmd)
	tradeCmd.AddCommand(tradeShowCmd)
	tradeCmd.AddCommand(tradeImportCmd)
	tradeCmd.AddCommand(tradeExportCmd)

	tradeAddCmd.Flags().StringVar(&tradeID, "id", "", "trade id (defaults to a new ULID)")
	tradeAddCmd.Flags().StringVarP(&tradeResult, "result", "r", "", "realized P/L in account currency (required)")
	tradeAddCmd.Flags().StringVarP(&tradeInstrument, "instrument", "i", "", "instrument, e.g. ES or NQ")
	tradeAddCmd.Flags().Float64VarP(&tradeLots, "lots", "l", 0, "lots traded")
	tradeAddCmd.Flags().StringVar(&tradeAt, "at", "", "close time, RFC3339 or YYYY-MM-DD HH:MM (defaults to now)")
	tradeAddCmd.Flags().StringVarP(&tradeNotes, "notes", "n", "", "free-form notes")
	tradeAddCmd.MarkFlagRequired("result")

	tradeListCmd.Flags().StringVar(&tradeListDay, "day", "", "only trades closed on this day (YYYY-MM-DD, local time)")
	tradeListCmd.Flags().BoolVar(&tradeListOrg, "org", false, "print as Org-mode entries")

	tradeExportCmd.Flags().StringVarP(&tradeExportOut, "output", "o", "", "output CSV path (defaults to stdout)")
}

func runTradeAdd(cmd *cobra.Command, args []string) error {
	result, err := decimal.NewFromString(tradeResult)
	if err != nil {
		return fmt.Errorf("bad --result: %w", err)
	}

	at := time.Now().UTC()
	if tradeAt != "" {
		if at, err = parseTime(tradeAt); err != nil {
			return fmt.Errorf("bad --at: %w", err)
		}
	}

	t := apex.Trade{
		ID:         tradeID,
		AccountID:  args[0],
		Instrument: tradeInstrument,
		Lots:       tradeLots,
		Result:     result,
		Timestamp:  at,
		Notes:      tradeNotes,
	}
	if t.ID == "" {
		t.ID = id.New()
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RecordTrade(cmd.Context(), t); err != nil {
		return fmt.Errorf("record trade: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Recorded trade %s on %s: %s\n", t.ID, t.AccountID, t.Result.StringFixed(2))
	return nil
}

func runTradeList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.GetAccount(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	var trades []apex.Trade
	if tradeListDay != "" {
		start, end, err := dayBounds(time.Local, tradeListDay)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		trades, err = store.ListTradesBetween(cmd.Context(), args[0], start, end)
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}
	} else {
		trades, err = store.ListTrades(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}
	}

	if tradeListOrg {
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(trades))
		return nil
	}
	return printTrades(cmd.OutOrStdout(), trades)
}

func runTradeShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := store.GetTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(t))
	return nil
}

func runTradeImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	trades, err := journal.ImportCSV(f, args[0])
	if err != nil {
		return fmt.Errorf("import csv: %w", err)
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RecordTrades(cmd.Context(), trades); err != nil {
		return fmt.Errorf("record trades: %w", err)
	}

	logger.Info("Imported trades", "account_id", args[0], "file", args[1], "count", len(trades))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d trades into %s\n", len(trades), args[0])
	return nil
}

func runTradeExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	trades, err := store.ListTrades(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if tradeExportOut != "" {
		f, err := os.Create(tradeExportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := journal.ExportCSV(w, trades); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	if tradeExportOut != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d trades to %s\n", len(trades), tradeExportOut)
	}
	return nil
}

func printTrades(out io.Writer, trades []apex.Trade) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tID\tINSTRUMENT\tLOTS\tRESULT\tNOTES")
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.Result)
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%s\t%s\n",
			t.Timestamp.UTC().Format("2006-01-02 15:04"), t.ID, orDash(t.Instrument), t.Lots, t.Result.StringFixed(2), t.Notes)
	}
	fmt.Fprintf(w, "\t\t\t\t%s\t(%d trades)\n", total.StringFixed(2), len(trades))
	return w.Flush()
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime reads a flag time; values without a zone are local time.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
