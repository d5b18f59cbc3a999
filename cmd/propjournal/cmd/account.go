package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage funded accounts",
	Long: `Register and inspect funded accounts.

Subcommands:
  add       - Register a new account
  list      - List registered accounts
  set-peak  - Record a high-water mark carried over from elsewhere

Examples:
  propjournal account add apex-1 --name "Apex 150k #1" --initial 150000
  propjournal account list
  propjournal account set-peak apex-1 152350.50`,
}

var accountAddCmd = &cobra.Command{
	Use:   "add <account-id>",
	Short: "Register a new account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountAdd,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountList,
}

var accountSetPeakCmd = &cobra.Command{
	Use:   "set-peak <account-id> <peak>",
	Short: "Record a prior high-water mark",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountSetPeak,
}

var (
	accountName      string
	accountInitial   string
	accountPriorPeak string
	accountPhase     string
)

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountSetPeakCmd)

	accountAddCmd.Flags().StringVar(&accountName, "name", "", "display name (defaults to the id)")
	accountAddCmd.Flags().StringVar(&accountInitial, "initial", "", "initial balance (required)")
	accountAddCmd.Flags().StringVar(&accountPriorPeak, "prior-peak", "", "high-water mark carried over from before this journal")
	accountAddCmd.Flags().StringVar(&accountPhase, "phase", string(apex.PhaseBuilding), "entry phase label")
	accountAddCmd.MarkFlagRequired("initial")
}

func runAccountAdd(cmd *cobra.Command, args []string) error {
	initial, err := decimal.NewFromString(accountInitial)
	if err != nil {
		return fmt.Errorf("bad --initial: %w", err)
	}

	a := apex.Account{
		ID:             args[0],
		Name:           accountName,
		InitialBalance: initial,
		EntryPhase:     apex.ParsePhase(accountPhase),
		CreatedAt:      time.Now().UTC(),
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	if accountPhase != "" && a.EntryPhase == "" {
		return fmt.Errorf("bad --phase %q", accountPhase)
	}
	if accountPriorPeak != "" {
		p, err := decimal.NewFromString(accountPriorPeak)
		if err != nil {
			return fmt.Errorf("bad --prior-peak: %w", err)
		}
		a.PriorPeak = &p
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateAccount(cmd.Context(), a); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created account %s (%s, initial %s)\n", a.ID, a.Name, a.InitialBalance.StringFixed(2))
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	accounts, err := store.ListAccounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tINITIAL\tPRIOR PEAK\tPHASE\tCREATED")
	for _, a := range accounts {
		peak := "-"
		if a.PriorPeak != nil {
			peak = a.PriorPeak.StringFixed(2)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Name, a.InitialBalance.StringFixed(2), peak, orDash(string(a.EntryPhase)), a.CreatedAt.UTC().Format("2006-01-02"))
	}
	return w.Flush()
}

func runAccountSetPeak(cmd *cobra.Command, args []string) error {
	peak, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("bad peak: %w", err)
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.UpdatePriorPeak(cmd.Context(), args[0], peak); err != nil {
		return fmt.Errorf("set peak: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Prior peak for %s set to %s\n", args[0], peak.StringFixed(2))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
