package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/spf13/cobra"
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Show or validate drawdown tier tables",
	Long: `Drawdown rules per account size live in a tier table. The built-in table
is used unless tiers_file (or PROPJOURNAL_TIERS_FILE) names a YAML or JSON file.

Subcommands:
  list      - Print the active tier table
  validate  - Check a tier file
  dump      - Write the active table as YAML, a starting point for edits

Examples:
  propjournal tiers list
  propjournal tiers validate my-tiers.yaml
  propjournal tiers dump > my-tiers.yaml`,
}

var tiersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the active tier table",
	Args:  cobra.NoArgs,
	RunE:  runTiersList,
}

var tiersValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a tier file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTiersValidate,
}

var tiersDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write the active tier table as YAML",
	Args:  cobra.NoArgs,
	RunE:  runTiersDump,
}

func init() {
	rootCmd.AddCommand(tiersCmd)
	tiersCmd.AddCommand(tiersListCmd)
	tiersCmd.AddCommand(tiersValidateCmd)
	tiersCmd.AddCommand(tiersDumpCmd)
}

func runTiersList(cmd *cobra.Command, args []string) error {
	tiers, err := loadTiers()
	if err != nil {
		return err
	}
	return printTiers(cmd, tiers)
}

func runTiersValidate(cmd *cobra.Command, args []string) error {
	tiers, err := apex.LoadTiers(args[0])
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Tier table valid: %s (%d tiers)\n", args[0], len(tiers))
	return printTiers(cmd, tiers)
}

func runTiersDump(cmd *cobra.Command, args []string) error {
	tiers, err := loadTiers()
	if err != nil {
		return err
	}
	data, err := tiers.Marshal()
	if err != nil {
		return fmt.Errorf("marshal tiers: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func printTiers(cmd *cobra.Command, tiers apex.TierTable) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FROM BALANCE\tMAX DRAWDOWN\tLOCK OFFSET\tTERMINAL AT")
	for _, t := range tiers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%gx dd\n",
			t.Threshold.StringFixed(0), t.DDMax.StringFixed(2), t.LockOffset.StringFixed(2), t.Phase4Multiplier)
	}
	return w.Flush()
}
