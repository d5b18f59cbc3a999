package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the propjournal CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "propjournal version %s\n", version)
		fmt.Fprintln(cmd.OutOrStdout(), "Trade journal and drawdown health tracker for funded accounts")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
