package commands

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...commands.Version=v1.2.3".
var Version = "dev"

type globalFlags struct {
	dir   string
	actor string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "propledger",
		Short:   "Double-entry ledger for real-estate portfolios",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.dir, "dir", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&g.actor, "actor", "cli", "name recorded in the audit trail")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(g),
		newPeriodCommand(g),
		newJournalCommand(g),
		newRecordCommand(g),
		newInvoiceCommand(g),
		newPaymentCommand(g),
		newBudgetCommand(g),
		newReportCommand(g),
		newAuditCommand(g),
	)

	return rootCmd
}
