package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/audit"
)

func newAuditCommand(g *globalFlags) *cobra.Command {
	var (
		action, subject, since string
		limit                  int
		csvOut                 bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseDate(since, noDate)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				records, err := audit.List(ctx, a.db, audit.Filter{Action: action, Subject: subject, Since: s, Limit: limit})
				if err != nil {
					return err
				}
				if csvOut {
					return audit.WriteCSV(cmd.OutOrStdout(), records)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tACTOR\tACTION\tSUBJECT\tDETAILS")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Timestamp.Format(time.RFC3339), r.Actor, r.Action, r.Subject, r.Details)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "only this action, e.g. entry_posted")
	cmd.Flags().StringVar(&subject, "subject", "", "only records about this document number")
	cmd.Flags().StringVar(&since, "since", "", "only records from this date on")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records")
	cmd.Flags().BoolVar(&csvOut, "csv", false, "write CSV instead of a table")
	return cmd
}
