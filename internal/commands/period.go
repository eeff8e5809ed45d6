package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/model"
	"github.com/propledger/propledger/internal/period"
)

func newPeriodCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Manage financial periods",
	}
	cmd.AddCommand(newPeriodListCommand(g), newPeriodAddCommand(g), newPeriodCloseCommand(g))
	return cmd
}

func newPeriodListCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List financial periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				periods, err := a.periods.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSTART\tEND\tSTATUS")
				for _, p := range periods {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, formatDate(p.StartDate), formatDate(p.EndDate), periodStatus(p))
				}
				return tw.Flush()
			})
		},
	}
}

func periodStatus(p model.FinancialPeriod) string {
	if p.IsClosed {
		return "closed"
	}
	return "open"
}

func newPeriodAddCommand(g *globalFlags) *cobra.Command {
	var name, start, end, notes string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an open financial period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseDate(start, time.Time{})
			if err != nil {
				return err
			}
			e, err := parseDate(end, time.Time{})
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				p, err := a.periods.Create(ctx, period.CreateParams{Name: name, Start: s, End: e, Notes: notes})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added period %d %q (%s to %s)\n", p.ID, p.Name, formatDate(p.StartDate), formatDate(p.EndDate))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "period name (required)")
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newPeriodCloseCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Close a financial period to further posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uintArg(args[0], "period id")
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				p, err := a.periods.Close(ctx, id, a.actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Closed period %q\n", p.Name)
				return nil
			})
		},
	}
}
