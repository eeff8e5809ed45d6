package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/budget"
)

func newBudgetCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Plan spending and track utilization",
	}
	cmd.AddCommand(newBudgetAddCommand(g), newBudgetStatusCommand(g))
	return cmd
}

func newBudgetAddCommand(g *globalFlags) *cobra.Command {
	var (
		name, account, amount, notes string
		periodID, property           uint
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Budget an account for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount(amount)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				accountID, err := a.accountID(ctx, account)
				if err != nil {
					return err
				}
				b, err := a.budget.Create(ctx, budget.CreateParams{
					Name:       name,
					PeriodID:   periodID,
					AccountID:  accountID,
					Amount:     amt,
					PropertyID: optionalID(property),
					Notes:      notes,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added budget %d %q of %s\n", b.ID, b.Name, money(b.BudgetedAmount))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "budget name (required)")
	cmd.Flags().UintVar(&periodID, "period", 0, "financial period id (required)")
	cmd.Flags().StringVar(&account, "account", "", "account code (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "budgeted amount (required)")
	cmd.Flags().UintVar(&property, "property", 0, "limit to one property")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	for _, f := range []string{"name", "period", "account", "amount"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newBudgetStatusCommand(g *globalFlags) *cobra.Command {
	var periodID uint
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget utilization and raise alerts for budgets over threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				statuses, err := a.budget.Evaluate(ctx, periodID)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPERIOD\tACCOUNT\tBUDGETED\tSPENT\tREMAINING\tUSED %\tLEVEL")
				for _, st := range statuses {
					b := st.Budget
					periodName, accountCode := "", ""
					if b.Period != nil {
						periodName = b.Period.Name
					}
					if b.Account != nil {
						accountCode = b.Account.Code
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%.1f\t%s\n", b.ID, b.Name, periodName, accountCode,
						money(b.BudgetedAmount), money(st.Spent), money(st.Remaining), st.Utilization, st.Level)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().UintVar(&periodID, "period", 0, "only budgets of this period")
	return cmd
}
