package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/report"
)

func newReportCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Financial statements",
	}
	cmd.AddCommand(
		newTrialBalanceCommand(g),
		newProfitAndLossCommand(g),
		newBalanceSheetCommand(g),
		newDashboardCommand(g),
	)
	return cmd
}

func newTrialBalanceCommand(g *globalFlags) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Debit and credit balances of every active account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDate(asOf, noDate)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				tb, err := a.report.TrialBalance(ctx, at)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Trial balance as of %s\n\n", asOfLabel(at))
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tACCOUNT\tDEBIT\tCREDIT")
				for _, r := range tb.Rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Account.Code, r.Account.Name, money(r.Debit), money(r.Credit))
				}
				fmt.Fprintf(tw, "\tTotal\t%s\t%s\n", money(tb.TotalDebit), money(tb.TotalCredit))
				if err := tw.Flush(); err != nil {
					return err
				}
				if !tb.IsBalanced() {
					return fmt.Errorf("trial balance is off by %s", money(tb.TotalDebit.Sub(tb.TotalCredit)))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "balance date (default all entries)")
	return cmd
}

func asOfLabel(at time.Time) string {
	if at.IsZero() {
		return "latest entry"
	}
	return formatDate(at)
}

func newProfitAndLossCommand(g *globalFlags) *cobra.Command {
	var (
		from, to string
		property uint
	)
	cmd := &cobra.Command{
		Use:     "pnl",
		Aliases: []string{"profit-and-loss", "income-statement"},
		Short:   "Revenue against expenses over a date range",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDate(from, noDate)
			if err != nil {
				return err
			}
			t, err := parseDate(to, noDate)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				pl, err := a.report.ProfitAndLoss(ctx, report.ProfitAndLossParams{From: f, To: t, PropertyID: optionalID(property)})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Profit and loss, %s to %s\n\n", formatDate(f), formatDate(t))
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				section(tw, "Revenue", pl.Revenue, pl.TotalRevenue)
				section(tw, "Expenses", pl.Expenses, pl.TotalExpenses)
				fmt.Fprintf(tw, "Net income\t\t%s\n", money(pl.NetIncome()))
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date")
	cmd.Flags().StringVar(&to, "to", "", "last date")
	cmd.Flags().UintVar(&property, "property", 0, "only entries of this property")
	return cmd
}

func section(w io.Writer, title string, rows []report.AmountRow, total decimal.Decimal) {
	fmt.Fprintf(w, "%s\t\t\n", title)
	for _, r := range rows {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", r.Account.Code, r.Account.Name, money(r.Amount))
	}
	fmt.Fprintf(w, "Total %s\t\t%s\n\t\t\n", title, money(total))
}

func newBalanceSheetCommand(g *globalFlags) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets, liabilities and equity at a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDate(asOf, noDate)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				bs, err := a.report.BalanceSheet(ctx, at)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Balance sheet as of %s\n\n", asOfLabel(at))
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				section(tw, "Assets", bs.Assets, bs.TotalAssets)
				section(tw, "Liabilities", bs.Liabilities, bs.TotalLiabilities)
				section(tw, "Equity", bs.Equity, bs.TotalEquity)
				fmt.Fprintf(tw, "Liabilities and equity\t\t%s\n", money(bs.TotalLiabilitiesAndEquity()))
				if err := tw.Flush(); err != nil {
					return err
				}
				if !bs.IsBalanced() {
					return fmt.Errorf("balance sheet is off by %s", money(bs.TotalAssets.Sub(bs.TotalLiabilitiesAndEquity())))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "balance date (default all entries)")
	return cmd
}

func newDashboardCommand(g *globalFlags) *cobra.Command {
	var on string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Last 30 days of income, cash on hand and open invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(on, today())
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				dash, err := a.report.Dashboard(ctx, d)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "Period\t%s to %s\n", formatDate(dash.Since), formatDate(dash.Today))
				fmt.Fprintf(tw, "Revenue\t%s\n", money(dash.Revenue))
				fmt.Fprintf(tw, "Expenses\t%s\n", money(dash.Expenses))
				fmt.Fprintf(tw, "Net income\t%s\n", money(dash.NetIncome))
				fmt.Fprintf(tw, "Cash\t%s\n", money(dash.CashBalance))
				fmt.Fprintf(tw, "Outstanding\t%s (%d invoices, %d overdue)\n", money(dash.Outstanding), dash.OutstandingCount, dash.OverdueCount)
				if err := tw.Flush(); err != nil {
					return err
				}
				if len(dash.RecentInvoices) > 0 {
					fmt.Fprintln(out, "\nRecent invoices")
					if err := printInvoices(out, dash.RecentInvoices); err != nil {
						return err
					}
				}
				if len(dash.RecentPayments) > 0 {
					fmt.Fprintln(out, "\nRecent payments")
					return printPayments(out, dash.RecentPayments)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&on, "date", "", "dashboard date (default today)")
	return cmd
}
