package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/billing"
	"github.com/propledger/propledger/internal/model"
)

func newInvoiceCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Create, issue and track invoices",
	}
	cmd.AddCommand(
		newInvoiceCreateCommand(g),
		newInvoiceIssueCommand(g),
		newInvoiceCancelCommand(g),
		newInvoiceListCommand(g),
		newInvoiceShowCommand(g),
		newInvoiceOutstandingCommand(g),
	)
	return cmd
}

func newInvoiceCreateCommand(g *globalFlags) *cobra.Command {
	var (
		invoiceType, date, due string
		billTo, notes          string
		discount               string
		property, contract     uint
		items                  []string
		issue                  bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft invoice",
		Long: `Create a draft invoice from --item flags of the form
DESCRIPTION:QUANTITY:UNIT_PRICE[:TAX_RATE[:DISCOUNT_RATE]]. Rates are percentages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(date, today())
			if err != nil {
				return err
			}
			dueDate, err := parseDate(due, noDate)
			if err != nil {
				return err
			}
			disc, err := parseAmount(discount)
			if err != nil {
				return err
			}
			params := billing.InvoiceParams{
				Type:       model.InvoiceType(invoiceType),
				Date:       d,
				DueDate:    dueDate,
				PropertyID: optionalID(property),
				ContractID: optionalID(contract),
				BillTo:     billTo,
				Discount:   disc,
				Notes:      notes,
				CreatedBy:  g.actor,
			}
			for _, raw := range items {
				it, err := parseItem(raw)
				if err != nil {
					return err
				}
				params.Items = append(params.Items, it)
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				inv, err := a.billing.CreateInvoice(ctx, params)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created %s for %s, due %s\n", inv.InvoiceNumber, money(inv.TotalAmount), formatDate(inv.DueDate))
				if !issue {
					return nil
				}
				inv, err = a.billing.Issue(ctx, inv.ID, a.actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Issued %s\n", inv.InvoiceNumber)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&invoiceType, "type", string(model.InvoiceTypeRent), "rent, sale, maintenance, service or other")
	cmd.Flags().StringVar(&date, "date", "", "invoice date (default today)")
	cmd.Flags().StringVar(&due, "due", "", "due date (default date plus the configured due days)")
	cmd.Flags().StringVar(&billTo, "bill-to", "", "customer or tenant")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	cmd.Flags().StringVar(&discount, "discount", "", "flat invoice discount")
	cmd.Flags().UintVar(&property, "property", 0, "property billed for")
	cmd.Flags().UintVar(&contract, "contract", 0, "contract billed under")
	cmd.Flags().StringArrayVar(&items, "item", nil, "DESCRIPTION:QTY:PRICE[:TAX[:DISCOUNT]], repeatable")
	cmd.Flags().BoolVar(&issue, "issue", false, "issue the invoice right away")
	return cmd
}

func parseItem(raw string) (billing.ItemParams, error) {
	parts, err := splitFields(raw, 3, 5, "item")
	if err != nil {
		return billing.ItemParams{}, err
	}
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	it := billing.ItemParams{Description: parts[0]}
	for i, dst := range []*decimal.Decimal{&it.Quantity, &it.UnitPrice, &it.TaxRate, &it.DiscountRate} {
		if *dst, err = parseAmount(parts[i+1]); err != nil {
			return billing.ItemParams{}, fmt.Errorf("item %q: %w", parts[0], err)
		}
	}
	return it, nil
}

func newInvoiceIssueCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <number>",
		Short: "Issue a draft invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				inv, err := a.billing.GetInvoiceByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				inv, err = a.billing.Issue(ctx, inv.ID, a.actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Issued %s\n", inv.InvoiceNumber)
				return nil
			})
		},
	}
}

func newInvoiceCancelCommand(g *globalFlags) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <number>",
		Short: "Cancel an invoice that has no payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				inv, err := a.billing.GetInvoiceByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				inv, err = a.billing.Cancel(ctx, inv.ID, reason, a.actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", inv.InvoiceNumber)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the invoice is cancelled")
	return cmd
}

func newInvoiceListCommand(g *globalFlags) *cobra.Command {
	var (
		status, invoiceType string
		from, to            string
		property            uint
		limit               int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices, newest first",
		Args:  cobra.NoArgs,
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
				invoices, err := a.billing.ListInvoices(ctx, billing.InvoiceFilter{
					Status:     model.InvoiceStatus(status),
					Type:       model.InvoiceType(invoiceType),
					PropertyID: optionalID(property),
					From:       f,
					To:         t,
					Limit:      limit,
				})
				if err != nil {
					return err
				}
				return printInvoices(cmd.OutOrStdout(), invoices)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "draft, issued, partial, paid or cancelled")
	cmd.Flags().StringVar(&invoiceType, "type", "", "only invoices of this type")
	cmd.Flags().StringVar(&from, "from", "", "first invoice date")
	cmd.Flags().StringVar(&to, "to", "", "last invoice date")
	cmd.Flags().UintVar(&property, "property", 0, "only invoices of this property")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum invoices")
	return cmd
}

func printInvoices(w io.Writer, invoices []model.Invoice) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tDATE\tDUE\tTYPE\tBILL TO\tTOTAL\tPAID\tBALANCE\tSTATUS")
	for _, inv := range invoices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", inv.InvoiceNumber, formatDate(inv.InvoiceDate),
			formatDate(inv.DueDate), inv.InvoiceType, inv.BillTo, money(inv.TotalAmount), money(inv.PaidAmount),
			money(inv.Balance()), inv.Status)
	}
	return tw.Flush()
}

func newInvoiceShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <number>",
		Short: "Show an invoice with its items and payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				inv, err := a.billing.GetInvoiceByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				payments, err := a.billing.ListPayments(ctx, billing.PaymentFilter{InvoiceID: &inv.ID})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s  [%s]\nDate %s, due %s\n", inv.InvoiceNumber, inv.InvoiceType, inv.Status,
					formatDate(inv.InvoiceDate), formatDate(inv.DueDate))
				if inv.BillTo != "" {
					fmt.Fprintf(out, "Bill to: %s\n", inv.BillTo)
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "\nDESCRIPTION\tQTY\tPRICE\tTAX %\tDISC %\tTOTAL")
				for _, it := range inv.Items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", it.Description, it.Quantity.String(), money(it.UnitPrice),
						it.TaxRate.String(), it.DiscountRate.String(), money(it.Total()))
				}
				fmt.Fprintf(tw, "\t\t\t\tSubtotal\t%s\n", money(inv.Subtotal))
				fmt.Fprintf(tw, "\t\t\t\tTax\t%s\n", money(inv.TaxAmount))
				fmt.Fprintf(tw, "\t\t\t\tDiscount\t%s\n", money(inv.DiscountAmount))
				fmt.Fprintf(tw, "\t\t\t\tTotal\t%s\n", money(inv.TotalAmount))
				fmt.Fprintf(tw, "\t\t\t\tPaid\t%s\n", money(inv.PaidAmount))
				fmt.Fprintf(tw, "\t\t\t\tBalance\t%s\n", money(inv.Balance()))
				if err := tw.Flush(); err != nil {
					return err
				}
				if len(payments) > 0 {
					fmt.Fprintln(out)
					return printPayments(out, payments)
				}
				return nil
			})
		},
	}
}

func newInvoiceOutstandingCommand(g *globalFlags) *cobra.Command {
	var overdueOnly bool
	var asOf string
	cmd := &cobra.Command{
		Use:   "outstanding",
		Short: "List issued and partially paid invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDate(asOf, today())
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				if overdueOnly {
					invoices, err := a.billing.Overdue(ctx, at)
					if err != nil {
						return err
					}
					return printInvoices(cmd.OutOrStdout(), invoices)
				}
				invoices, total, err := a.billing.Outstanding(ctx)
				if err != nil {
					return err
				}
				if err := printInvoices(cmd.OutOrStdout(), invoices); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d invoices, %s outstanding\n", len(invoices), money(total))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overdueOnly, "overdue", false, "only invoices past their due date")
	cmd.Flags().StringVar(&asOf, "as-of", "", "date overdue is judged at (default today)")
	return cmd
}
