package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/billing"
	"github.com/propledger/propledger/internal/importer"
	"github.com/propledger/propledger/internal/model"
)

func newPaymentCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record receipts and payments",
	}
	cmd.AddCommand(newPaymentRecordCommand(g), newPaymentListCommand(g), newPaymentImportCommand(g))
	return cmd
}

func newPaymentRecordCommand(g *globalFlags) *cobra.Command {
	var (
		paymentType, date, method string
		amount, invoice           string
		reference, notes          string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record money received or paid out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(date, today())
			if err != nil {
				return err
			}
			amt, err := parseAmount(amount)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				params := billing.PaymentParams{
					Type:      model.PaymentType(paymentType),
					Date:      d,
					Method:    model.PaymentMethod(method),
					Amount:    amt,
					Reference: reference,
					Notes:     notes,
					CreatedBy: a.actor,
				}
				if invoice != "" {
					inv, err := a.billing.GetInvoiceByNumber(ctx, invoice)
					if err != nil {
						return err
					}
					params.InvoiceID = &inv.ID
				}
				res, err := a.billing.RecordPayment(ctx, params)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Recorded %s for %s\n", res.Payment.PaymentNumber, money(res.Payment.Amount))
				if res.Invoice != nil {
					fmt.Fprintf(out, "%s is %s, balance %s\n", res.Invoice.InvoiceNumber, res.Invoice.Status, money(res.Invoice.Balance()))
				}
				if res.Entry != nil {
					fmt.Fprintf(out, "Posted %s\n", res.Entry.EntryNumber)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&paymentType, "type", string(model.PaymentTypeReceipt), "receipt or payment")
	cmd.Flags().StringVar(&date, "date", "", "payment date (default today)")
	cmd.Flags().StringVar(&method, "method", string(model.MethodBankTransfer), "cash, bank_transfer, check, credit_card, mortgage or online")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (required)")
	cmd.Flags().StringVar(&invoice, "invoice", "", "invoice number the payment settles")
	cmd.Flags().StringVar(&reference, "reference", "", "external reference, e.g. a bank transaction ID")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPaymentListCommand(g *globalFlags) *cobra.Command {
	var (
		paymentType, method string
		from, to            string
		limit               int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments, newest first",
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
				payments, err := a.billing.ListPayments(ctx, billing.PaymentFilter{
					Type:   model.PaymentType(paymentType),
					Method: model.PaymentMethod(method),
					From:   f,
					To:     t,
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				return printPayments(cmd.OutOrStdout(), payments)
			})
		},
	}
	cmd.Flags().StringVar(&paymentType, "type", "", "receipt or payment")
	cmd.Flags().StringVar(&method, "method", "", "only payments made this way")
	cmd.Flags().StringVar(&from, "from", "", "first payment date")
	cmd.Flags().StringVar(&to, "to", "", "last payment date")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum payments")
	return cmd
}

func printPayments(w io.Writer, payments []model.Payment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tDATE\tTYPE\tMETHOD\tAMOUNT\tREFERENCE")
	for _, p := range payments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.PaymentNumber, formatDate(p.PaymentDate), p.PaymentType,
			p.PaymentMethod, money(p.Amount), p.ReferenceNumber)
	}
	return tw.Flush()
}

func newPaymentImportCommand(g *globalFlags) *cobra.Command {
	var format string
	var keep bool
	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Record receipts from CSV files",
		Long: `Record receipts from CSV files. Without arguments every CSV in the project's
import/ directory is read and moved to import/processed/ once all its rows
were applied or already recorded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := importer.DefaultRegistry()
			if registry.Get(format) == nil {
				return fmt.Errorf("%w: %q (known: %s)", importer.ErrUnknownFormat, format, strings.Join(registry.Formats(), ", "))
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				importDir := filepath.Join(a.dir, "import")
				paths := args
				scanned := len(args) == 0
				if scanned {
					files, err := importer.Scan(importDir)
					if err != nil {
						return err
					}
					for _, f := range files {
						paths = append(paths, f.Path)
					}
				}
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
					return nil
				}

				out := cmd.OutOrStdout()
				for _, path := range paths {
					receipts, err := registry.ParseFile(format, path)
					if err != nil {
						return err
					}
					sum := importer.Apply(ctx, a.billing, receipts, a.actor, a.log)
					fmt.Fprintf(out, "%s: %d applied, %d already recorded, %d failed\n",
						filepath.Base(path), sum.Applied, sum.Duplicate, sum.Failed)
					for _, r := range sum.Results {
						if r.Outcome == importer.OutcomeFailed {
							fmt.Fprintf(out, "  row %d: %v\n", r.Receipt.Row, r.Err)
						}
					}
					if scanned && !keep && sum.Failed == 0 {
						if err := importer.MarkProcessed(importDir, filepath.Base(path)); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "receipts",
		"file format: "+strings.Join(importer.DefaultRegistry().Formats(), " or "))
	cmd.Flags().BoolVar(&keep, "keep", false, "leave scanned files in import/")
	return cmd
}
