package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/model"
	"github.com/propledger/propledger/internal/postings"
)

// newRecordCommand posts the automated entries of events raised outside the
// ledger: rent and sale receipts and maintenance costs.
func newRecordCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Post automated entries for rent, sales and maintenance events",
	}
	cmd.AddCommand(
		newRecordPaymentCommand(g, "rent", "Post a rent receipt", (*postings.Poster).RentPayment),
		newRecordPaymentCommand(g, "sale", "Post a property sale receipt", (*postings.Poster).SalesPayment),
		newRecordMaintenanceCommand(g),
	)
	return cmd
}

type paymentPoster func(*postings.Poster, context.Context, postings.PaymentEvent) (journal.AutomatedResult, error)

func newRecordPaymentCommand(g *globalFlags, use, short string, post paymentPoster) *cobra.Command {
	var (
		receipt, date, amount string
		method, desc          string
		property, contract    uint
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
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
				res, err := post(a.poster, ctx, postings.PaymentEvent{
					ReceiptNumber: receipt,
					Date:          d,
					Amount:        amt,
					Method:        model.PaymentMethod(method),
					PropertyID:    optionalID(property),
					ContractID:    optionalID(contract),
					Description:   desc,
					CreatedBy:     a.actor,
				})
				if err != nil {
					return err
				}
				printAutomated(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&receipt, "receipt", "", "receipt number of the source event (required)")
	cmd.Flags().StringVar(&date, "date", "", "payment date (default today)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (required)")
	cmd.Flags().StringVar(&method, "method", string(model.MethodBankTransfer), "how the money was received")
	cmd.Flags().StringVar(&desc, "description", "", "entry description")
	cmd.Flags().UintVar(&property, "property", 0, "property")
	cmd.Flags().UintVar(&contract, "contract", 0, "contract")
	_ = cmd.MarkFlagRequired("receipt")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newRecordMaintenanceCommand(g *globalFlags) *cobra.Command {
	var (
		request, date, amount string
		method, desc          string
		property              uint
	)
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Post a maintenance cost",
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
				res, err := a.poster.MaintenanceCost(ctx, postings.MaintenanceEvent{
					RequestNumber: request,
					Date:          d,
					Amount:        amt,
					Method:        model.PaymentMethod(method),
					PropertyID:    optionalID(property),
					Description:   desc,
					CreatedBy:     a.actor,
				})
				if err != nil {
					return err
				}
				printAutomated(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&request, "request", "", "maintenance request number (required)")
	cmd.Flags().StringVar(&date, "date", "", "cost date (default today)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (required)")
	cmd.Flags().StringVar(&method, "method", string(model.MethodCash), "how the cost was paid")
	cmd.Flags().StringVar(&desc, "description", "", "entry description")
	cmd.Flags().UintVar(&property, "property", 0, "property")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func printAutomated(w io.Writer, res journal.AutomatedResult) {
	if !res.Created {
		fmt.Fprintf(w, "Already recorded as %s\n", res.Entry.EntryNumber)
		return
	}
	fmt.Fprintf(w, "Posted %s (%s)\n", res.Entry.EntryNumber, res.Entry.Reference)
}
