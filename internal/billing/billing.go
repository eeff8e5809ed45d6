package billing

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/metrics"
	"github.com/propledger/propledger/internal/model"
	"github.com/propledger/propledger/internal/postings"
	"github.com/propledger/propledger/internal/sequence"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNoItems            = errors.New("invoice needs at least one item")
	ErrInvalidTransition  = errors.New("invalid invoice status change")
	ErrInvoiceNotPayable  = errors.New("invoice does not accept payments")
	ErrOverpayment        = errors.New("payment exceeds invoice balance")
	ErrInvoiceHasPayments = errors.New("invoice has payments")
)

// Ledger references of billing entries.
const (
	RefInvoice     = "INVOICE-"
	RefInvoiceVoid = "INVOICE-VOID-"
	RefPayment     = "PAYMENT-"
)

var validate = validator.New()

// Options configures a Service. Zero values are usable: overpayments are
// rejected and nothing is posted to the ledger.
type Options struct {
	Overpayment    string
	PostToLedger   bool
	DefaultDueDays int
	Sequencer      *sequence.Sequencer
	Bus            *events.Bus
	Metrics        *metrics.Ledger
	Journal        *journal.Service
	Poster         *postings.Poster
}

// Service manages invoices and the payments applied to them.
type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	opts Options
}

// NewService creates a billing Service. When PostToLedger is set without a
// Journal or Poster, defaults bound to db are created.
func NewService(db *gorm.DB, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Sequencer == nil {
		opts.Sequencer = sequence.New(sequence.DefaultMaxAttempts)
	}
	if opts.Overpayment == "" {
		opts.Overpayment = config.OverpaymentReject
	}
	if opts.PostToLedger && opts.Journal == nil {
		opts.Journal = journal.NewService(db, log, journal.Options{
			Sequencer: opts.Sequencer,
			Bus:       opts.Bus,
			Metrics:   opts.Metrics,
		})
	}
	if opts.PostToLedger && opts.Poster == nil {
		opts.Poster = postings.New(db, opts.Journal, nil, log)
	}
	return &Service{db: db, log: log.Named("billing"), opts: opts}
}

// Totals are the computed amounts of an invoice.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums items into invoice totals. invoiceDiscount is a flat
// amount on top of the item discounts. Each total is rounded to cents.
func ComputeTotals(items []model.InvoiceItem, invoiceDiscount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	discount := invoiceDiscount
	for _, it := range items {
		subtotal = subtotal.Add(it.Amount())
		tax = tax.Add(it.Tax())
		discount = discount.Add(it.Discount())
	}
	t := Totals{
		Subtotal: subtotal.Round(2),
		Tax:      tax.Round(2),
		Discount: discount.Round(2),
	}
	t.Total = t.Subtotal.Add(t.Tax).Sub(t.Discount)
	return t
}

// ApplyPayment adds amount to the invoice's paid amount and derives its
// status: paid once the total is covered, partial while something but not
// everything is paid. It does not check policy; RecordPayment does.
func ApplyPayment(inv *model.Invoice, amount decimal.Decimal) {
	inv.PaidAmount = inv.PaidAmount.Add(amount)
	switch {
	case inv.PaidAmount.GreaterThanOrEqual(inv.TotalAmount):
		inv.Status = model.InvoicePaid
	case inv.PaidAmount.IsPositive():
		inv.Status = model.InvoicePartial
	}
}

var hundred = decimal.NewFromInt(100)

func wholeCents(d decimal.Decimal) bool {
	return d.Mul(hundred).Equal(d.Mul(hundred).Truncate(0))
}

func checkAmount(what string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidAmount, what, d)
	}
	if !wholeCents(d) {
		return fmt.Errorf("%w: %s %s has more than 2 decimal places", ErrInvalidAmount, what, d)
	}
	return nil
}
