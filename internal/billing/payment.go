package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/audit"
	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/model"
)

// PaymentParams describes money received (receipt) or paid out (payment),
// optionally settling an invoice.
type PaymentParams struct {
	Type      model.PaymentType   `validate:"required,oneof=receipt payment"`
	Date      time.Time           `validate:"required"`
	Method    model.PaymentMethod `validate:"required,oneof=cash bank_transfer check credit_card mortgage online"`
	Amount    decimal.Decimal
	InvoiceID *uint
	Reference string `validate:"max=100"`
	Notes     string
	CreatedBy string
}

// PaymentResult is the committed outcome of RecordPayment. Invoice and
// Entry are nil when no invoice was settled or nothing was posted.
type PaymentResult struct {
	Payment model.Payment
	Invoice *model.Invoice
	Entry   *model.JournalEntry
}

// RecordPayment stores a payment, applies it to its invoice and, with
// ledger posting enabled, records its journal entry. All writes share one
// transaction; the invoice row is locked while its paid amount changes.
func (s *Service) RecordPayment(ctx context.Context, p PaymentParams) (PaymentResult, error) {
	if err := validate.Struct(p); err != nil {
		return PaymentResult{}, fmt.Errorf("invalid payment: %w", err)
	}
	if err := checkAmount("payment amount", p.Amount); err != nil {
		return PaymentResult{}, err
	}

	var (
		res     PaymentResult
		posted  *journal.AutomatedResult
		pending []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv *model.Invoice
		if p.InvoiceID != nil {
			locked, err := lockInvoice(ctx, tx, *p.InvoiceID)
			if err != nil {
				return err
			}
			if !locked.Status.CanApplyPayment() {
				return fmt.Errorf("%w: %s is %s", ErrInvoiceNotPayable, locked.InvoiceNumber, locked.Status)
			}
			if s.opts.Overpayment != config.OverpaymentAllow && p.Amount.GreaterThan(locked.Balance()) {
				return fmt.Errorf("%w: %s balance %s, payment %s", ErrOverpayment,
					locked.InvoiceNumber, locked.Balance().StringFixed(2), p.Amount.StringFixed(2))
			}
			inv = &locked
		}

		date := model.DateOf(p.Date)
		number, err := s.opts.Sequencer.Number(ctx, tx, p.Type.NumberPrefix(), date.Year())
		if err != nil {
			return fmt.Errorf("numbering payment: %w", err)
		}
		pay := model.Payment{
			PaymentNumber:   number,
			PaymentType:     p.Type,
			PaymentDate:     date,
			PaymentMethod:   p.Method,
			Amount:          p.Amount,
			InvoiceID:       p.InvoiceID,
			ReferenceNumber: p.Reference,
			Notes:           p.Notes,
			CreatedBy:       p.CreatedBy,
		}
		if err := tx.Create(&pay).Error; err != nil {
			return fmt.Errorf("creating payment %s: %w", number, err)
		}

		details := pay.PaymentType.NumberPrefix() + " " + pay.Amount.StringFixed(2)
		if inv != nil {
			ApplyPayment(inv, pay.Amount)
			err := tx.Model(inv).Updates(map[string]any{
				"paid_amount": inv.PaidAmount,
				"status":      inv.Status,
			}).Error
			if err != nil {
				return fmt.Errorf("applying %s to %s: %w", number, inv.InvoiceNumber, err)
			}
			details += " on " + inv.InvoiceNumber + " now " + string(inv.Status)
		}
		if err := audit.Append(ctx, tx, audit.Record(p.CreatedBy, audit.ActionPaymentRecorded, number, details)); err != nil {
			return err
		}

		res = PaymentResult{Payment: pay, Invoice: inv}
		if !s.opts.PostToLedger {
			return nil
		}
		debit, credit := s.paymentAccounts(pay, inv != nil)
		ar, evts, err := s.recordTx(ctx, tx, debit, credit, journal.AutomatedParams{
			Date:        date,
			Description: paymentDescription(pay, inv),
			Reference:   RefPayment + number,
			Amount:      pay.Amount,
			PropertyID:  invoiceProperty(inv),
			ContractID:  invoiceContract(inv),
			CreatedBy:   p.CreatedBy,
		})
		if err != nil {
			return err
		}
		posted, pending = &ar, evts
		res.Entry = &ar.Entry
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	if posted != nil {
		s.opts.Journal.FinishAutomated(ctx, *posted, pending)
	}
	s.opts.Metrics.PaymentApplied(string(res.Payment.PaymentType), res.Payment.Amount)
	fields := []zap.Field{
		zap.String("payment_number", res.Payment.PaymentNumber),
		zap.String("amount", res.Payment.Amount.StringFixed(2)),
	}
	if res.Invoice != nil {
		fields = append(fields,
			zap.String("invoice_number", res.Invoice.InvoiceNumber),
			zap.String("status", string(res.Invoice.Status)),
		)
		s.opts.Bus.Publish(ctx, events.New(events.TypePaymentApplied, events.PaymentApplied{
			PaymentID:     res.Payment.ID,
			PaymentNumber: res.Payment.PaymentNumber,
			InvoiceID:     res.Invoice.ID,
			InvoiceNumber: res.Invoice.InvoiceNumber,
			Amount:        res.Payment.Amount,
			PaidAmount:    res.Invoice.PaidAmount,
			Status:        string(res.Invoice.Status),
		}))
	}
	s.log.Info("payment recorded", fields...)
	return res, nil
}

// paymentAccounts returns the debit and credit account codes of a payment.
// Receipts settle receivables, or customer advances when no invoice is
// named; payments settle payables.
func (s *Service) paymentAccounts(pay model.Payment, invoiced bool) (debit, credit string) {
	method := s.opts.Poster.MethodAccountCode(pay.PaymentMethod)
	if pay.PaymentType == model.PaymentTypePayment {
		return accounts.CodePayable, method
	}
	if invoiced {
		return method, accounts.CodeReceivable
	}
	return method, accounts.CodeCustomerAdvances
}

func paymentDescription(pay model.Payment, inv *model.Invoice) string {
	desc := "Payment " + pay.PaymentNumber
	if pay.PaymentType == model.PaymentTypeReceipt {
		desc = "Receipt " + pay.PaymentNumber
	}
	if inv != nil {
		desc += " for " + inv.InvoiceNumber
	}
	return desc
}

func invoiceProperty(inv *model.Invoice) *uint {
	if inv == nil {
		return nil
	}
	return inv.PropertyID
}

func invoiceContract(inv *model.Invoice) *uint {
	if inv == nil {
		return nil
	}
	return inv.ContractID
}

// PaymentFilter narrows ListPayments. Zero values match everything.
type PaymentFilter struct {
	Type      model.PaymentType
	Method    model.PaymentMethod
	InvoiceID *uint
	From      time.Time
	To        time.Time
	Limit     int
}

// ListPayments returns payments newest first.
func (s *Service) ListPayments(ctx context.Context, f PaymentFilter) ([]model.Payment, error) {
	q := s.db.WithContext(ctx).Order("payment_date DESC, id DESC")
	if f.Type != "" {
		q = q.Where("payment_type = ?", f.Type)
	}
	if f.Method != "" {
		q = q.Where("payment_method = ?", f.Method)
	}
	if f.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *f.InvoiceID)
	}
	if !f.From.IsZero() {
		q = q.Where("payment_date >= ?", model.DateOf(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("payment_date <= ?", model.DateOf(f.To))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []model.Payment
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return out, nil
}

// GetPaymentByNumber returns a payment by its RCV- or PAY- number.
func (s *Service) GetPaymentByNumber(ctx context.Context, number string) (model.Payment, error) {
	var pay model.Payment
	err := s.db.WithContext(ctx).Where("payment_number = ?", number).Take(&pay).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, fmt.Errorf("%w: payment %s", ErrNotFound, number)
	}
	if err != nil {
		return model.Payment{}, fmt.Errorf("loading payment %s: %w", number, err)
	}
	return pay, nil
}

// FindPaymentByReference returns the first payment carrying an external
// reference number, if any.
func (s *Service) FindPaymentByReference(ctx context.Context, ref string) (model.Payment, bool, error) {
	var pay model.Payment
	err := s.db.WithContext(ctx).Where("reference_number = ?", ref).Order("id").Take(&pay).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, false, nil
	}
	if err != nil {
		return model.Payment{}, false, fmt.Errorf("looking up payment reference %s: %w", ref, err)
	}
	return pay, true, nil
}
