package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/audit"
	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/id"
	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/model"
)

// ItemParams is one line of a new invoice. Rates are percentages.
type ItemParams struct {
	Description  string `validate:"required,max=255"`
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
}

// InvoiceParams holds parameters for a draft invoice. A zero DueDate is
// replaced by Date plus the configured due days.
type InvoiceParams struct {
	Type       model.InvoiceType `validate:"omitempty,oneof=rent sale maintenance service other"`
	Date       time.Time         `validate:"required"`
	DueDate    time.Time
	PropertyID *uint
	ContractID *uint
	BillTo     string `validate:"max=200"`
	Discount   decimal.Decimal
	Notes      string
	CreatedBy  string
	Items      []ItemParams `validate:"dive"`
}

func buildItems(params []ItemParams) ([]model.InvoiceItem, error) {
	items := make([]model.InvoiceItem, len(params))
	for i, p := range params {
		n := i + 1
		if !p.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidAmount, n)
		}
		if p.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %d unit price is negative", ErrInvalidAmount, n)
		}
		for _, rate := range []decimal.Decimal{p.TaxRate, p.DiscountRate} {
			if rate.IsNegative() || rate.GreaterThan(hundred) {
				return nil, fmt.Errorf("%w: item %d rate %s outside 0-100", ErrInvalidAmount, n, rate)
			}
		}
		items[i] = model.InvoiceItem{
			Description:  p.Description,
			Quantity:     p.Quantity,
			UnitPrice:    p.UnitPrice,
			TaxRate:      p.TaxRate,
			DiscountRate: p.DiscountRate,
			Position:     n,
		}
	}
	return items, nil
}

// CreateInvoice stores a draft invoice with its items and computed totals.
func (s *Service) CreateInvoice(ctx context.Context, p InvoiceParams) (model.Invoice, error) {
	if err := validate.Struct(p); err != nil {
		return model.Invoice{}, fmt.Errorf("invalid invoice: %w", err)
	}
	if len(p.Items) == 0 {
		return model.Invoice{}, ErrNoItems
	}
	if p.Discount.IsNegative() {
		return model.Invoice{}, fmt.Errorf("%w: discount is negative", ErrInvalidAmount)
	}
	items, err := buildItems(p.Items)
	if err != nil {
		return model.Invoice{}, err
	}

	totals := ComputeTotals(items, p.Discount)
	if totals.Total.IsNegative() {
		return model.Invoice{}, fmt.Errorf("%w: discounts exceed the invoice amount", ErrInvalidAmount)
	}

	date := model.DateOf(p.Date)
	due := model.DateOf(p.DueDate)
	if p.DueDate.IsZero() {
		due = date.AddDate(0, 0, s.opts.DefaultDueDays)
	}
	if due.Before(date) {
		return model.Invoice{}, fmt.Errorf("invalid invoice: due date %s before invoice date %s",
			due.Format(time.DateOnly), date.Format(time.DateOnly))
	}
	typ := p.Type
	if typ == "" {
		typ = model.InvoiceTypeRent
	}

	inv := model.Invoice{
		InvoiceType:    typ,
		InvoiceDate:    date,
		DueDate:        due,
		PropertyID:     p.PropertyID,
		ContractID:     p.ContractID,
		BillTo:         p.BillTo,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.Tax,
		DiscountAmount: totals.Discount,
		TotalAmount:    totals.Total,
		Status:         model.InvoiceDraft,
		Notes:          p.Notes,
		Items:          items,
		CreatedBy:      p.CreatedBy,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.opts.Sequencer.Number(ctx, tx, id.KindInvoice, date.Year())
		if err != nil {
			return fmt.Errorf("numbering invoice: %w", err)
		}
		inv.InvoiceNumber = number
		if err := tx.Create(&inv).Error; err != nil {
			return fmt.Errorf("creating invoice %s: %w", number, err)
		}
		return nil
	})
	if err != nil {
		return model.Invoice{}, err
	}
	s.log.Debug("invoice created",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.TotalAmount.StringFixed(2)),
	)
	return inv, nil
}

// RevenueAccountCode returns the income account an invoice of type t is
// recognized in.
func RevenueAccountCode(t model.InvoiceType) string {
	switch t {
	case model.InvoiceTypeRent:
		return accounts.CodeRentalIncome
	case model.InvoiceTypeSale:
		return accounts.CodeSalesRevenue
	}
	return accounts.CodeServiceIncome
}

// Issue moves a draft invoice to issued. With ledger posting enabled the
// receivable is recognized against the revenue account of the invoice type.
// An invoice totalling zero has nothing to collect and is issued as paid.
func (s *Service) Issue(ctx context.Context, invoiceID uint, actor string) (model.Invoice, error) {
	var (
		inv     model.Invoice
		posted  *journal.AutomatedResult
		pending []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = lockInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != model.InvoiceDraft {
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, inv.InvoiceNumber, inv.Status)
		}
		inv.Status = model.InvoiceIssued
		if inv.TotalAmount.IsZero() {
			inv.Status = model.InvoicePaid
		}
		if err := tx.Model(&inv).Update("status", inv.Status).Error; err != nil {
			return fmt.Errorf("issuing %s: %w", inv.InvoiceNumber, err)
		}
		if err := audit.Append(ctx, tx, audit.Record(actor, audit.ActionInvoiceIssued, inv.InvoiceNumber,
			"total "+inv.TotalAmount.StringFixed(2))); err != nil {
			return err
		}

		if !s.opts.PostToLedger || !inv.TotalAmount.IsPositive() {
			return nil
		}
		res, evts, err := s.recordTx(ctx, tx, accounts.CodeReceivable, RevenueAccountCode(inv.InvoiceType), journal.AutomatedParams{
			Date:        inv.InvoiceDate,
			Description: "Invoice " + inv.InvoiceNumber,
			Reference:   RefInvoice + inv.InvoiceNumber,
			Amount:      inv.TotalAmount,
			PropertyID:  inv.PropertyID,
			ContractID:  inv.ContractID,
			CreatedBy:   actor,
		})
		if err != nil {
			return err
		}
		posted, pending = &res, evts
		return nil
	})
	if err != nil {
		return model.Invoice{}, err
	}
	if posted != nil {
		s.opts.Journal.FinishAutomated(ctx, *posted, pending)
	}
	s.log.Info("invoice issued", zap.String("invoice_number", inv.InvoiceNumber))
	return inv, nil
}

// Cancel voids a draft or issued invoice that has no payments, or a zero
// total one. A receivable recognized at issue is reversed by a void entry.
func (s *Service) Cancel(ctx context.Context, invoiceID uint, reason, actor string) (model.Invoice, error) {
	var (
		inv     model.Invoice
		posted  *journal.AutomatedResult
		pending []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = lockInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		switch {
		case inv.Status == model.InvoiceDraft, inv.Status == model.InvoiceIssued:
		case inv.Status == model.InvoicePaid && inv.TotalAmount.IsZero():
		case inv.Status == model.InvoicePartial, inv.Status == model.InvoicePaid:
			return fmt.Errorf("%w: %s", ErrInvoiceHasPayments, inv.InvoiceNumber)
		default:
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, inv.InvoiceNumber, inv.Status)
		}
		var n int64
		if err := tx.Model(&model.Payment{}).Where("invoice_id = ?", inv.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("counting payments of %s: %w", inv.InvoiceNumber, err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %s has %d", ErrInvoiceHasPayments, inv.InvoiceNumber, n)
		}

		inv.Status = model.InvoiceCancelled
		if err := tx.Model(&inv).Update("status", inv.Status).Error; err != nil {
			return fmt.Errorf("cancelling %s: %w", inv.InvoiceNumber, err)
		}
		if err := audit.Append(ctx, tx, audit.Record(actor, audit.ActionInvoiceCancelled, inv.InvoiceNumber, reason)); err != nil {
			return err
		}

		if s.opts.Journal == nil || s.opts.Poster == nil {
			return nil
		}
		recognized, err := referenceExists(ctx, tx, RefInvoice+inv.InvoiceNumber)
		if err != nil || !recognized {
			return err
		}
		res, evts, err := s.recordTx(ctx, tx, RevenueAccountCode(inv.InvoiceType), accounts.CodeReceivable, journal.AutomatedParams{
			Date:        time.Now().UTC(),
			Description: "Void invoice " + inv.InvoiceNumber,
			Reference:   RefInvoiceVoid + inv.InvoiceNumber,
			Amount:      inv.TotalAmount,
			PropertyID:  inv.PropertyID,
			ContractID:  inv.ContractID,
			CreatedBy:   actor,
		})
		if err != nil {
			return err
		}
		posted, pending = &res, evts
		return nil
	})
	if err != nil {
		return model.Invoice{}, err
	}
	if posted != nil {
		s.opts.Journal.FinishAutomated(ctx, *posted, pending)
	}
	s.log.Info("invoice cancelled", zap.String("invoice_number", inv.InvoiceNumber))
	return inv, nil
}

// recordTx posts a two-line automated entry between account codes in tx.
func (s *Service) recordTx(ctx context.Context, tx *gorm.DB, debitCode, creditCode string, p journal.AutomatedParams) (journal.AutomatedResult, []events.Event, error) {
	debit, err := s.opts.Poster.AccountTx(ctx, tx, debitCode)
	if err != nil {
		return journal.AutomatedResult{}, nil, err
	}
	credit, err := s.opts.Poster.AccountTx(ctx, tx, creditCode)
	if err != nil {
		return journal.AutomatedResult{}, nil, err
	}
	p.DebitAccountID = debit.ID
	p.CreditAccountID = credit.ID
	return s.opts.Journal.RecordAutomatedTx(ctx, tx, p)
}

func referenceExists(ctx context.Context, tx *gorm.DB, ref string) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&model.JournalEntry{}).Where("reference = ?", ref).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("looking up reference %s: %w", ref, err)
	}
	return n > 0, nil
}

func lockInvoice(ctx context.Context, tx *gorm.DB, invoiceID uint) (model.Invoice, error) {
	var inv model.Invoice
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inv, invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Invoice{}, fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
	}
	if err != nil {
		return model.Invoice{}, fmt.Errorf("loading invoice %d: %w", invoiceID, err)
	}
	return inv, nil
}

// GetInvoice returns an invoice with its items.
func (s *Service) GetInvoice(ctx context.Context, invoiceID uint) (model.Invoice, error) {
	return s.getInvoice(ctx, s.db.Where("id = ?", invoiceID), fmt.Sprintf("invoice %d", invoiceID))
}

// GetInvoiceByNumber returns an invoice by its invoice number.
func (s *Service) GetInvoiceByNumber(ctx context.Context, number string) (model.Invoice, error) {
	return s.getInvoice(ctx, s.db.Where("invoice_number = ?", number), number)
}

func (s *Service) getInvoice(ctx context.Context, q *gorm.DB, what string) (model.Invoice, error) {
	var inv model.Invoice
	err := q.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Invoice{}, fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	if err != nil {
		return model.Invoice{}, fmt.Errorf("loading %s: %w", what, err)
	}
	return inv, nil
}

// InvoiceFilter narrows ListInvoices. Zero values match everything.
type InvoiceFilter struct {
	Status     model.InvoiceStatus
	Type       model.InvoiceType
	PropertyID *uint
	From       time.Time
	To         time.Time
	Limit      int
}

// ListInvoices returns invoices newest first.
func (s *Service) ListInvoices(ctx context.Context, f InvoiceFilter) ([]model.Invoice, error) {
	q := s.db.WithContext(ctx).Order("invoice_date DESC, id DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("invoice_type = ?", f.Type)
	}
	if f.PropertyID != nil {
		q = q.Where("property_id = ?", *f.PropertyID)
	}
	if !f.From.IsZero() {
		q = q.Where("invoice_date >= ?", model.DateOf(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("invoice_date <= ?", model.DateOf(f.To))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []model.Invoice
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return out, nil
}

var openStatuses = []model.InvoiceStatus{model.InvoiceIssued, model.InvoicePartial}

// Outstanding returns issued and partially paid invoices, earliest due
// first, with the sum of their balances.
func (s *Service) Outstanding(ctx context.Context) ([]model.Invoice, decimal.Decimal, error) {
	var out []model.Invoice
	err := s.db.WithContext(ctx).
		Where("status IN ?", openStatuses).
		Order("due_date, id").
		Find(&out).Error
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("listing outstanding invoices: %w", err)
	}
	total := decimal.Zero
	for _, inv := range out {
		total = total.Add(inv.Balance())
	}
	return out, total, nil
}

// Overdue returns open invoices whose due date is before asOf.
func (s *Service) Overdue(ctx context.Context, asOf time.Time) ([]model.Invoice, error) {
	var out []model.Invoice
	err := s.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?", openStatuses, model.DateOf(asOf)).
		Order("due_date, id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing overdue invoices: %w", err)
	}
	return out, nil
}
