package billing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/audit"
	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/metrics"
	"github.com/propledger/propledger/internal/model"
	"github.com/propledger/propledger/internal/postings"
	"github.com/propledger/propledger/internal/store/storetest"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	journal  *journal.Service
	accounts *accounts.Service
	bus      *events.Bus
	reg      *prometheus.Registry
}

func newFixture(t *testing.T, overpayment string, postToLedger bool) *fixture {
	t.Helper()
	return newFixtureOn(t, storetest.New(t), overpayment, postToLedger)
}

func newFixtureOn(t *testing.T, db *gorm.DB, overpayment string, postToLedger bool) *fixture {
	t.Helper()
	accts := accounts.NewService(db, nil)
	_, err := accts.Seed(context.Background(), accounts.DefaultChart())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bus := events.NewBus(nil)
	j := journal.NewService(db, nil, journal.Options{EnforceClosedPeriods: true, Bus: bus, Metrics: m})
	svc := NewService(db, nil, Options{
		Overpayment:    overpayment,
		PostToLedger:   postToLedger,
		DefaultDueDays: 30,
		Bus:            bus,
		Metrics:        m,
		Journal:        j,
		Poster:         postings.New(db, j, nil, nil),
	})
	return &fixture{db: db, svc: svc, journal: j, accounts: accts, bus: bus, reg: reg}
}

func (f *fixture) balance(t *testing.T, code string) decimal.Decimal {
	t.Helper()
	acct, err := f.accounts.GetByCode(context.Background(), code)
	require.NoError(t, err)
	b, err := f.accounts.Balance(context.Background(), acct.ID)
	require.NoError(t, err)
	return b
}

func (f *fixture) issuedInvoice(t *testing.T, amount string) model.Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, InvoiceParams{
		Type:  model.InvoiceTypeRent,
		Date:  date(2025, 3, 1),
		Items: []ItemParams{{Description: "March rent", Quantity: dec("1"), UnitPrice: dec(amount)}},
	})
	require.NoError(t, err)
	inv, err = f.svc.Issue(ctx, inv.ID, "tester")
	require.NoError(t, err)
	return inv
}

func (f *fixture) receipt(invoiceID uint, amount string) PaymentParams {
	return PaymentParams{
		Type:      model.PaymentTypeReceipt,
		Date:      date(2025, 3, 10),
		Method:    model.MethodBankTransfer,
		Amount:    dec(amount),
		InvoiceID: &invoiceID,
		CreatedBy: "tester",
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []model.InvoiceItem
		discount string
		want     Totals
	}{
		{
			name:  "single item",
			items: []model.InvoiceItem{{Quantity: dec("1"), UnitPrice: dec("1000")}},
			want:  Totals{Subtotal: dec("1000"), Tax: dec("0"), Discount: dec("0"), Total: dec("1000")},
		},
		{
			name:  "tax and item discount",
			items: []model.InvoiceItem{{Quantity: dec("2"), UnitPrice: dec("500"), TaxRate: dec("14"), DiscountRate: dec("10")}},
			want:  Totals{Subtotal: dec("1000"), Tax: dec("140"), Discount: dec("100"), Total: dec("1040")},
		},
		{
			name: "invoice discount and rounding",
			items: []model.InvoiceItem{
				{Quantity: dec("3"), UnitPrice: dec("33.33"), TaxRate: dec("5")},
				{Quantity: dec("1"), UnitPrice: dec("0.01")},
			},
			discount: "50",
			want:     Totals{Subtotal: dec("100"), Tax: dec("5"), Discount: dec("50"), Total: dec("55")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decimal.Zero
			if tt.discount != "" {
				d = dec(tt.discount)
			}
			got := ComputeTotals(tt.items, d)
			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.want.Tax.Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, tt.want.Discount.Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, tt.want.Total.Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestApplyPayment(t *testing.T) {
	tests := []struct {
		name       string
		paid       string
		amount     string
		wantPaid   string
		wantStatus model.InvoiceStatus
	}{
		{"partial", "0", "400", "400", model.InvoicePartial},
		{"settles remainder", "400", "600", "1000", model.InvoicePaid},
		{"exact", "0", "1000", "1000", model.InvoicePaid},
		{"over", "900", "200", "1100", model.InvoicePaid},
		{"zero keeps status", "0", "0", "0", model.InvoiceIssued},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := model.Invoice{TotalAmount: dec("1000"), PaidAmount: dec(tt.paid), Status: model.InvoiceIssued}
			ApplyPayment(&inv, dec(tt.amount))
			assert.True(t, dec(tt.wantPaid).Equal(inv.PaidAmount), "paid %s", inv.PaidAmount)
			assert.Equal(t, tt.wantStatus, inv.Status)
		})
	}
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, false)
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, InvoiceParams{
		Date:   date(2025, 1, 15),
		BillTo: "Tenant 4B",
		Items: []ItemParams{
			{Description: "Rent", Quantity: dec("1"), UnitPrice: dec("1200")},
			{Description: "Cleaning", Quantity: dec("2"), UnitPrice: dec("50"), TaxRate: dec("14")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-00001", inv.InvoiceNumber)
	assert.Equal(t, model.InvoiceDraft, inv.Status)
	assert.Equal(t, model.InvoiceTypeRent, inv.InvoiceType)
	assert.Equal(t, date(2025, 2, 14), inv.DueDate)
	assert.True(t, dec("1300").Equal(inv.Subtotal))
	assert.True(t, dec("14").Equal(inv.TaxAmount))
	assert.True(t, dec("1314").Equal(inv.TotalAmount))

	got, err := f.svc.GetInvoiceByNumber(ctx, inv.InvoiceNumber)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Rent", got.Items[0].Description)
	assert.True(t, dec("114").Equal(got.Items[1].Total()))

	second, err := f.svc.CreateInvoice(ctx, InvoiceParams{
		Date:  date(2025, 1, 16),
		Items: []ItemParams{{Description: "Rent", Quantity: dec("1"), UnitPrice: dec("10")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-00002", second.InvoiceNumber)
}

func TestCreateInvoice_Rejects(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, false)
	ctx := context.Background()
	item := ItemParams{Description: "Rent", Quantity: dec("1"), UnitPrice: dec("100")}

	tests := []struct {
		name   string
		params InvoiceParams
		is     error
	}{
		{"no items", InvoiceParams{Date: date(2025, 1, 1)}, ErrNoItems},
		{"zero quantity", InvoiceParams{Date: date(2025, 1, 1), Items: []ItemParams{{Description: "x", Quantity: dec("0"), UnitPrice: dec("1")}}}, ErrInvalidAmount},
		{"negative price", InvoiceParams{Date: date(2025, 1, 1), Items: []ItemParams{{Description: "x", Quantity: dec("1"), UnitPrice: dec("-1")}}}, ErrInvalidAmount},
		{"tax over 100", InvoiceParams{Date: date(2025, 1, 1), Items: []ItemParams{{Description: "x", Quantity: dec("1"), UnitPrice: dec("1"), TaxRate: dec("101")}}}, ErrInvalidAmount},
		{"discount exceeds amount", InvoiceParams{Date: date(2025, 1, 1), Discount: dec("500"), Items: []ItemParams{item}}, ErrInvalidAmount},
		{"missing date", InvoiceParams{Items: []ItemParams{item}}, nil},
		{"missing description", InvoiceParams{Date: date(2025, 1, 1), Items: []ItemParams{{Quantity: dec("1"), UnitPrice: dec("1")}}}, nil},
		{"due before date", InvoiceParams{Date: date(2025, 1, 10), DueDate: date(2025, 1, 9), Items: []ItemParams{item}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateInvoice(ctx, tt.params)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	invoices, err := f.svc.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestIssue_RecognizesReceivable(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, true)
	ctx := context.Background()

	inv := f.issuedInvoice(t, "1000")
	assert.Equal(t, model.InvoiceIssued, inv.Status)

	entry, err := f.journal.GetByReference(ctx, RefInvoice+inv.InvoiceNumber)
	require.NoError(t, err)
	assert.True(t, entry.IsPosted)
	assert.Equal(t, model.EntryTypeAutomated, entry.EntryType)
	assert.True(t, dec("1000").Equal(f.balance(t, accounts.CodeReceivable)))
	assert.True(t, dec("1000").Equal(f.balance(t, accounts.CodeRentalIncome)))

	_, err = f.svc.Issue(ctx, inv.ID, "tester")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestIssue_ZeroTotalIsPaid(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, true)
	ctx := context.Background()

	inv := f.issuedInvoice(t, "0")
	assert.Equal(t, model.InvoicePaid, inv.Status)
	assert.True(t, inv.Balance().IsZero())

	_, err := f.journal.GetByReference(ctx, RefInvoice+inv.InvoiceNumber)
	assert.ErrorIs(t, err, journal.ErrNotFound)

	_, err = f.svc.RecordPayment(ctx, f.receipt(inv.ID, "10"))
	assert.ErrorIs(t, err, ErrInvoiceNotPayable)

	open, total, err := f.svc.Outstanding(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.True(t, total.IsZero())

	cancelled, err := f.svc.Cancel(ctx, inv.ID, "issued by mistake", "tester")
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceCancelled, cancelled.Status)
}

func TestRevenueAccountCode(t *testing.T) {
	assert.Equal(t, accounts.CodeRentalIncome, RevenueAccountCode(model.InvoiceTypeRent))
	assert.Equal(t, accounts.CodeSalesRevenue, RevenueAccountCode(model.InvoiceTypeSale))
	assert.Equal(t, accounts.CodeServiceIncome, RevenueAccountCode(model.InvoiceTypeMaintenance))
	assert.Equal(t, accounts.CodeServiceIncome, RevenueAccountCode(model.InvoiceTypeOther))
}

func TestRecordPayment_PartialThenPaid(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, true)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		applied []events.PaymentApplied
	)
	f.bus.Subscribe(events.TypePaymentApplied, func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, e.Payload.(events.PaymentApplied))
		return nil
	})

	inv := f.issuedInvoice(t, "1000")

	first, err := f.svc.RecordPayment(ctx, f.receipt(inv.ID, "400"))
	require.NoError(t, err)
	assert.Equal(t, "RCV-2025-00001", first.Payment.PaymentNumber)
	require.NotNil(t, first.Invoice)
	assert.Equal(t, model.InvoicePartial, first.Invoice.Status)
	assert.True(t, dec("400").Equal(first.Invoice.PaidAmount))
	require.NotNil(t, first.Entry)
	assert.Equal(t, RefPayment+"RCV-2025-00001", first.Entry.Reference)

	second, err := f.svc.RecordPayment(ctx, f.receipt(inv.ID, "600"))
	require.NoError(t, err)
	assert.Equal(t, "RCV-2025-00002", second.Payment.PaymentNumber)
	assert.Equal(t, model.InvoicePaid, second.Invoice.Status)

	got, err := f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, got.Status)
	assert.True(t, dec("1000").Equal(got.PaidAmount))
	assert.True(t, got.Balance().IsZero())

	assert.True(t, f.balance(t, accounts.CodeReceivable).IsZero())
	assert.True(t, dec("1000").Equal(f.balance(t, accounts.CodeBank)))
	assert.True(t, dec("1000").Equal(f.balance(t, accounts.CodeRentalIncome)))

	require.Len(t, applied, 2)
	assert.Equal(t, string(model.InvoicePartial), applied[0].Status)
	assert.Equal(t, string(model.InvoicePaid), applied[1].Status)
	assert.True(t, dec("1000").Equal(applied[1].PaidAmount))

	records, err := audit.List(ctx, f.db, audit.Filter{Action: audit.ActionPaymentRecorded})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "RCV-2025-00001", records[0].Subject)

	expected := `
# HELP propledger_billing_payments_applied_total Payments applied to invoices, by payment type.
# TYPE propledger_billing_payments_applied_total counter
propledger_billing_payments_applied_total{payment_type="receipt"} 2
`
	require.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "propledger_billing_payments_applied_total"))
}

func TestRecordPayment_Rejects(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, false)
	ctx := context.Background()

	draft, err := f.svc.CreateInvoice(ctx, InvoiceParams{
		Date:  date(2025, 3, 1),
		Items: []ItemParams{{Description: "Rent", Quantity: dec("1"), UnitPrice: dec("500")}},
	})
	require.NoError(t, err)
	issued := f.issuedInvoice(t, "1000")
	missing := uint(9999)

	tests := []struct {
		name   string
		params PaymentParams
		is     error
	}{
		{"zero amount", f.receipt(issued.ID, "0"), ErrInvalidAmount},
		{"negative amount", f.receipt(issued.ID, "-5"), ErrInvalidAmount},
		{"sub-cent amount", f.receipt(issued.ID, "10.005"), ErrInvalidAmount},
		{"draft invoice", f.receipt(draft.ID, "100"), ErrInvoiceNotPayable},
		{"overpayment", f.receipt(issued.ID, "1000.01"), ErrOverpayment},
		{"unknown invoice", f.receipt(missing, "1"), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordPayment(ctx, tt.params)
			assert.ErrorIs(t, err, tt.is)
		})
	}

	bad := f.receipt(issued.ID, "10")
	bad.Method = "barter"
	_, err = f.svc.RecordPayment(ctx, bad)
	assert.Error(t, err)

	payments, err := f.svc.ListPayments(ctx, PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, payments, "rejected payments must not be stored")

	got, err := f.svc.GetInvoice(ctx, issued.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())

	_, err = f.svc.RecordPayment(ctx, f.receipt(issued.ID, "1000"))
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, f.receipt(issued.ID, "1"))
	assert.ErrorIs(t, err, ErrInvoiceNotPayable, "paid invoices accept no more payments")
}

func TestRecordPayment_OverpaymentAllowed(t *testing.T) {
	f := newFixture(t, config.OverpaymentAllow, false)
	ctx := context.Background()

	inv := f.issuedInvoice(t, "1000")
	res, err := f.svc.RecordPayment(ctx, f.receipt(inv.ID, "1200"))
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, res.Invoice.Status)
	assert.True(t, dec("1200").Equal(res.Invoice.PaidAmount))
	assert.True(t, dec("-200").Equal(res.Invoice.Balance()))
	assert.Nil(t, res.Entry)
}

func TestRecordPayment_WithoutInvoice(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, true)
	ctx := context.Background()

	advance, err := f.svc.RecordPayment(ctx, PaymentParams{
		Type:   model.PaymentTypeReceipt,
		Date:   date(2025, 4, 2),
		Method: model.MethodCash,
		Amount: dec("250"),
	})
	require.NoError(t, err)
	assert.Nil(t, advance.Invoice)
	assert.Equal(t, "RCV-2025-00001", advance.Payment.PaymentNumber)

	out, err := f.svc.RecordPayment(ctx, PaymentParams{
		Type:   model.PaymentTypePayment,
		Date:   date(2025, 4, 3),
		Method: model.MethodCheck,
		Amount: dec("80"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-2025-00001", out.Payment.PaymentNumber)

	assert.True(t, dec("250").Equal(f.balance(t, accounts.CodeCash)))
	assert.True(t, dec("250").Equal(f.balance(t, accounts.CodeCustomerAdvances)))
	assert.True(t, dec("-80").Equal(f.balance(t, accounts.CodeChecksReceived)))
	assert.True(t, dec("-80").Equal(f.balance(t, accounts.CodePayable)))

	receipts, err := f.svc.ListPayments(ctx, PaymentFilter{Type: model.PaymentTypeReceipt})
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	got, err := f.svc.GetPaymentByNumber(ctx, "PAY-2025-00001")
	require.NoError(t, err)
	assert.Equal(t, model.MethodCheck, got.PaymentMethod)

	_, err = f.svc.GetPaymentByNumber(ctx, "PAY-2025-00099")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPayment_ConcurrentNeverOverpays(t *testing.T) {
	f := newFixtureOn(t, storetest.NewPool(t, 4), config.OverpaymentReject, true)
	ctx := context.Background()
	inv := f.issuedInvoice(t, "1000")

	const writers = 10
	var (
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := f.svc.RecordPayment(ctx, f.receipt(inv.ID, "200"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrOverpayment), errors.Is(err, ErrInvoiceNotPayable):
				rejected++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, rejected)

	got, err := f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(got.PaidAmount))
	assert.Equal(t, model.InvoicePaid, got.Status)
	assert.True(t, f.balance(t, accounts.CodeReceivable).IsZero())
}

func TestCancel(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, true)
	ctx := context.Background()

	draft, err := f.svc.CreateInvoice(ctx, InvoiceParams{
		Date:  date(2025, 3, 1),
		Items: []ItemParams{{Description: "Rent", Quantity: dec("1"), UnitPrice: dec("500")}},
	})
	require.NoError(t, err)
	cancelled, err := f.svc.Cancel(ctx, draft.ID, "duplicate", "tester")
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceCancelled, cancelled.Status)

	_, err = f.svc.Cancel(ctx, draft.ID, "again", "tester")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Issue(ctx, draft.ID, "tester")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	issued := f.issuedInvoice(t, "1000")
	require.True(t, dec("1000").Equal(f.balance(t, accounts.CodeReceivable)))
	_, err = f.svc.Cancel(ctx, issued.ID, "tenant left", "tester")
	require.NoError(t, err)
	assert.True(t, f.balance(t, accounts.CodeReceivable).IsZero(), "void entry reverses the receivable")
	assert.True(t, f.balance(t, accounts.CodeRentalIncome).IsZero())

	void, err := f.journal.GetByReference(ctx, RefInvoiceVoid+issued.InvoiceNumber)
	require.NoError(t, err)
	assert.True(t, void.IsPosted)

	partial := f.issuedInvoice(t, "1000")
	_, err = f.svc.RecordPayment(ctx, f.receipt(partial.ID, "100"))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, partial.ID, "", "tester")
	assert.ErrorIs(t, err, ErrInvoiceHasPayments)

	records, err := audit.List(ctx, f.db, audit.Filter{Action: audit.ActionInvoiceCancelled})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestOutstandingAndOverdue(t *testing.T) {
	f := newFixture(t, config.OverpaymentReject, false)
	ctx := context.Background()

	a := f.issuedInvoice(t, "1000")
	b := f.issuedInvoice(t, "300")
	_, err := f.svc.RecordPayment(ctx, f.receipt(b.ID, "100"))
	require.NoError(t, err)
	paid := f.issuedInvoice(t, "50")
	_, err = f.svc.RecordPayment(ctx, f.receipt(paid.ID, "50"))
	require.NoError(t, err)
	_, err = f.svc.CreateInvoice(ctx, InvoiceParams{
		Date:  date(2025, 3, 1),
		Items: []ItemParams{{Description: "Draft", Quantity: dec("1"), UnitPrice: dec("999")}},
	})
	require.NoError(t, err)

	open, total, err := f.svc.Outstanding(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, a.InvoiceNumber, open[0].InvoiceNumber)
	assert.True(t, dec("1200").Equal(total), "outstanding %s", total)

	// Due 30 days after 2025-03-01.
	overdue, err := f.svc.Overdue(ctx, date(2025, 3, 31))
	require.NoError(t, err)
	assert.Empty(t, overdue)

	overdue, err = f.svc.Overdue(ctx, date(2025, 4, 1))
	require.NoError(t, err)
	assert.Len(t, overdue, 2)

	partial, err := f.svc.ListInvoices(ctx, InvoiceFilter{Status: model.InvoicePartial})
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.Equal(t, b.InvoiceNumber, partial[0].InvoiceNumber)
}
