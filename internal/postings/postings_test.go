package postings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/model"
	"github.com/propledger/propledger/internal/store/storetest"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var payDay = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	poster   *Poster
	journal  *journal.Service
	accounts *accounts.Service
}

func newFixture(t *testing.T, overrides ...config.PaymentAccount) *fixture {
	t.Helper()
	db := storetest.New(t)
	j := journal.NewService(db, nil, journal.Options{EnforceClosedPeriods: true})
	return &fixture{
		poster:   New(db, j, overrides, nil),
		journal:  j,
		accounts: accounts.NewService(db, nil),
	}
}

func (f *fixture) balance(t *testing.T, code string) decimal.Decimal {
	t.Helper()
	acct, err := f.accounts.GetByCode(context.Background(), code)
	require.NoError(t, err)
	b, err := f.accounts.Balance(context.Background(), acct.ID)
	require.NoError(t, err)
	return b
}

func TestMethodAccountCode(t *testing.T) {
	p := New(nil, nil, nil, nil)
	tests := []struct {
		method model.PaymentMethod
		want   string
	}{
		{model.MethodCash, "1010"},
		{model.MethodBankTransfer, "1020"},
		{model.MethodCheck, "1030"},
		{model.MethodCreditCard, "1020"},
		{model.MethodMortgage, "1040"},
		{model.MethodOnline, "1020"},
		{"barter", "1020"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.MethodAccountCode(tt.method), "method %q", tt.method)
	}

	custom := New(nil, nil, []config.PaymentAccount{{Method: "cash", AccountCode: "1011"}}, nil)
	assert.Equal(t, "1011", custom.MethodAccountCode(model.MethodCash))
	assert.Equal(t, "1030", custom.MethodAccountCode(model.MethodCheck))
}

func TestSalesPayment_CreatesAccountsAndPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.poster.SalesPayment(ctx, PaymentEvent{
		ReceiptNumber: "RCV-2025-00010",
		Date:          payDay,
		Amount:        dec("500000"),
		Method:        model.MethodCheck,
		CreatedBy:     "sales",
	})
	require.NoError(t, err)
	require.True(t, res.Created)
	assert.Equal(t, "SALES-PAY-RCV-2025-00010", res.Entry.Reference)
	assert.Equal(t, model.EntryTypeAutomated, res.Entry.EntryType)
	assert.True(t, res.Entry.IsPosted)

	assert.True(t, dec("500000").Equal(f.balance(t, accounts.CodeChecksReceived)))
	assert.True(t, dec("500000").Equal(f.balance(t, accounts.CodeSalesRevenue)))

	acct, err := f.accounts.GetByCode(ctx, accounts.CodeSalesRevenue)
	require.NoError(t, err)
	assert.True(t, acct.IsSystem)
	assert.Equal(t, "Property Sales Revenue", acct.Name)
}

func TestRentPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev := PaymentEvent{ReceiptNumber: "RCV-2025-00011", Date: payDay, Amount: dec("8500"), Method: model.MethodBankTransfer}
	first, err := f.poster.RentPayment(ctx, ev)
	require.NoError(t, err)
	second, err := f.poster.RentPayment(ctx, ev)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Entry.EntryNumber, second.Entry.EntryNumber)

	entries, err := f.journal.List(ctx, journal.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, dec("8500").Equal(f.balance(t, accounts.CodeRentalIncome)))
	assert.True(t, dec("8500").Equal(f.balance(t, accounts.CodeBank)))
}

func TestMaintenanceCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	property := uint(12)
	res, err := f.poster.MaintenanceCost(ctx, MaintenanceEvent{
		RequestNumber: "MR-2025-0003",
		Date:          payDay,
		Amount:        dec("1250.75"),
		Method:        model.MethodCash,
		PropertyID:    &property,
	})
	require.NoError(t, err)
	assert.Equal(t, "MAINT-MR-2025-0003", res.Entry.Reference)
	require.NotNil(t, res.Entry.PropertyID)
	assert.Equal(t, property, *res.Entry.PropertyID)

	assert.True(t, dec("1250.75").Equal(f.balance(t, accounts.CodeMaintenance)))
	assert.True(t, dec("-1250.75").Equal(f.balance(t, accounts.CodeCash)))
}

func TestOverrideMustExist(t *testing.T) {
	f := newFixture(t, config.PaymentAccount{Method: "online", AccountCode: "1025"})
	ctx := context.Background()

	_, err := f.poster.RentPayment(ctx, PaymentEvent{ReceiptNumber: "R1", Date: payDay, Amount: dec("10"), Method: model.MethodOnline})
	assert.ErrorIs(t, err, accounts.ErrNotFound)

	wallet := model.Account{Code: "1025", Name: "Payment Gateway", Type: model.AccountTypeAsset}
	require.NoError(t, f.accounts.Create(ctx, &wallet))
	_, err = f.poster.RentPayment(ctx, PaymentEvent{ReceiptNumber: "R1", Date: payDay, Amount: dec("10"), Method: model.MethodOnline})
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(f.balance(t, "1025")))
}

func TestInvalidEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.poster.SalesPayment(ctx, PaymentEvent{Date: payDay, Amount: dec("1")})
	assert.Error(t, err, "receipt number is required")

	_, err = f.poster.RentPayment(ctx, PaymentEvent{ReceiptNumber: "R2", Date: payDay, Amount: dec("-5")})
	assert.ErrorIs(t, err, journal.ErrInvalidAmount)

	_, err = f.poster.MaintenanceCost(ctx, MaintenanceEvent{RequestNumber: "M1", Amount: dec("5")})
	assert.Error(t, err, "date is required")
}
