package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/billing"
	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/model"
)

// Service builds read-only reports over posted journal lines.
type Service struct {
	log      *zap.Logger
	accounts *accounts.Service
	journal  *journal.Service
	billing  *billing.Service
}

// NewService creates a report Service backed by db.
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		log:      log.Named("report"),
		accounts: accounts.NewService(db, log),
		journal:  journal.NewService(db, log, journal.Options{}),
		billing:  billing.NewService(db, log, billing.Options{}),
	}
}

// TrialBalanceRow places one account's balance on its debit or credit side.
type TrialBalanceRow struct {
	Account model.Account
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// TrialBalance lists every active account with a non-zero balance.
type TrialBalance struct {
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// IsBalanced reports whether both sides total the same.
func (tb TrialBalance) IsBalanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// SplitBalance puts a balance on the side it represents: the normal side
// when positive, the opposite side when negative.
func SplitBalance(t model.AccountType, balance decimal.Decimal) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	abs := balance.Abs()
	normalDebit := t.NormalSide() == model.SideDebit
	if balance.IsNegative() {
		normalDebit = !normalDebit
	}
	if normalDebit {
		return abs, credit
	}
	return debit, abs
}

// TrialBalance computes balances as of asOf; a zero asOf includes every
// posted entry.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	accts, err := s.accounts.List(ctx, accounts.Filter{ActiveOnly: true})
	if err != nil {
		return TrialBalance{}, err
	}
	balances, err := s.accounts.Balances(ctx, asOf)
	if err != nil {
		return TrialBalance{}, err
	}

	tb := TrialBalance{AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, a := range accts {
		b := balances[a.ID]
		if b.IsZero() {
			continue
		}
		debit, credit := SplitBalance(a.Type, b)
		tb.Rows = append(tb.Rows, TrialBalanceRow{Account: a, Debit: debit, Credit: credit})
		tb.TotalDebit = tb.TotalDebit.Add(debit)
		tb.TotalCredit = tb.TotalCredit.Add(credit)
	}
	if !tb.IsBalanced() {
		s.log.Warn("trial balance does not balance",
			zap.String("debit", tb.TotalDebit.StringFixed(2)),
			zap.String("credit", tb.TotalCredit.StringFixed(2)),
		)
	}
	return tb, nil
}

// AmountRow is one account's contribution to a report section.
type AmountRow struct {
	Account model.Account
	Amount  decimal.Decimal
}

// ProfitAndLossParams selects the entries a P&L covers. From and To are
// inclusive; PropertyID limits it to one property.
type ProfitAndLossParams struct {
	From       time.Time
	To         time.Time
	PropertyID *uint
}

// ProfitAndLoss is revenue against expenses over a date range.
type ProfitAndLoss struct {
	From          time.Time
	To            time.Time
	Revenue       []AmountRow
	Expenses      []AmountRow
	TotalRevenue  decimal.Decimal
	TotalExpenses decimal.Decimal
}

// NetIncome is total revenue minus total expenses.
func (pl ProfitAndLoss) NetIncome() decimal.Decimal {
	return pl.TotalRevenue.Sub(pl.TotalExpenses)
}

// ProfitAndLoss sums posted revenue credits and expense debits in range.
// Contra lines (a reversal debiting revenue, a refund crediting an expense)
// are netted against them.
func (s *Service) ProfitAndLoss(ctx context.Context, p ProfitAndLossParams) (ProfitAndLoss, error) {
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return ProfitAndLoss{}, fmt.Errorf("invalid range: %s is before %s",
			p.To.Format(time.DateOnly), p.From.Format(time.DateOnly))
	}
	sums, err := s.accounts.PostedMovements(ctx, accounts.MovementFilter{
		From:       p.From,
		To:         p.To,
		PropertyID: p.PropertyID,
	})
	if err != nil {
		return ProfitAndLoss{}, err
	}

	pl := ProfitAndLoss{From: p.From, To: p.To, TotalRevenue: decimal.Zero, TotalExpenses: decimal.Zero}
	revenue, err := s.accounts.List(ctx, accounts.Filter{Type: model.AccountTypeRevenue})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	for _, a := range revenue {
		m := sums[a.ID]
		amt := m.Credit.Sub(m.Debit)
		if amt.IsZero() {
			continue
		}
		pl.Revenue = append(pl.Revenue, AmountRow{Account: a, Amount: amt})
		pl.TotalRevenue = pl.TotalRevenue.Add(amt)
	}

	expenses, err := s.accounts.List(ctx, accounts.Filter{Type: model.AccountTypeExpense})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	for _, a := range expenses {
		m := sums[a.ID]
		amt := m.Debit.Sub(m.Credit)
		if amt.IsZero() {
			continue
		}
		pl.Expenses = append(pl.Expenses, AmountRow{Account: a, Amount: amt})
		pl.TotalExpenses = pl.TotalExpenses.Add(amt)
	}
	return pl, nil
}

// CurrentEarningsName labels the derived equity row of the balance sheet.
const CurrentEarningsName = "Current Earnings"

// BalanceSheet groups asset, liability and equity balances at one date.
type BalanceSheet struct {
	AsOf             time.Time
	Assets           []AmountRow
	Liabilities      []AmountRow
	Equity           []AmountRow
	CurrentEarnings  decimal.Decimal
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	// TotalEquity includes CurrentEarnings.
	TotalEquity decimal.Decimal
}

// TotalLiabilitiesAndEquity is the right-hand side of the accounting
// equation.
func (bs BalanceSheet) TotalLiabilitiesAndEquity() decimal.Decimal {
	return bs.TotalLiabilities.Add(bs.TotalEquity)
}

// IsBalanced reports whether assets equal liabilities plus equity.
func (bs BalanceSheet) IsBalanced() bool {
	return bs.TotalAssets.Equal(bs.TotalLiabilitiesAndEquity())
}

// BalanceSheet computes balances as of asOf. Revenue and expense balances
// not yet closed into retained earnings appear as Current Earnings.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	accts, err := s.accounts.List(ctx, accounts.Filter{})
	if err != nil {
		return BalanceSheet{}, err
	}
	balances, err := s.accounts.Balances(ctx, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}

	bs := BalanceSheet{
		AsOf:             asOf,
		CurrentEarnings:  decimal.Zero,
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
	}
	for _, a := range accts {
		b := balances[a.ID]
		switch a.Type {
		case model.AccountTypeRevenue:
			bs.CurrentEarnings = bs.CurrentEarnings.Add(b)
			continue
		case model.AccountTypeExpense:
			bs.CurrentEarnings = bs.CurrentEarnings.Sub(b)
			continue
		}
		if b.IsZero() {
			continue
		}
		row := AmountRow{Account: a, Amount: b}
		switch a.Type {
		case model.AccountTypeAsset:
			bs.Assets = append(bs.Assets, row)
			bs.TotalAssets = bs.TotalAssets.Add(b)
		case model.AccountTypeLiability:
			bs.Liabilities = append(bs.Liabilities, row)
			bs.TotalLiabilities = bs.TotalLiabilities.Add(b)
		case model.AccountTypeEquity:
			bs.Equity = append(bs.Equity, row)
			bs.TotalEquity = bs.TotalEquity.Add(b)
		}
	}
	if !bs.CurrentEarnings.IsZero() {
		bs.Equity = append(bs.Equity, AmountRow{
			Account: model.Account{Name: CurrentEarningsName, Type: model.AccountTypeEquity},
			Amount:  bs.CurrentEarnings,
		})
		bs.TotalEquity = bs.TotalEquity.Add(bs.CurrentEarnings)
	}
	return bs, nil
}

// DashboardWindow is how far back the dashboard's income figures reach.
const DashboardWindow = 30 * 24 * time.Hour

// Dashboard is the financial summary at one date.
type Dashboard struct {
	Since            time.Time
	Today            time.Time
	Revenue          decimal.Decimal
	Expenses         decimal.Decimal
	NetIncome        decimal.Decimal
	CashBalance      decimal.Decimal
	Outstanding      decimal.Decimal
	OutstandingCount int
	OverdueCount     int
	RecentEntries    []model.JournalEntry
	RecentInvoices   []model.Invoice
	RecentPayments   []model.Payment
}

// Dashboard summarizes the last 30 days of income, cash on hand and open
// invoices. Cash is every asset account whose name mentions cash.
func (s *Service) Dashboard(ctx context.Context, today time.Time) (Dashboard, error) {
	today = model.DateOf(today)
	d := Dashboard{Since: today.Add(-DashboardWindow), Today: today, CashBalance: decimal.Zero}

	pl, err := s.ProfitAndLoss(ctx, ProfitAndLossParams{From: d.Since, To: today})
	if err != nil {
		return Dashboard{}, err
	}
	d.Revenue, d.Expenses, d.NetIncome = pl.TotalRevenue, pl.TotalExpenses, pl.NetIncome()

	assets, err := s.accounts.List(ctx, accounts.Filter{Type: model.AccountTypeAsset})
	if err != nil {
		return Dashboard{}, err
	}
	balances, err := s.accounts.Balances(ctx, today)
	if err != nil {
		return Dashboard{}, err
	}
	for _, a := range assets {
		if strings.Contains(strings.ToLower(a.Name), "cash") {
			d.CashBalance = d.CashBalance.Add(balances[a.ID])
		}
	}

	open, total, err := s.billing.Outstanding(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.Outstanding, d.OutstandingCount = total, len(open)
	overdue, err := s.billing.Overdue(ctx, today)
	if err != nil {
		return Dashboard{}, err
	}
	d.OverdueCount = len(overdue)

	posted := true
	if d.RecentEntries, err = s.journal.List(ctx, journal.ListFilter{Posted: &posted, Limit: 10}); err != nil {
		return Dashboard{}, err
	}
	if d.RecentInvoices, err = s.billing.ListInvoices(ctx, billing.InvoiceFilter{Limit: 5}); err != nil {
		return Dashboard{}, err
	}
	if d.RecentPayments, err = s.billing.ListPayments(ctx, billing.PaymentFilter{Limit: 5}); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
