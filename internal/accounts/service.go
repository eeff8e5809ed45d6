package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/model"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateCode  = errors.New("account code already exists")
	ErrInvalidType    = errors.New("invalid account type")
	ErrParentType     = errors.New("parent account must have the same type")
	ErrSystemAccount  = errors.New("system accounts cannot be modified or deleted")
	ErrAccountInUse   = errors.New("account has journal lines")
	ErrInvalidBalance = errors.New("invalid opening balance")
	ErrHasBalance     = errors.New("account has a non-zero balance")
)

// Service manages the chart of accounts and computes balances.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewService creates a Service backed by db.
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log.Named("accounts")}
}

// WithTx returns a copy of the service that runs on tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx, log: s.log}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type       model.AccountType
	ActiveOnly bool
	Search     string
}

// Create inserts a new account after checking its type and parent.
func (s *Service) Create(ctx context.Context, acct *model.Account) error {
	if err := s.check(ctx, acct); err != nil {
		return err
	}
	if acct.OpeningBalanceType == "" {
		acct.OpeningBalanceType = acct.Type.NormalSide()
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Account{}).Where("code = ?", acct.Code).Count(&count).Error; err != nil {
		return fmt.Errorf("checking account code: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, acct.Code)
	}

	acct.IsActive = true
	if err := s.db.WithContext(ctx).Create(acct).Error; err != nil {
		return fmt.Errorf("creating account %s: %w", acct.Code, err)
	}
	return nil
}

func (s *Service) check(ctx context.Context, acct *model.Account) error {
	if strings.TrimSpace(acct.Code) == "" || strings.TrimSpace(acct.Name) == "" {
		return fmt.Errorf("account code and name are required")
	}
	if !acct.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, acct.Type)
	}
	if acct.OpeningBalance.IsNegative() {
		return fmt.Errorf("%w: must not be negative", ErrInvalidBalance)
	}
	if acct.OpeningBalanceType != "" && !acct.OpeningBalanceType.Valid() {
		return fmt.Errorf("%w: side %q", ErrInvalidBalance, acct.OpeningBalanceType)
	}
	if acct.ParentID == nil {
		return nil
	}
	if acct.ID != 0 && *acct.ParentID == acct.ID {
		return fmt.Errorf("%w: account cannot be its own parent", ErrParentType)
	}
	parent, err := s.Get(ctx, *acct.ParentID)
	if err != nil {
		return fmt.Errorf("parent account: %w", err)
	}
	if parent.Type != acct.Type {
		return fmt.Errorf("%w: parent %s is %s, account is %s", ErrParentType, parent.Code, parent.Type, acct.Type)
	}
	return nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, id uint) (model.Account, error) {
	var acct model.Account
	err := s.db.WithContext(ctx).First(&acct, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Account{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("loading account %d: %w", id, err)
	}
	return acct, nil
}

// GetByCode returns an account by its chart code.
func (s *Service) GetByCode(ctx context.Context, code string) (model.Account, error) {
	var acct model.Account
	err := s.db.WithContext(ctx).Where("code = ?", code).Take(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Account{}, fmt.Errorf("%w: code %s", ErrNotFound, code)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("loading account %s: %w", code, err)
	}
	return acct, nil
}

// List returns accounts ordered by code.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Account, error) {
	q := s.db.WithContext(ctx).Order("code")
	if f.Type != "" {
		q = q.Where("account_type = ?", f.Type)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var result []model.Account
	if err := q.Find(&result).Error; err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return result, nil
}

// Update saves name, description, parent and opening balance changes.
// The code and type of an account never change.
func (s *Service) Update(ctx context.Context, acct *model.Account) error {
	current, err := s.Get(ctx, acct.ID)
	if err != nil {
		return err
	}
	if current.IsSystem {
		return fmt.Errorf("%w: %s", ErrSystemAccount, current.Code)
	}
	acct.Code = current.Code
	acct.Type = current.Type
	if err := s.check(ctx, acct); err != nil {
		return err
	}
	if acct.OpeningBalanceType == "" {
		acct.OpeningBalanceType = acct.Type.NormalSide()
	}

	err = s.db.WithContext(ctx).Model(&current).Updates(map[string]any{
		"name":                 acct.Name,
		"description":          acct.Description,
		"parent_id":            acct.ParentID,
		"opening_balance":      acct.OpeningBalance,
		"opening_balance_type": acct.OpeningBalanceType,
	}).Error
	if err != nil {
		return fmt.Errorf("updating account %s: %w", current.Code, err)
	}
	return nil
}

// Deactivate hides an account from new entries. Its history stays intact;
// only accounts whose balance is zero can be deactivated.
func (s *Service) Deactivate(ctx context.Context, id uint) error {
	acct, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	bal, err := s.Balance(ctx, id)
	if err != nil {
		return err
	}
	if !bal.IsZero() {
		return fmt.Errorf("%w: %s holds %s", ErrHasBalance, acct.Code, bal.StringFixed(2))
	}
	res := s.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivating account %d: %w", id, res.Error)
	}
	return nil
}

// Delete removes an account that no journal line references.
func (s *Service) Delete(ctx context.Context, id uint) error {
	acct, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if acct.IsSystem {
		return fmt.Errorf("%w: %s", ErrSystemAccount, acct.Code)
	}

	var used int64
	if err := s.db.WithContext(ctx).Model(&model.JournalEntryLine{}).Where("account_id = ?", id).Count(&used).Error; err != nil {
		return fmt.Errorf("checking account usage: %w", err)
	}
	if used > 0 {
		return fmt.Errorf("%w: %s is used by %d lines", ErrAccountInUse, acct.Code, used)
	}

	if err := s.db.WithContext(ctx).Delete(&model.Account{}, id).Error; err != nil {
		return fmt.Errorf("deleting account %s: %w", acct.Code, err)
	}
	return nil
}

// EnsureSystemAccount returns the account with code, creating it as a
// system account when missing.
func (s *Service) EnsureSystemAccount(ctx context.Context, code, name string, accountType model.AccountType) (model.Account, error) {
	acct, err := s.GetByCode(ctx, code)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.Account{}, err
	}

	acct = model.Account{
		Code:     code,
		Name:     name,
		Type:     accountType,
		IsSystem: true,
	}
	if err := s.Create(ctx, &acct); err != nil {
		return model.Account{}, err
	}
	s.log.Info("created system account", zap.String("code", code), zap.String("name", name))
	return acct, nil
}

// Seed inserts every account of chart whose code is not present yet and
// returns how many were added.
func (s *Service) Seed(ctx context.Context, chart []model.Account) (int, error) {
	added := 0
	for _, a := range chart {
		if _, err := s.GetByCode(ctx, a.Code); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return added, err
		}
		acct := a
		if err := s.Create(ctx, &acct); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Balance returns the current balance of an account.
func (s *Service) Balance(ctx context.Context, id uint) (decimal.Decimal, error) {
	return s.balance(ctx, id, nil)
}

// BalanceAsOf returns the balance including posted entries dated on or
// before asOf.
func (s *Service) BalanceAsOf(ctx context.Context, id uint, asOf time.Time) (decimal.Decimal, error) {
	return s.balance(ctx, id, &asOf)
}

func (s *Service) balance(ctx context.Context, id uint, asOf *time.Time) (decimal.Decimal, error) {
	acct, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	sums, err := s.postedSums(ctx, asOf, id)
	if err != nil {
		return decimal.Zero, err
	}
	return ApplyMovement(acct, sums[id]), nil
}

// Balances returns every account's balance as of asOf, keyed by account ID.
// A zero asOf includes every posted entry.
func (s *Service) Balances(ctx context.Context, asOf time.Time) (map[uint]decimal.Decimal, error) {
	accts, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	sums, err := s.postedSums(ctx, &asOf)
	if err != nil {
		return nil, err
	}

	result := make(map[uint]decimal.Decimal, len(accts))
	for _, a := range accts {
		result[a.ID] = ApplyMovement(a, sums[a.ID])
	}
	return result, nil
}

// Movement is the sum of posted debits and credits on one account.
type Movement struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// ApplyMovement adds m to the account's signed opening balance on its
// normal side.
func ApplyMovement(acct model.Account, m Movement) decimal.Decimal {
	net := m.Debit.Sub(m.Credit)
	if acct.Type.NormalSide() == model.SideCredit {
		net = net.Neg()
	}
	return acct.SignedOpening().Add(net)
}

type lineAmounts struct {
	AccountID    uint
	DebitAmount  decimal.Decimal
	CreditAmount decimal.Decimal
}

// MovementFilter narrows PostedMovements. Zero values match everything;
// From and To are inclusive entry dates.
type MovementFilter struct {
	From       time.Time
	To         time.Time
	PropertyID *uint
	AccountIDs []uint
}

// PostedMovements totals lines of posted entries per account. Amounts are
// summed in Go so SQLite never rounds them through floating point.
func (s *Service) PostedMovements(ctx context.Context, f MovementFilter) (map[uint]Movement, error) {
	q := s.db.WithContext(ctx).
		Table("journal_entry_lines AS l").
		Select("l.account_id, l.debit_amount, l.credit_amount").
		Joins("JOIN journal_entries AS e ON e.id = l.journal_entry_id").
		Where("e.is_posted = ?", true)
	if !f.From.IsZero() {
		q = q.Where("e.entry_date >= ?", model.DateOf(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("e.entry_date <= ?", model.DateOf(f.To))
	}
	if f.PropertyID != nil {
		q = q.Where("e.property_id = ?", *f.PropertyID)
	}
	if len(f.AccountIDs) > 0 {
		q = q.Where("l.account_id IN ?", f.AccountIDs)
	}

	var rows []lineAmounts
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("summing posted lines: %w", err)
	}

	sums := make(map[uint]Movement)
	for _, r := range rows {
		m := sums[r.AccountID]
		m.Debit = m.Debit.Add(r.DebitAmount)
		m.Credit = m.Credit.Add(r.CreditAmount)
		sums[r.AccountID] = m
	}
	return sums, nil
}

func (s *Service) postedSums(ctx context.Context, asOf *time.Time, accountIDs ...uint) (map[uint]Movement, error) {
	f := MovementFilter{AccountIDs: accountIDs}
	if asOf != nil {
		f.To = *asOf
	}
	return s.PostedMovements(ctx, f)
}

// Import creates the accounts read from a chart CSV, skipping codes that
// already exist, then links parents by code.
func (s *Service) Import(ctx context.Context, chart []model.Account, parents map[string]string) (int, error) {
	added := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs := s.WithTx(tx)
		n, err := txs.Seed(ctx, chart)
		if err != nil {
			return err
		}
		added = n

		for child, parentCode := range parents {
			c, err := txs.GetByCode(ctx, child)
			if err != nil {
				return err
			}
			p, err := txs.GetByCode(ctx, parentCode)
			if err != nil {
				return fmt.Errorf("parent of %s: %w", child, err)
			}
			if p.Type != c.Type {
				return fmt.Errorf("%w: parent %s is %s, account %s is %s", ErrParentType, p.Code, p.Type, c.Code, c.Type)
			}
			if err := tx.Model(&c).Update("parent_id", p.ID).Error; err != nil {
				return fmt.Errorf("linking %s to %s: %w", child, parentCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
