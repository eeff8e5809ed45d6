package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// AccountTypes lists the account types in chart-of-accounts order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which accounts of this type increase.
func (t AccountType) NormalSide() BalanceSide {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return SideDebit
	}
	return SideCredit
}

// CodePrefix returns the leading digit of account codes of this type
// (1xxx assets through 5xxx expenses).
func (t AccountType) CodePrefix() string {
	switch t {
	case AccountTypeAsset:
		return "1"
	case AccountTypeLiability:
		return "2"
	case AccountTypeEquity:
		return "3"
	case AccountTypeRevenue:
		return "4"
	case AccountTypeExpense:
		return "5"
	}
	return ""
}

// BalanceSide is the debit or credit side of the ledger.
type BalanceSide string

const (
	SideDebit  BalanceSide = "debit"
	SideCredit BalanceSide = "credit"
)

// Valid reports whether s is debit or credit.
func (s BalanceSide) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// Account is a row in the chart of accounts.
type Account struct {
	ID                 uint            `gorm:"primaryKey"`
	Code               string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name               string          `gorm:"type:varchar(200);not null"`
	Type               AccountType     `gorm:"column:account_type;type:varchar(20);not null;index"`
	ParentID           *uint           `gorm:"index"`
	Description        string          `gorm:"type:text"`
	OpeningBalance     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	OpeningBalanceType BalanceSide     `gorm:"type:varchar(10);not null;default:'debit'"`
	IsActive           bool            `gorm:"not null;default:true"`
	IsSystem           bool            `gorm:"not null;default:false"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// SignedOpening returns the opening balance expressed on the account's
// normal side: positive when the opening sits on the normal side.
func (a Account) SignedOpening() decimal.Decimal {
	side := a.OpeningBalanceType
	if side == "" {
		side = a.Type.NormalSide()
	}
	if side == a.Type.NormalSide() {
		return a.OpeningBalance
	}
	return a.OpeningBalance.Neg()
}

// Label renders "1010 Cash on Hand".
func (a Account) Label() string {
	return a.Code + " " + a.Name
}
