package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget plans spending on one account for one period, optionally scoped
// to a single property.
type Budget struct {
	ID             uint             `gorm:"primaryKey"`
	Name           string           `gorm:"type:varchar(200);not null"`
	PeriodID       uint             `gorm:"not null;index"`
	Period         *FinancialPeriod `gorm:"foreignKey:PeriodID;constraint:OnDelete:RESTRICT"`
	AccountID      uint             `gorm:"not null;index"`
	Account        *Account         `gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT"`
	BudgetedAmount decimal.Decimal  `gorm:"type:decimal(15,2);not null"`
	PropertyID     *uint            `gorm:"index"`
	Notes          string           `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName sets the database table name.
func (Budget) TableName() string { return "budgets" }

// Sequence is the counter row behind one document-number prefix.
type Sequence struct {
	Prefix    string `gorm:"primaryKey;type:varchar(30)"`
	LastValue int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName sets the database table name.
func (Sequence) TableName() string { return "number_sequences" }

// AuditRecord is one append-only line of the ledger audit trail.
type AuditRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"not null;index"`
	Actor     string    `gorm:"type:varchar(100)"`
	Action    string    `gorm:"type:varchar(60);not null;index"`
	Subject   string    `gorm:"type:varchar(60);index"`
	Details   string    `gorm:"type:text"`
}

// TableName sets the database table name.
func (AuditRecord) TableName() string { return "audit_records" }

// All lists every persistent type, in dependency order, for migration.
func All() []any {
	return []any{
		&Account{},
		&FinancialPeriod{},
		&JournalEntry{},
		&JournalEntryLine{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&Budget{},
		&Sequence{},
		&AuditRecord{},
	}
}
