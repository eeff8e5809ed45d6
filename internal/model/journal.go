package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType records how a journal entry came to exist.
type EntryType string

const (
	EntryTypeManual     EntryType = "manual"
	EntryTypeAutomated  EntryType = "automated"
	EntryTypeAdjustment EntryType = "adjustment"
	EntryTypeOpening    EntryType = "opening"
	EntryTypeClosing    EntryType = "closing"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeManual, EntryTypeAutomated, EntryTypeAdjustment, EntryTypeOpening, EntryTypeClosing:
		return true
	}
	return false
}

// FinancialPeriod is a named date range entries can be attached to.
type FinancialPeriod struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null"`
	StartDate time.Time `gorm:"not null;index"`
	EndDate   time.Time `gorm:"not null;index"`
	IsClosed  bool      `gorm:"not null;default:false"`
	ClosedAt  *time.Time
	Notes     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the database table name.
func (FinancialPeriod) TableName() string { return "financial_periods" }

// Contains reports whether d falls inside the period, both ends inclusive.
func (p FinancialPeriod) Contains(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(DateOf(p.StartDate)) && !d.After(DateOf(p.EndDate))
}

// JournalEntry is the header of a double-entry transaction.
type JournalEntry struct {
	ID          uint      `gorm:"primaryKey"`
	EntryNumber string    `gorm:"type:varchar(30);not null;uniqueIndex"`
	EntryDate   time.Time `gorm:"not null;index"`
	EntryType   EntryType `gorm:"type:varchar(20);not null;default:'manual'"`
	Description string    `gorm:"type:text"`
	// Reference deduplicates automated entries; empty for manual ones.
	// Migrate adds a unique index over the non-empty values.
	Reference  string `gorm:"type:varchar(120);index"`
	PropertyID *uint  `gorm:"index"`
	ContractID *uint  `gorm:"index"`
	PeriodID   *uint  `gorm:"index"`
	IsPosted   bool   `gorm:"not null;default:false;index"`
	PostedAt   *time.Time
	CreatedBy  string             `gorm:"type:varchar(100)"`
	Lines      []JournalEntryLine `gorm:"foreignKey:JournalEntryID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName sets the database table name.
func (JournalEntry) TableName() string { return "journal_entries" }

// TotalDebit sums the debit side of the loaded lines.
func (e JournalEntry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.DebitAmount)
	}
	return total
}

// TotalCredit sums the credit side of the loaded lines.
func (e JournalEntry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.CreditAmount)
	}
	return total
}

// IsBalanced reports whether debits equal credits exactly.
func (e JournalEntry) IsBalanced() bool {
	return e.TotalDebit().Equal(e.TotalCredit())
}

// JournalEntryLine debits or credits one account.
type JournalEntryLine struct {
	ID             uint            `gorm:"primaryKey"`
	JournalEntryID uint            `gorm:"not null;index"`
	AccountID      uint            `gorm:"not null;index"`
	Account        *Account        `gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT"`
	DebitAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	CreditAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Description    string          `gorm:"type:varchar(255)"`
	// Position keeps display order stable.
	Position  int `gorm:"not null;default:0"`
	CreatedAt time.Time
}

// TableName sets the database table name.
func (JournalEntryLine) TableName() string { return "journal_entry_lines" }

// Net returns debit minus credit.
func (l JournalEntryLine) Net() decimal.Decimal {
	return l.DebitAmount.Sub(l.CreditAmount)
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
