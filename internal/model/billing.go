package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceIssued    InvoiceStatus = "issued"
	InvoicePartial   InvoiceStatus = "partial"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// CanApplyPayment reports whether payments may be recorded against the invoice.
func (s InvoiceStatus) CanApplyPayment() bool {
	return s == InvoiceIssued || s == InvoicePartial
}

// InvoiceType categorizes what the invoice bills for.
type InvoiceType string

const (
	InvoiceTypeRent        InvoiceType = "rent"
	InvoiceTypeSale        InvoiceType = "sale"
	InvoiceTypeMaintenance InvoiceType = "maintenance"
	InvoiceTypeService     InvoiceType = "service"
	InvoiceTypeOther       InvoiceType = "other"
)

// Invoice is a billing document.
type Invoice struct {
	ID             uint            `gorm:"primaryKey"`
	InvoiceNumber  string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	InvoiceType    InvoiceType     `gorm:"type:varchar(20);not null;default:'rent'"`
	InvoiceDate    time.Time       `gorm:"not null;index"`
	DueDate        time.Time       `gorm:"not null;index"`
	PropertyID     *uint           `gorm:"index"`
	ContractID     *uint           `gorm:"index"`
	BillTo         string          `gorm:"type:varchar(200)"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);not null;default:'draft';index"`
	Notes          string          `gorm:"type:text"`
	Items          []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedBy      string          `gorm:"type:varchar(100)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Balance returns the amount still owed.
func (i Invoice) Balance() decimal.Decimal {
	return i.TotalAmount.Sub(i.PaidAmount)
}

// IsOverdue reports whether the invoice is unpaid past its due date.
func (i Invoice) IsOverdue(today time.Time) bool {
	return i.Status.CanApplyPayment() && DateOf(i.DueDate).Before(DateOf(today))
}

// InvoiceItem is one billed line.
type InvoiceItem struct {
	ID           uint            `gorm:"primaryKey"`
	InvoiceID    uint            `gorm:"not null;index"`
	Description  string          `gorm:"type:varchar(255);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:1"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	DiscountRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Position     int             `gorm:"not null;default:0"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

var hundred = decimal.NewFromInt(100)

// Amount is quantity times unit price.
func (it InvoiceItem) Amount() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}

// Tax is the item amount times its tax rate.
func (it InvoiceItem) Tax() decimal.Decimal {
	return it.Amount().Mul(it.TaxRate).Div(hundred)
}

// Discount is the item amount times its discount rate.
func (it InvoiceItem) Discount() decimal.Decimal {
	return it.Amount().Mul(it.DiscountRate).Div(hundred)
}

// Total is the item amount plus tax minus discount, both taken from the
// undiscounted amount.
func (it InvoiceItem) Total() decimal.Decimal {
	return it.Amount().Add(it.Tax()).Sub(it.Discount()).Round(2)
}

// PaymentType distinguishes money received from money paid out.
type PaymentType string

const (
	PaymentTypeReceipt PaymentType = "receipt"
	PaymentTypePayment PaymentType = "payment"
)

// NumberPrefix returns the document prefix for payments of this type.
func (t PaymentType) NumberPrefix() string {
	switch t {
	case PaymentTypeReceipt:
		return "RCV"
	case PaymentTypePayment:
		return "PAY"
	}
	return "PMT"
}

// PaymentMethod is how money moved.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheck        PaymentMethod = "check"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodMortgage     PaymentMethod = "mortgage"
	MethodOnline       PaymentMethod = "online"
)

// Payment is a receipt or payment voucher.
type Payment struct {
	ID              uint            `gorm:"primaryKey"`
	PaymentNumber   string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	PaymentType     PaymentType     `gorm:"type:varchar(20);not null;index"`
	PaymentDate     time.Time       `gorm:"not null;index"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(30);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	InvoiceID       *uint           `gorm:"index"`
	ReferenceNumber string          `gorm:"type:varchar(100)"`
	Notes           string          `gorm:"type:text"`
	CreatedBy       string          `gorm:"type:varchar(100)"`
	CreatedAt       time.Time
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
