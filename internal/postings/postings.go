package postings

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/model"
)

// Reference prefixes identifying the source event of an automated entry.
const (
	RefSalesPayment = "SALES-PAY-"
	RefRentPayment  = "RENT-PAY-"
	RefMaintenance  = "MAINT-"
)

var validate = validator.New()

var defaultMethodAccounts = map[model.PaymentMethod]string{
	model.MethodCash:         accounts.CodeCash,
	model.MethodBankTransfer: accounts.CodeBank,
	model.MethodCheck:        accounts.CodeChecksReceived,
	model.MethodCreditCard:   accounts.CodeBank,
	model.MethodMortgage:     accounts.CodeMortgageReceivable,
	model.MethodOnline:       accounts.CodeBank,
}

// Poster turns collaborator events into automated journal entries.
type Poster struct {
	db      *gorm.DB
	journal *journal.Service
	methods map[model.PaymentMethod]string
	log     *zap.Logger
}

// New creates a Poster. overrides remap payment methods to other account
// codes.
func New(db *gorm.DB, j *journal.Service, overrides []config.PaymentAccount, log *zap.Logger) *Poster {
	if log == nil {
		log = zap.NewNop()
	}
	methods := make(map[model.PaymentMethod]string, len(defaultMethodAccounts))
	for m, code := range defaultMethodAccounts {
		methods[m] = code
	}
	for _, o := range overrides {
		methods[model.PaymentMethod(o.Method)] = o.AccountCode
	}
	return &Poster{db: db, journal: j, methods: methods, log: log.Named("postings")}
}

// MethodAccountCode returns the account code money received or paid by
// method settles into. Unknown methods settle into the main bank account.
func (p *Poster) MethodAccountCode(method model.PaymentMethod) string {
	if code, ok := p.methods[method]; ok {
		return code
	}
	return accounts.CodeBank
}

// AccountTx resolves an account by code inside tx. Codes of the default
// chart are created on first use; other codes must exist.
func (p *Poster) AccountTx(ctx context.Context, tx *gorm.DB, code string) (model.Account, error) {
	svc := accounts.NewService(tx, p.log)
	def, ok := accounts.SystemAccount(code)
	if !ok {
		acct, err := svc.GetByCode(ctx, code)
		if err != nil {
			return model.Account{}, fmt.Errorf("resolving account %s: %w", code, err)
		}
		return acct, nil
	}
	return svc.EnsureSystemAccount(ctx, def.Code, def.Name, def.Type)
}

// PaymentEvent is a completed payment recorded by a sales or rental
// collaborator.
type PaymentEvent struct {
	ReceiptNumber string    `validate:"required"`
	Date          time.Time `validate:"required"`
	Amount        decimal.Decimal
	Method        model.PaymentMethod
	PropertyID    *uint
	ContractID    *uint
	Description   string
	CreatedBy     string
}

// MaintenanceEvent is a maintenance cost incurred against a property.
type MaintenanceEvent struct {
	RequestNumber string    `validate:"required"`
	Date          time.Time `validate:"required"`
	Amount        decimal.Decimal
	Method        model.PaymentMethod
	PropertyID    *uint
	Description   string
	CreatedBy     string
}

// SalesPayment debits the method account and credits property sales
// revenue.
func (p *Poster) SalesPayment(ctx context.Context, ev PaymentEvent) (journal.AutomatedResult, error) {
	if err := validate.Struct(ev); err != nil {
		return journal.AutomatedResult{}, fmt.Errorf("invalid sales payment: %w", err)
	}
	desc := ev.Description
	if desc == "" {
		desc = "Sales payment " + ev.ReceiptNumber
	}
	return p.record(ctx, p.MethodAccountCode(ev.Method), accounts.CodeSalesRevenue, journal.AutomatedParams{
		Date:        ev.Date,
		Description: desc,
		Reference:   RefSalesPayment + ev.ReceiptNumber,
		Amount:      ev.Amount,
		PropertyID:  ev.PropertyID,
		ContractID:  ev.ContractID,
		CreatedBy:   ev.CreatedBy,
	})
}

// RentPayment debits the method account and credits rental income.
func (p *Poster) RentPayment(ctx context.Context, ev PaymentEvent) (journal.AutomatedResult, error) {
	if err := validate.Struct(ev); err != nil {
		return journal.AutomatedResult{}, fmt.Errorf("invalid rent payment: %w", err)
	}
	desc := ev.Description
	if desc == "" {
		desc = "Rent payment " + ev.ReceiptNumber
	}
	return p.record(ctx, p.MethodAccountCode(ev.Method), accounts.CodeRentalIncome, journal.AutomatedParams{
		Date:        ev.Date,
		Description: desc,
		Reference:   RefRentPayment + ev.ReceiptNumber,
		Amount:      ev.Amount,
		PropertyID:  ev.PropertyID,
		ContractID:  ev.ContractID,
		CreatedBy:   ev.CreatedBy,
	})
}

// MaintenanceCost debits maintenance expense and credits the account the
// cost was paid from.
func (p *Poster) MaintenanceCost(ctx context.Context, ev MaintenanceEvent) (journal.AutomatedResult, error) {
	if err := validate.Struct(ev); err != nil {
		return journal.AutomatedResult{}, fmt.Errorf("invalid maintenance cost: %w", err)
	}
	desc := ev.Description
	if desc == "" {
		desc = "Maintenance " + ev.RequestNumber
	}
	return p.record(ctx, accounts.CodeMaintenance, p.MethodAccountCode(ev.Method), journal.AutomatedParams{
		Date:        ev.Date,
		Description: desc,
		Reference:   RefMaintenance + ev.RequestNumber,
		Amount:      ev.Amount,
		PropertyID:  ev.PropertyID,
		CreatedBy:   ev.CreatedBy,
	})
}

func (p *Poster) record(ctx context.Context, debitCode, creditCode string, params journal.AutomatedParams) (journal.AutomatedResult, error) {
	var (
		res     journal.AutomatedResult
		pending []events.Event
	)
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debit, err := p.AccountTx(ctx, tx, debitCode)
		if err != nil {
			return err
		}
		credit, err := p.AccountTx(ctx, tx, creditCode)
		if err != nil {
			return err
		}
		params.DebitAccountID = debit.ID
		params.CreditAccountID = credit.ID

		res, pending, err = p.journal.RecordAutomatedTx(ctx, tx, params)
		return err
	})
	if err != nil {
		return journal.AutomatedResult{}, fmt.Errorf("recording %s: %w", params.Reference, err)
	}
	p.journal.FinishAutomated(ctx, res, pending)
	return res, nil
}
