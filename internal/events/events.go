package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types published by the ledger services.
const (
	TypeEntryPosted        = "journal.entry_posted"
	TypePaymentApplied     = "billing.payment_applied"
	TypeBudgetThreshold    = "budget.threshold_reached"
	TypeBudgetExceeded     = "budget.exceeded"
	TypeAutomatedDuplicate = "journal.automated_duplicate"
)

// Event is one fact that happened after a transaction committed.
type Event struct {
	ID         uuid.UUID
	Type       string
	OccurredAt time.Time
	Payload    any
}

// New stamps a payload with an ID and time.
func New(eventType string, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// EntryPosted is the payload of TypeEntryPosted.
type EntryPosted struct {
	EntryID     uint
	EntryNumber string
	EntryType   string
	EntryDate   time.Time
	Reference   string
	PropertyID  *uint
	AccountIDs  []uint
}

// PaymentApplied is the payload of TypePaymentApplied.
type PaymentApplied struct {
	PaymentID     uint
	PaymentNumber string
	InvoiceID     uint
	InvoiceNumber string
	Amount        decimal.Decimal
	PaidAmount    decimal.Decimal
	Status        string
}

// BudgetAlert is the payload of the budget event types.
type BudgetAlert struct {
	BudgetID    uint
	Name        string
	Budgeted    decimal.Decimal
	Spent       decimal.Decimal
	Utilization float64
}

// AutomatedDuplicate is the payload of TypeAutomatedDuplicate.
type AutomatedDuplicate struct {
	Reference   string
	EntryNumber string
}

// Handler reacts to one event. Returned errors are logged, never propagated.
type Handler func(ctx context.Context, e Event) error

// Bus dispatches events synchronously to subscribers. A nil *Bus drops
// everything, so services can run without one.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
}

// NewBus creates an empty Bus.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{handlers: make(map[string][]Handler), log: log.Named("events")}
}

// Subscribe registers h for eventType.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish delivers events in order to every subscriber of their type.
func (b *Bus) Publish(ctx context.Context, evts ...Event) {
	if b == nil {
		return
	}
	for _, e := range evts {
		b.mu.RLock()
		handlers := append([]Handler(nil), b.handlers[e.Type]...)
		b.mu.RUnlock()

		for _, h := range handlers {
			if err := b.dispatch(ctx, h, e); err != nil {
				b.log.Warn("event handler failed",
					zap.String("event_type", e.Type),
					zap.String("event_id", e.ID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event_type", e.Type),
				zap.Any("panic", r),
			)
		}
	}()
	return h(ctx, e)
}
