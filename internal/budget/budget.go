package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/metrics"
	"github.com/propledger/propledger/internal/model"
	"github.com/propledger/propledger/internal/period"
)

var (
	ErrNotFound      = errors.New("budget not found")
	ErrInvalidAmount = errors.New("budgeted amount must be zero or positive with at most 2 decimal places")
)

// DefaultWarningThreshold is the utilization percentage that raises a
// warning when none is configured.
const DefaultWarningThreshold = 80

// Level grades a budget's utilization.
type Level string

const (
	LevelOK       Level = "ok"
	LevelWarning  Level = "warning"
	LevelExceeded Level = "exceeded"
)

func (l Level) rank() int {
	switch l {
	case LevelWarning:
		return 1
	case LevelExceeded:
		return 2
	}
	return 0
}

var validate = validator.New()

// Options configures a Service.
type Options struct {
	WarningThreshold float64
	Bus              *events.Bus
	Metrics          *metrics.Ledger
}

// Service plans spending and reports utilization against posted entries.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	opts     Options
	accounts *accounts.Service
	periods  *period.Service

	mu   sync.Mutex
	last map[uint]Level
}

// NewService creates a budget Service.
func NewService(db *gorm.DB, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WarningThreshold <= 0 {
		opts.WarningThreshold = DefaultWarningThreshold
	}
	return &Service{
		db:       db,
		log:      log.Named("budget"),
		opts:     opts,
		accounts: accounts.NewService(db, log),
		periods:  period.NewService(db, log),
		last:     make(map[uint]Level),
	}
}

// CreateParams holds parameters for a new budget.
type CreateParams struct {
	Name       string `validate:"required,max=200"`
	PeriodID   uint   `validate:"required"`
	AccountID  uint   `validate:"required"`
	Amount     decimal.Decimal
	PropertyID *uint
	Notes      string
}

// Create stores a budget for an existing period and account.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Budget, error) {
	if err := validate.Struct(p); err != nil {
		return model.Budget{}, fmt.Errorf("invalid budget: %w", err)
	}
	if p.Amount.IsNegative() || !p.Amount.Equal(p.Amount.Round(2)) {
		return model.Budget{}, fmt.Errorf("%w: %s", ErrInvalidAmount, p.Amount)
	}
	if _, err := s.periods.Get(ctx, p.PeriodID); err != nil {
		return model.Budget{}, err
	}
	if _, err := s.accounts.Get(ctx, p.AccountID); err != nil {
		return model.Budget{}, err
	}

	b := model.Budget{
		Name:           p.Name,
		PeriodID:       p.PeriodID,
		AccountID:      p.AccountID,
		BudgetedAmount: p.Amount,
		PropertyID:     p.PropertyID,
		Notes:          p.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return model.Budget{}, fmt.Errorf("creating budget %q: %w", p.Name, err)
	}
	return b, nil
}

// Get returns a budget with its period and account.
func (s *Service) Get(ctx context.Context, id uint) (model.Budget, error) {
	var b model.Budget
	err := s.db.WithContext(ctx).Preload("Period").Preload("Account").First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Budget{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Budget{}, fmt.Errorf("loading budget %d: %w", id, err)
	}
	return b, nil
}

// List returns the budgets of a period, or of every period when periodID
// is 0.
func (s *Service) List(ctx context.Context, periodID uint) ([]model.Budget, error) {
	q := s.db.WithContext(ctx).Preload("Period").Preload("Account").Order("period_id, id")
	if periodID != 0 {
		q = q.Where("period_id = ?", periodID)
	}
	var out []model.Budget
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}
	return out, nil
}

// Spent returns posted debits minus credits on the budget's account within
// its period, limited to its property when one is set.
func (s *Service) Spent(ctx context.Context, b model.Budget) (decimal.Decimal, error) {
	p := b.Period
	if p == nil {
		loaded, err := s.periods.Get(ctx, b.PeriodID)
		if err != nil {
			return decimal.Zero, err
		}
		p = &loaded
	}
	sums, err := s.accounts.PostedMovements(ctx, accounts.MovementFilter{
		From:       p.StartDate,
		To:         p.EndDate,
		PropertyID: b.PropertyID,
		AccountIDs: []uint{b.AccountID},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("spent on budget %q: %w", b.Name, err)
	}
	m := sums[b.AccountID]
	return m.Debit.Sub(m.Credit), nil
}

// Utilization is spent as a percentage of the budgeted amount, 0 for a zero
// budget.
func Utilization(b model.Budget, spent decimal.Decimal) float64 {
	if b.BudgetedAmount.IsZero() {
		return 0
	}
	return spent.Div(b.BudgetedAmount).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// IsOverBudget reports whether spent exceeds the budgeted amount.
func IsOverBudget(b model.Budget, spent decimal.Decimal) bool {
	return spent.GreaterThan(b.BudgetedAmount)
}

// LevelFor grades utilization against a warning threshold percentage.
// Fully used budgets count as exceeded.
func LevelFor(utilization float64, over bool, threshold float64) Level {
	switch {
	case over || utilization >= 100:
		return LevelExceeded
	case utilization >= threshold:
		return LevelWarning
	}
	return LevelOK
}

// Status is a budget's utilization at one point in time.
type Status struct {
	Budget      model.Budget
	Spent       decimal.Decimal
	Remaining   decimal.Decimal
	Utilization float64
	OverBudget  bool
	Level       Level
}

func (s *Service) status(ctx context.Context, b model.Budget) (Status, error) {
	spent, err := s.Spent(ctx, b)
	if err != nil {
		return Status{}, err
	}
	u := Utilization(b, spent)
	over := IsOverBudget(b, spent)
	return Status{
		Budget:      b,
		Spent:       spent,
		Remaining:   b.BudgetedAmount.Sub(spent),
		Utilization: u,
		OverBudget:  over,
		Level:       LevelFor(u, over, s.opts.WarningThreshold),
	}, nil
}

// Status returns the current utilization of one budget.
func (s *Service) Status(ctx context.Context, id uint) (Status, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return Status{}, err
	}
	return s.status(ctx, b)
}

// Statuses returns the utilization of every budget in a period (all
// periods when periodID is 0).
func (s *Service) Statuses(ctx context.Context, periodID uint) ([]Status, error) {
	budgets, err := s.List(ctx, periodID)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		st, err := s.status(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Evaluate recomputes the budgets of a period and raises an alert for each
// budget whose level rose since it was last evaluated.
func (s *Service) Evaluate(ctx context.Context, periodID uint) ([]Status, error) {
	statuses, err := s.Statuses(ctx, periodID)
	if err != nil {
		return nil, err
	}
	s.alert(ctx, statuses)
	return statuses, nil
}

func (s *Service) alert(ctx context.Context, statuses []Status) {
	for _, st := range statuses {
		s.mu.Lock()
		prev := s.last[st.Budget.ID]
		s.last[st.Budget.ID] = st.Level
		s.mu.Unlock()

		if st.Level.rank() <= prev.rank() {
			continue
		}
		eventType := events.TypeBudgetThreshold
		if st.Level == LevelExceeded {
			eventType = events.TypeBudgetExceeded
		}
		s.opts.Metrics.BudgetAlert(string(st.Level))
		s.log.Warn("budget alert",
			zap.String("budget", st.Budget.Name),
			zap.String("level", string(st.Level)),
			zap.String("spent", st.Spent.StringFixed(2)),
			zap.String("budgeted", st.Budget.BudgetedAmount.StringFixed(2)),
			zap.Float64("utilization", st.Utilization),
		)
		s.opts.Bus.Publish(ctx, events.New(eventType, events.BudgetAlert{
			BudgetID:    st.Budget.ID,
			Name:        st.Budget.Name,
			Budgeted:    st.Budget.BudgetedAmount,
			Spent:       st.Spent,
			Utilization: st.Utilization,
		}))
	}
}

// HandleEntryPosted re-evaluates the budgets touched by a posted entry:
// those on one of its accounts whose period contains its date.
func (s *Service) HandleEntryPosted(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.EntryPosted)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Type)
	}
	if len(p.AccountIDs) == 0 {
		return nil
	}
	d := model.DateOf(p.EntryDate)

	var budgets []model.Budget
	err := s.db.WithContext(ctx).
		Preload("Period").Preload("Account").
		Joins("JOIN financial_periods AS fp ON fp.id = budgets.period_id").
		Where("budgets.account_id IN ? AND fp.start_date <= ? AND fp.end_date >= ?", p.AccountIDs, d, d).
		Order("budgets.id").
		Find(&budgets).Error
	if err != nil {
		return fmt.Errorf("finding budgets for %s: %w", p.EntryNumber, err)
	}

	statuses := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		st, err := s.status(ctx, b)
		if err != nil {
			return err
		}
		statuses = append(statuses, st)
	}
	s.alert(ctx, statuses)
	return nil
}

// Subscribe wires the service to posting events on bus.
func (s *Service) Subscribe(bus *events.Bus) {
	if bus == nil {
		return
	}
	bus.Subscribe(events.TypeEntryPosted, s.HandleEntryPosted)
}
