package period

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/audit"
	"github.com/propledger/propledger/internal/model"
)

var (
	ErrNotFound     = errors.New("financial period not found")
	ErrInvalidRange = errors.New("period start must be before its end")
	ErrOverlap      = errors.New("period overlaps an existing period")
)

var validate = validator.New()

// Service manages financial periods.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewService creates a Service backed by db.
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log.Named("period")}
}

// WithTx returns a copy of the service that runs on tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx, log: s.log}
}

// CreateParams describes a new period.
type CreateParams struct {
	Name  string    `validate:"required,max=100"`
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required"`
	Notes string
}

// Create adds an open period. Periods never overlap.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.FinancialPeriod, error) {
	if err := validate.Struct(p); err != nil {
		return model.FinancialPeriod{}, fmt.Errorf("invalid period: %w", err)
	}
	start, end := model.DateOf(p.Start), model.DateOf(p.End)
	if !start.Before(end) {
		return model.FinancialPeriod{}, fmt.Errorf("%w: %s to %s", ErrInvalidRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	period := model.FinancialPeriod{Name: p.Name, StartDate: start, EndDate: end, Notes: p.Notes}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var clash model.FinancialPeriod
		err := tx.Where("start_date <= ? AND end_date >= ?", end, start).Take(&clash).Error
		if err == nil {
			return fmt.Errorf("%w: %q", ErrOverlap, clash.Name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking overlap: %w", err)
		}
		if err := tx.Create(&period).Error; err != nil {
			return fmt.Errorf("creating period: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.FinancialPeriod{}, err
	}
	return period, nil
}

// Get returns a period by ID.
func (s *Service) Get(ctx context.Context, id uint) (model.FinancialPeriod, error) {
	var p model.FinancialPeriod
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.FinancialPeriod{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return model.FinancialPeriod{}, fmt.Errorf("loading period %d: %w", id, err)
	}
	return p, nil
}

// List returns every period, newest first.
func (s *Service) List(ctx context.Context) ([]model.FinancialPeriod, error) {
	var periods []model.FinancialPeriod
	if err := s.db.WithContext(ctx).Order("start_date DESC").Find(&periods).Error; err != nil {
		return nil, fmt.Errorf("listing periods: %w", err)
	}
	return periods, nil
}

// ForDate returns the period containing d, or ErrNotFound.
func (s *Service) ForDate(ctx context.Context, d time.Time) (model.FinancialPeriod, error) {
	d = model.DateOf(d)
	var p model.FinancialPeriod
	err := s.db.WithContext(ctx).Where("start_date <= ? AND end_date >= ?", d, d).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.FinancialPeriod{}, fmt.Errorf("%w: no period contains %s", ErrNotFound, d.Format(time.DateOnly))
	}
	if err != nil {
		return model.FinancialPeriod{}, fmt.Errorf("finding period for %s: %w", d.Format(time.DateOnly), err)
	}
	return p, nil
}

// Close marks a period closed. Closing is one-way; closing a closed period
// returns it unchanged.
func (s *Service) Close(ctx context.Context, id uint, actor string) (model.FinancialPeriod, error) {
	var closed model.FinancialPeriod
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.WithTx(tx).Get(ctx, id)
		if err != nil {
			return err
		}
		if p.IsClosed {
			closed = p
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Model(&p).Updates(map[string]any{"is_closed": true, "closed_at": now}).Error; err != nil {
			return fmt.Errorf("closing period %q: %w", p.Name, err)
		}
		p.IsClosed = true
		p.ClosedAt = &now

		rec := audit.Record(actor, audit.ActionPeriodClosed, p.Name,
			fmt.Sprintf("%s to %s", p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly)))
		if err := audit.Append(ctx, tx, rec); err != nil {
			return err
		}
		closed = p
		return nil
	})
	if err != nil {
		return model.FinancialPeriod{}, err
	}
	s.log.Info("period closed", zap.String("period", closed.Name))
	return closed, nil
}
