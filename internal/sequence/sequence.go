package sequence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propledger/propledger/internal/id"
	"github.com/propledger/propledger/internal/model"
)

// ErrSequenceExhausted is returned when a counter could not be advanced
// within the configured number of attempts.
var ErrSequenceExhausted = errors.New("sequence: could not allocate number")

// DefaultMaxAttempts bounds allocation when no limit is configured.
const DefaultMaxAttempts = 5

// Sequencer hands out document numbers from per-prefix counter rows.
type Sequencer struct {
	maxAttempts int
}

// New creates a Sequencer. maxAttempts < 1 selects DefaultMaxAttempts.
func New(maxAttempts int) *Sequencer {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Sequencer{maxAttempts: maxAttempts}
}

// Next advances the counter for prefix and returns the new value. It must run
// inside the caller's transaction: the UPDATE holds the counter row lock until
// that transaction ends, so concurrent writers queue instead of colliding.
func (s *Sequencer) Next(ctx context.Context, tx *gorm.DB, prefix string) (int64, error) {
	for attempt := 1; ; attempt++ {
		res := tx.WithContext(ctx).
			Model(&model.Sequence{}).
			Where("prefix = ?", prefix).
			Update("last_value", gorm.Expr("last_value + ?", 1))
		if res.Error != nil {
			return 0, fmt.Errorf("advancing sequence %s: %w", prefix, res.Error)
		}
		if res.RowsAffected == 1 {
			var seq model.Sequence
			if err := tx.WithContext(ctx).Where("prefix = ?", prefix).Take(&seq).Error; err != nil {
				return 0, fmt.Errorf("reading sequence %s: %w", prefix, err)
			}
			return seq.LastValue, nil
		}

		if attempt > s.maxAttempts {
			return 0, fmt.Errorf("%w: %s after %d attempts", ErrSequenceExhausted, prefix, attempt)
		}

		// First use of this prefix. A concurrent creator wins silently.
		err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Sequence{Prefix: prefix}).Error
		if err != nil {
			return 0, fmt.Errorf("creating sequence %s: %w", prefix, err)
		}
	}
}

// Number allocates the next document number of kind for year,
// e.g. Number(ctx, tx, "JE", 2025) -> "JE-2025-00001".
func (s *Sequencer) Number(ctx context.Context, tx *gorm.DB, kind string, year int) (string, error) {
	seq, err := s.Next(ctx, tx, id.Prefix(kind, year))
	if err != nil {
		return "", err
	}
	return id.Format(kind, year, seq), nil
}

// Current returns the last value handed out for prefix, 0 if none.
func (s *Sequencer) Current(ctx context.Context, db *gorm.DB, prefix string) (int64, error) {
	var seq model.Sequence
	err := db.WithContext(ctx).Where("prefix = ?", prefix).Take(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading sequence %s: %w", prefix, err)
	}
	return seq.LastValue, nil
}
