package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propledger/propledger/internal/audit"
	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/id"
	"github.com/propledger/propledger/internal/metrics"
	"github.com/propledger/propledger/internal/model"
	"github.com/propledger/propledger/internal/period"
	"github.com/propledger/propledger/internal/sequence"
)

var (
	ErrNotFound        = errors.New("journal entry not found")
	ErrPostedImmutable = errors.New("posted entries cannot be changed")
	ErrPeriodClosed    = errors.New("financial period is closed")
	ErrPeriodMismatch  = errors.New("entry date is outside its period")
	ErrUnbalanced      = errors.New("entry is not balanced")
	ErrAlreadyPosted   = errors.New("entry is already posted")
	ErrNotPosted       = errors.New("only posted entries can be reversed")
	ErrAlreadyReversed = errors.New("entry has already been reversed")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrDuplicateRef    = errors.New("reference is already used")
)

// UnbalancedReason is the message shown when a post is refused.
const UnbalancedReason = "Cannot post entry. Entry must be balanced!"

var validate = validator.New()

// Options configures a Service. Zero values are usable.
type Options struct {
	EnforceClosedPeriods bool
	Sequencer            *sequence.Sequencer
	Bus                  *events.Bus
	Metrics              *metrics.Ledger
}

// Service records and posts journal entries.
type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	opts Options
}

// NewService creates a journal Service.
func NewService(db *gorm.DB, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Sequencer == nil {
		opts.Sequencer = sequence.New(sequence.DefaultMaxAttempts)
	}
	return &Service{db: db, log: log.Named("journal"), opts: opts}
}

// LineParams is one debit or credit line of a new entry.
type LineParams struct {
	AccountID   uint `validate:"required"`
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string `validate:"max=255"`
}

// CreateParams holds parameters for a draft entry.
type CreateParams struct {
	Date        time.Time       `validate:"required"`
	Type        model.EntryType `validate:"omitempty,oneof=manual automated adjustment opening closing"`
	Description string          `validate:"required"`
	Reference   string          `validate:"max=120"`
	PropertyID  *uint
	ContractID  *uint
	PeriodID    *uint
	CreatedBy   string
	Lines       []LineParams `validate:"dive"`
}

// PostResult reports the outcome of a post attempt. Business-rule failures
// are results, not errors: Posted is false, Reason is user-facing and Cause
// matches one of the package errors.
type PostResult struct {
	Posted     bool
	Reason     string
	Cause      error
	Violations ValidationErrors
	Entry      model.JournalEntry
}

// Create stores a draft entry. Drafts may be unbalanced; every other rule
// is enforced.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.JournalEntry, error) {
	var entry model.JournalEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.CreateTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return model.JournalEntry{}, err
	}
	s.log.Debug("draft entry created", zap.String("entry_number", entry.EntryNumber))
	return entry, nil
}

// CreateTx is Create inside the caller's transaction.
func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, p CreateParams) (model.JournalEntry, error) {
	if err := validate.Struct(p); err != nil {
		return model.JournalEntry{}, fmt.Errorf("invalid entry: %w", err)
	}
	if p.Type == "" {
		p.Type = model.EntryTypeManual
	}
	date := model.DateOf(p.Date)

	lines := buildLines(p.Lines)
	chart, err := loadChart(ctx, tx, lines)
	if err != nil {
		return model.JournalEntry{}, err
	}
	if verrs := Validate("new entry", lines, chart).Without(RuleBalanced); len(verrs) > 0 {
		return model.JournalEntry{}, verrs
	}

	periodID, err := s.resolvePeriod(ctx, tx, date, p.PeriodID)
	if err != nil {
		return model.JournalEntry{}, err
	}

	if p.Reference != "" {
		if existing, found, err := s.findByReference(ctx, tx, p.Reference); err != nil {
			return model.JournalEntry{}, err
		} else if found {
			return model.JournalEntry{}, fmt.Errorf("%w: %s by %s", ErrDuplicateRef, p.Reference, existing.EntryNumber)
		}
	}

	number, err := s.opts.Sequencer.Number(ctx, tx, id.KindJournalEntry, date.Year())
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("numbering entry: %w", err)
	}

	entry := model.JournalEntry{
		EntryNumber: number,
		EntryDate:   date,
		EntryType:   p.Type,
		Description: p.Description,
		Reference:   p.Reference,
		PropertyID:  p.PropertyID,
		ContractID:  p.ContractID,
		PeriodID:    periodID,
		CreatedBy:   p.CreatedBy,
		Lines:       lines,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return model.JournalEntry{}, fmt.Errorf("creating entry %s: %w", number, err)
	}
	return entry, nil
}

func buildLines(params []LineParams) []model.JournalEntryLine {
	lines := make([]model.JournalEntryLine, len(params))
	for i, lp := range params {
		lines[i] = model.JournalEntryLine{
			AccountID:    lp.AccountID,
			DebitAmount:  lp.Debit,
			CreditAmount: lp.Credit,
			Description:  lp.Description,
			Position:     i + 1,
		}
	}
	return lines
}

func loadChart(ctx context.Context, tx *gorm.DB, lines []model.JournalEntryLine) (Chart, error) {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.AccountID)
	}
	if len(ids) == 0 {
		return Chart{}, nil
	}
	var accts []model.Account
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&accts).Error; err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	return NewChart(accts), nil
}

// resolvePeriod checks an explicit period against the date, or finds the
// period containing the date. Entries outside every period have none.
func (s *Service) resolvePeriod(ctx context.Context, tx *gorm.DB, date time.Time, explicit *uint) (*uint, error) {
	periods := period.NewService(tx, s.log)
	if explicit != nil {
		p, err := periods.Get(ctx, *explicit)
		if err != nil {
			return nil, err
		}
		if !p.Contains(date) {
			return nil, fmt.Errorf("%w: %s not in %q", ErrPeriodMismatch, date.Format(time.DateOnly), p.Name)
		}
		return &p.ID, nil
	}
	p, err := periods.ForDate(ctx, date)
	if errors.Is(err, period.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p.ID, nil
}

// Post moves a draft entry to posted when every rule holds.
func (s *Service) Post(ctx context.Context, entryID uint, actor string) (PostResult, error) {
	var (
		res     PostResult
		pending []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		res, pending, err = s.PostTx(ctx, tx, entry, actor)
		return err
	})
	if err != nil {
		return PostResult{}, err
	}
	s.finishPost(ctx, res, pending)
	return res, nil
}

// PostTx posts a loaded entry inside the caller's transaction and returns
// the events to publish once that transaction commits.
func (s *Service) PostTx(ctx context.Context, tx *gorm.DB, entry model.JournalEntry, actor string) (PostResult, []events.Event, error) {
	res := PostResult{Entry: entry}
	if entry.IsPosted {
		res.Cause = ErrAlreadyPosted
		res.Reason = "Cannot post entry. Entry is already posted."
		return res, nil, nil
	}

	chart, err := loadChart(ctx, tx, entry.Lines)
	if err != nil {
		return res, nil, err
	}
	if verrs := Validate(entry.EntryNumber, entry.Lines, chart); len(verrs) > 0 {
		res.Violations = verrs
		if verrs.Has(RuleBalanced) {
			res.Cause = ErrUnbalanced
			res.Reason = UnbalancedReason
		} else {
			res.Cause = verrs
			res.Reason = "Cannot post entry. " + verrs.Error()
		}
		return res, nil, nil
	}

	if s.opts.EnforceClosedPeriods {
		closed, name, err := s.inClosedPeriod(ctx, tx, entry)
		if err != nil {
			return res, nil, err
		}
		if closed {
			res.Cause = ErrPeriodClosed
			res.Reason = fmt.Sprintf("Cannot post entry. Period %q is closed.", name)
			return res, nil, nil
		}
	}

	rec := audit.Record(actor, audit.ActionEntryPosted, entry.EntryNumber,
		fmt.Sprintf("%s debit=%s credit=%s", entry.EntryType, entry.TotalDebit().StringFixed(2), entry.TotalCredit().StringFixed(2)))
	if err := audit.Append(ctx, tx, rec); err != nil {
		return res, nil, err
	}

	// The posted flag is the last write: balances only see the entry once
	// everything else in this transaction has been written.
	now := time.Now().UTC()
	upd := tx.WithContext(ctx).Model(&model.JournalEntry{}).
		Where("id = ? AND is_posted = ?", entry.ID, false).
		Updates(map[string]any{"is_posted": true, "posted_at": now})
	if upd.Error != nil {
		return res, nil, fmt.Errorf("posting entry %s: %w", entry.EntryNumber, upd.Error)
	}
	if upd.RowsAffected == 0 {
		res.Cause = ErrAlreadyPosted
		res.Reason = "Cannot post entry. Entry is already posted."
		return res, nil, nil
	}

	entry.IsPosted = true
	entry.PostedAt = &now
	res.Entry = entry
	res.Posted = true
	return res, []events.Event{entryPostedEvent(entry)}, nil
}

func (s *Service) inClosedPeriod(ctx context.Context, tx *gorm.DB, entry model.JournalEntry) (bool, string, error) {
	periods := period.NewService(tx, s.log)
	var (
		p   model.FinancialPeriod
		err error
	)
	if entry.PeriodID != nil {
		p, err = periods.Get(ctx, *entry.PeriodID)
	} else {
		p, err = periods.ForDate(ctx, entry.EntryDate)
		if errors.Is(err, period.ErrNotFound) {
			return false, "", nil
		}
	}
	if err != nil {
		return false, "", err
	}
	return p.IsClosed, p.Name, nil
}

func entryPostedEvent(e model.JournalEntry) events.Event {
	ids := make([]uint, 0, len(e.Lines))
	seen := make(map[uint]bool, len(e.Lines))
	for _, l := range e.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	return events.New(events.TypeEntryPosted, events.EntryPosted{
		EntryID:     e.ID,
		EntryNumber: e.EntryNumber,
		EntryType:   string(e.EntryType),
		EntryDate:   e.EntryDate,
		Reference:   e.Reference,
		PropertyID:  e.PropertyID,
		AccountIDs:  ids,
	})
}

// finishPost records metrics, logs and publishes after a commit.
func (s *Service) finishPost(ctx context.Context, res PostResult, pending []events.Event) {
	if !res.Posted {
		s.opts.Metrics.PostRejected(rejectLabel(res.Cause))
		s.log.Info("entry not posted",
			zap.String("entry_number", res.Entry.EntryNumber),
			zap.String("reason", res.Reason),
		)
		return
	}
	s.opts.Metrics.EntryPosted(string(res.Entry.EntryType))
	s.log.Info("entry posted",
		zap.String("entry_number", res.Entry.EntryNumber),
		zap.String("entry_type", string(res.Entry.EntryType)),
	)
	s.opts.Bus.Publish(ctx, pending...)
}

func rejectLabel(cause error) string {
	switch {
	case errors.Is(cause, ErrUnbalanced):
		return metrics.RejectUnbalanced
	case errors.Is(cause, ErrPeriodClosed):
		return metrics.RejectPeriodClosed
	case errors.Is(cause, ErrAlreadyPosted):
		return metrics.RejectAlreadyPosted
	}
	return "invalid"
}

// lockEntry loads an entry with its lines, locking the header row where
// the database supports it.
func (s *Service) lockEntry(ctx context.Context, tx *gorm.DB, entryID uint) (model.JournalEntry, error) {
	var entry model.JournalEntry
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		First(&entry, entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.JournalEntry{}, fmt.Errorf("%w: id %d", ErrNotFound, entryID)
	}
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("loading entry %d: %w", entryID, err)
	}
	return entry, nil
}

// ReplaceLines swaps the lines of a draft entry.
func (s *Service) ReplaceLines(ctx context.Context, entryID uint, params []LineParams) (model.JournalEntry, error) {
	var entry model.JournalEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if entry.IsPosted {
			return fmt.Errorf("%w: %s", ErrPostedImmutable, entry.EntryNumber)
		}
		for i := range params {
			if err := validate.Struct(params[i]); err != nil {
				return fmt.Errorf("invalid line %d: %w", i+1, err)
			}
		}

		lines := buildLines(params)
		chart, err := loadChart(ctx, tx, lines)
		if err != nil {
			return err
		}
		if verrs := Validate(entry.EntryNumber, lines, chart).Without(RuleBalanced); len(verrs) > 0 {
			return verrs
		}

		if err := tx.Where("journal_entry_id = ?", entry.ID).Delete(&model.JournalEntryLine{}).Error; err != nil {
			return fmt.Errorf("removing lines of %s: %w", entry.EntryNumber, err)
		}
		for i := range lines {
			lines[i].JournalEntryID = entry.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("writing lines of %s: %w", entry.EntryNumber, err)
		}
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return model.JournalEntry{}, err
	}
	return entry, nil
}

// Delete removes a draft entry and its lines.
func (s *Service) Delete(ctx context.Context, entryID uint, actor string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if entry.IsPosted {
			return fmt.Errorf("%w: %s", ErrPostedImmutable, entry.EntryNumber)
		}
		if err := tx.Where("journal_entry_id = ?", entry.ID).Delete(&model.JournalEntryLine{}).Error; err != nil {
			return fmt.Errorf("removing lines of %s: %w", entry.EntryNumber, err)
		}
		if err := tx.Delete(&model.JournalEntry{}, entry.ID).Error; err != nil {
			return fmt.Errorf("deleting entry %s: %w", entry.EntryNumber, err)
		}
		return audit.Append(ctx, tx, audit.Record(actor, audit.ActionEntryDeleted, entry.EntryNumber, entry.Description))
	})
}

// Reverse posts an adjustment entry that mirrors a posted entry, undoing
// its effect on every account as of date.
func (s *Service) Reverse(ctx context.Context, entryID uint, date time.Time, reason, actor string) (model.JournalEntry, error) {
	var (
		res     PostResult
		pending []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orig, err := s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if !orig.IsPosted {
			return fmt.Errorf("%w: %s is a draft", ErrNotPosted, orig.EntryNumber)
		}
		ref := id.Reversal(orig.EntryNumber)
		if existing, found, err := s.findByReference(ctx, tx, ref); err != nil {
			return err
		} else if found {
			return fmt.Errorf("%w: %s by %s", ErrAlreadyReversed, orig.EntryNumber, existing.EntryNumber)
		}

		lines := make([]LineParams, len(orig.Lines))
		for i, l := range orig.Lines {
			lines[i] = LineParams{AccountID: l.AccountID, Debit: l.CreditAmount, Credit: l.DebitAmount, Description: l.Description}
		}
		desc := "Reversal of " + orig.EntryNumber
		if reason != "" {
			desc += ": " + reason
		}
		rev, err := s.CreateTx(ctx, tx, CreateParams{
			Date:        date,
			Type:        model.EntryTypeAdjustment,
			Description: desc,
			Reference:   ref,
			PropertyID:  orig.PropertyID,
			ContractID:  orig.ContractID,
			CreatedBy:   actor,
			Lines:       lines,
		})
		if err != nil {
			return err
		}

		res, pending, err = s.PostTx(ctx, tx, rev, actor)
		if err != nil {
			return err
		}
		if !res.Posted {
			return fmt.Errorf("posting reversal of %s: %w", orig.EntryNumber, res.Cause)
		}
		return audit.Append(ctx, tx, audit.Record(actor, audit.ActionEntryReversed, orig.EntryNumber, rev.EntryNumber))
	})
	if err != nil {
		return model.JournalEntry{}, err
	}
	s.finishPost(ctx, res, pending)
	return res.Entry, nil
}

// AutomatedParams describes a pre-balanced two-line entry created by a
// collaborator event. Reference identifies the source event.
type AutomatedParams struct {
	Date            time.Time `validate:"required"`
	Description     string    `validate:"required"`
	Reference       string    `validate:"required,max=120"`
	DebitAccountID  uint      `validate:"required"`
	CreditAccountID uint      `validate:"required"`
	Amount          decimal.Decimal
	PropertyID      *uint
	ContractID      *uint
	CreatedBy       string
}

// AutomatedResult reports whether RecordAutomated created a new entry.
type AutomatedResult struct {
	Entry   model.JournalEntry
	Created bool
}

// RecordAutomated creates and posts an automated entry unless one with the
// same reference exists, in which case the existing entry is returned.
func (s *Service) RecordAutomated(ctx context.Context, p AutomatedParams) (AutomatedResult, error) {
	var (
		res     AutomatedResult
		pending []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, pending, err = s.RecordAutomatedTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return AutomatedResult{}, err
	}
	s.FinishAutomated(ctx, res, pending)
	return res, nil
}

const automatedSavepoint = "automated_entry"

// RecordAutomatedTx is RecordAutomated inside the caller's transaction.
// The caller hands the result and events to FinishAutomated after commit.
func (s *Service) RecordAutomatedTx(ctx context.Context, tx *gorm.DB, p AutomatedParams) (AutomatedResult, []events.Event, error) {
	if err := validate.Struct(p); err != nil {
		return AutomatedResult{}, nil, fmt.Errorf("invalid automated entry: %w", err)
	}
	if !p.Amount.IsPositive() {
		return AutomatedResult{}, nil, fmt.Errorf("%w: %s", ErrInvalidAmount, p.Amount)
	}

	existing, found, err := s.findByReference(ctx, tx, p.Reference)
	if err != nil {
		return AutomatedResult{}, nil, err
	}
	if found {
		return AutomatedResult{Entry: existing}, nil, nil
	}

	// A concurrent writer can commit the same reference between the lookup
	// and the insert; the unique index rejects ours and we return theirs.
	if err := tx.SavePoint(automatedSavepoint).Error; err != nil {
		return AutomatedResult{}, nil, fmt.Errorf("automated entry %s: %w", p.Reference, err)
	}
	entry, err := s.CreateTx(ctx, tx, CreateParams{
		Date:        p.Date,
		Type:        model.EntryTypeAutomated,
		Description: p.Description,
		Reference:   p.Reference,
		PropertyID:  p.PropertyID,
		ContractID:  p.ContractID,
		CreatedBy:   p.CreatedBy,
		Lines: []LineParams{
			{AccountID: p.DebitAccountID, Debit: p.Amount, Description: p.Description},
			{AccountID: p.CreditAccountID, Credit: p.Amount, Description: p.Description},
		},
	})
	if err != nil {
		if rbErr := tx.RollbackTo(automatedSavepoint).Error; rbErr != nil {
			return AutomatedResult{}, nil, errors.Join(err, rbErr)
		}
		existing, found, ferr := s.findByReference(ctx, tx, p.Reference)
		if ferr == nil && found {
			return AutomatedResult{Entry: existing}, nil, nil
		}
		return AutomatedResult{}, nil, err
	}

	actor := p.CreatedBy
	if actor == "" {
		actor = "system"
	}
	res, pending, err := s.PostTx(ctx, tx, entry, actor)
	if err != nil {
		return AutomatedResult{}, nil, err
	}
	if !res.Posted {
		return AutomatedResult{}, nil, fmt.Errorf("posting automated entry %s: %w", p.Reference, res.Cause)
	}
	return AutomatedResult{Entry: res.Entry, Created: true}, pending, nil
}

// FinishAutomated logs, counts and publishes the outcome of a committed
// RecordAutomatedTx.
func (s *Service) FinishAutomated(ctx context.Context, res AutomatedResult, pending []events.Event) {
	if !res.Created {
		s.opts.Metrics.AutomatedDuplicate()
		s.log.Info("automated entry already recorded, skipping",
			zap.String("reference", res.Entry.Reference),
			zap.String("entry_number", res.Entry.EntryNumber),
		)
		s.opts.Bus.Publish(ctx, events.New(events.TypeAutomatedDuplicate, events.AutomatedDuplicate{
			Reference:   res.Entry.Reference,
			EntryNumber: res.Entry.EntryNumber,
		}))
		return
	}
	s.finishPost(ctx, PostResult{Posted: true, Entry: res.Entry}, pending)
}

func (s *Service) findByReference(ctx context.Context, tx *gorm.DB, ref string) (model.JournalEntry, bool, error) {
	var entry model.JournalEntry
	err := tx.WithContext(ctx).Where("reference = ?", ref).Order("id").Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.JournalEntry{}, false, nil
	}
	if err != nil {
		return model.JournalEntry{}, false, fmt.Errorf("looking up reference %s: %w", ref, err)
	}
	return entry, true, nil
}

// Get returns an entry with its lines and their accounts.
func (s *Service) Get(ctx context.Context, entryID uint) (model.JournalEntry, error) {
	return s.get(ctx, s.db.Where("id = ?", entryID), fmt.Sprintf("id %d", entryID))
}

// GetByNumber returns an entry by its entry number.
func (s *Service) GetByNumber(ctx context.Context, number string) (model.JournalEntry, error) {
	return s.get(ctx, s.db.Where("entry_number = ?", number), number)
}

// GetByReference returns the entry recorded for a source reference.
func (s *Service) GetByReference(ctx context.Context, ref string) (model.JournalEntry, error) {
	return s.get(ctx, s.db.Where("reference = ?", ref), "reference "+ref)
}

func (s *Service) get(ctx context.Context, q *gorm.DB, what string) (model.JournalEntry, error) {
	var entry model.JournalEntry
	err := q.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Lines.Account").
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.JournalEntry{}, fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("loading entry %s: %w", what, err)
	}
	return entry, nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Posted     *bool
	From       time.Time
	To         time.Time
	PropertyID *uint
	Type       model.EntryType
	Limit      int
}

// List returns entries with their lines, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]model.JournalEntry, error) {
	q := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Lines.Account").
		Order("entry_date DESC, id DESC")
	if f.Posted != nil {
		q = q.Where("is_posted = ?", *f.Posted)
	}
	if !f.From.IsZero() {
		q = q.Where("entry_date >= ?", model.DateOf(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("entry_date <= ?", model.DateOf(f.To))
	}
	if f.PropertyID != nil {
		q = q.Where("property_id = ?", *f.PropertyID)
	}
	if f.Type != "" {
		q = q.Where("entry_type = ?", f.Type)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var entries []model.JournalEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// AccountLine is one posted line of an account's history.
type AccountLine struct {
	EntryID      uint
	EntryNumber  string
	EntryDate    time.Time
	Description  string
	Reference    string
	DebitAmount  decimal.Decimal
	CreditAmount decimal.Decimal
}

// AccountLines returns posted lines of an account, newest first.
func (s *Service) AccountLines(ctx context.Context, accountID uint, limit int) ([]AccountLine, error) {
	q := s.db.WithContext(ctx).
		Table("journal_entry_lines AS l").
		Select("e.id AS entry_id, e.entry_number, e.entry_date, e.description, e.reference, l.debit_amount, l.credit_amount").
		Joins("JOIN journal_entries AS e ON e.id = l.journal_entry_id").
		Where("l.account_id = ? AND e.is_posted = ?", accountID, true).
		Order("e.entry_date DESC, e.id DESC, l.position")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []AccountLine
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing lines of account %d: %w", accountID, err)
	}
	return rows, nil
}
