package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/billing"
	"github.com/propledger/propledger/internal/budget"
	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/logger"
	"github.com/propledger/propledger/internal/metrics"
	"github.com/propledger/propledger/internal/period"
	"github.com/propledger/propledger/internal/postings"
	"github.com/propledger/propledger/internal/report"
	"github.com/propledger/propledger/internal/sequence"
	"github.com/propledger/propledger/internal/store"
)

// app is the wired ledger of one project directory.
type app struct {
	dir      string
	actor    string
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	registry *prometheus.Registry

	accounts *accounts.Service
	periods  *period.Service
	journal  *journal.Service
	poster   *postings.Poster
	billing  *billing.Service
	budget   *budget.Service
	report   *report.Service
}

// openApp loads the project's .env and propledger.yaml, connects to its
// database and wires every service onto one event bus.
func openApp(g *globalFlags) (*app, error) {
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("%w (run `propledger init` first)", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	db, err := store.Open(cfg.Database, cfg.ResolveDSN(dir), log)
	if err != nil {
		return nil, err
	}
	return wire(dir, g.actor, cfg, log, db), nil
}

func wire(dir, actor string, cfg *config.Config, log *zap.Logger, db *gorm.DB) *app {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bus := events.NewBus(log)
	seq := sequence.New(cfg.Numbering.MaxAttempts)

	j := journal.NewService(db, log, journal.Options{
		EnforceClosedPeriods: cfg.Ledger.EnforceClosedPeriods,
		Sequencer:            seq,
		Bus:                  bus,
		Metrics:              m,
	})
	poster := postings.New(db, j, cfg.PaymentAccounts, log)
	b := budget.NewService(db, log, budget.Options{
		WarningThreshold: cfg.Budget.WarningThreshold,
		Bus:              bus,
		Metrics:          m,
	})
	b.Subscribe(bus)

	return &app{
		dir:      dir,
		actor:    actor,
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: reg,
		accounts: accounts.NewService(db, log),
		periods:  period.NewService(db, log),
		journal:  j,
		poster:   poster,
		billing: billing.NewService(db, log, billing.Options{
			Overpayment:    cfg.Billing.Overpayment,
			PostToLedger:   cfg.Billing.PostToLedger,
			DefaultDueDays: cfg.Billing.DefaultDueDays,
			Sequencer:      seq,
			Bus:            bus,
			Metrics:        m,
			Journal:        j,
			Poster:         poster,
		}),
		budget: b,
		report: report.NewService(db, log),
	}
}

// Close writes the metrics textfile when one is configured and releases the
// database.
func (a *app) Close() error {
	var errs []error
	if path := a.cfg.Metrics.Textfile; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.dir, path)
		}
		if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if err := store.Close(a.db); err != nil {
		errs = append(errs, err)
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

// withApp opens the project for the duration of fn.
func withApp(g *globalFlags, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	runErr := fn(context.Background(), a)
	closeErr := a.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// accountID resolves an account code.
func (a *app) accountID(ctx context.Context, code string) (uint, error) {
	acct, err := a.accounts.GetByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	return acct.ID, nil
}

// parseDate parses a YYYY-MM-DD flag value; empty means def.
func parseDate(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// parseAmount parses a decimal flag value; empty means zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// optionalID converts a non-zero ID flag to a pointer.
func optionalID(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}

// splitFields splits "a:b:c" into between lo and hi parts.
func splitFields(s string, lo, hi int, what string) ([]string, error) {
	parts := strings.Split(s, ":")
	if len(parts) < lo || len(parts) > hi {
		return nil, fmt.Errorf("invalid %s %q", what, s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func uintArg(s, what string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return uint(n), nil
}

// noDate leaves a date bound open.
var noDate time.Time
