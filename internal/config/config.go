package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileName is the config file created by `propledger init`.
const FileName = "propledger.yaml"

// Environment variables that override the config file.
const (
	EnvDatabaseDriver = "PROPLEDGER_DATABASE_DRIVER"
	EnvDatabaseDSN    = "PROPLEDGER_DATABASE_DSN"
	EnvLogLevel       = "PROPLEDGER_LOG_LEVEL"
	EnvLogFormat      = "PROPLEDGER_LOG_FORMAT"
	EnvMaxAttempts    = "PROPLEDGER_NUMBERING_MAX_ATTEMPTS"
)

// Overpayment policies for invoice payments.
const (
	OverpaymentReject = "reject"
	OverpaymentAllow  = "allow"
)

// Config represents the top-level propledger.yaml configuration.
type Config struct {
	Business        BusinessConfig   `yaml:"business"`
	Fiscal          FiscalConfig     `yaml:"fiscal"`
	Database        DatabaseConfig   `yaml:"database"`
	Log             LogConfig        `yaml:"log"`
	Numbering       NumberingConfig  `yaml:"numbering"`
	Ledger          LedgerConfig     `yaml:"ledger"`
	Billing         BillingConfig    `yaml:"billing"`
	Budget          BudgetConfig     `yaml:"budget"`
	Metrics         MetricsConfig    `yaml:"metrics"`
	PaymentAccounts []PaymentAccount `yaml:"payment_accounts,omitempty"`
}

// BusinessConfig identifies the portfolio owner.
type BusinessConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

// FiscalConfig defines the fiscal year boundaries.
type FiscalConfig struct {
	YearStart string `yaml:"year_start"` // "MM-DD" format, e.g. "01-01"
}

// DatabaseConfig selects and tunes the store.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite or postgres
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	LogSQL       bool   `yaml:"log_sql,omitempty"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// NumberingConfig bounds document-number allocation.
type NumberingConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// LedgerConfig holds posting policy.
type LedgerConfig struct {
	EnforceClosedPeriods bool `yaml:"enforce_closed_periods"`
}

// BillingConfig holds invoice and payment policy.
type BillingConfig struct {
	Overpayment    string `yaml:"overpayment"` // reject or allow
	DefaultDueDays int    `yaml:"default_due_days"`
	PostToLedger   bool   `yaml:"post_to_ledger"`
}

// BudgetConfig controls utilization alerts.
type BudgetConfig struct {
	WarningThreshold float64 `yaml:"warning_threshold"` // percent
}

// MetricsConfig controls where counters are written when a command exits.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"` // node_exporter textfile collector path
}

// PaymentAccount maps a payment method to the cash/bank account it settles into.
type PaymentAccount struct {
	Method      string `yaml:"method"`
	AccountCode string `yaml:"account_code"`
}

// Load reads a propledger.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:     businessName,
			Currency: "EGP",
		},
		Fiscal: FiscalConfig{
			YearStart: "01-01",
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "propledger.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Numbering: NumberingConfig{
			MaxAttempts: 5,
		},
		Ledger: LedgerConfig{
			EnforceClosedPeriods: true,
		},
		Billing: BillingConfig{
			Overpayment:    OverpaymentReject,
			DefaultDueDays: 30,
			PostToLedger:   true,
		},
		Budget: BudgetConfig{
			WarningThreshold: 80,
		},
	}
}

// ApplyEnv overrides file settings with PROPLEDGER_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvDatabaseDriver); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := os.LookupEnv(EnvDatabaseDSN); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := os.LookupEnv(EnvMaxAttempts); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMaxAttempts, err)
		}
		c.Numbering.MaxAttempts = n
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Billing.Overpayment {
	case OverpaymentReject, OverpaymentAllow:
	default:
		return fmt.Errorf("unsupported overpayment policy %q", c.Billing.Overpayment)
	}
	if c.Numbering.MaxAttempts < 1 {
		return fmt.Errorf("numbering.max_attempts must be at least 1, got %d", c.Numbering.MaxAttempts)
	}
	if c.Budget.WarningThreshold <= 0 || c.Budget.WarningThreshold > 100 {
		return fmt.Errorf("budget.warning_threshold must be in (0, 100], got %v", c.Budget.WarningThreshold)
	}
	return nil
}

// ResolveDSN makes a relative SQLite path relative to the project directory.
func (c *Config) ResolveDSN(projectDir string) string {
	dsn := c.Database.DSN
	if c.Database.Driver == "sqlite" && dsn != "" && !filepath.IsAbs(dsn) && dsn[0] != ':' && !hasScheme(dsn) {
		return filepath.Join(projectDir, dsn)
	}
	return dsn
}

func hasScheme(dsn string) bool {
	return len(dsn) > 5 && dsn[:5] == "file:"
}
