package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Nile Estates")
	cfg.PaymentAccounts = []PaymentAccount{
		{Method: "check", AccountCode: "1030"},
	}
	cfg.Billing.Overpayment = OverpaymentAllow

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Business.Name, got.Business.Name)
	assert.Equal(t, cfg.Business.Currency, got.Business.Currency)
	assert.Equal(t, cfg.Fiscal.YearStart, got.Fiscal.YearStart)
	assert.Equal(t, cfg.Database, got.Database)
	assert.Equal(t, cfg.Log, got.Log)
	assert.Equal(t, OverpaymentAllow, got.Billing.Overpayment)
	assert.InDelta(t, cfg.Budget.WarningThreshold, got.Budget.WarningThreshold, 0.001)
	require.Len(t, got.PaymentAccounts, 1)
	assert.Equal(t, "1030", got.PaymentAccounts[0].AccountCode)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Portfolio")

	assert.Equal(t, "My Portfolio", cfg.Business.Name)
	assert.Equal(t, "01-01", cfg.Fiscal.YearStart)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Numbering.MaxAttempts)
	assert.True(t, cfg.Ledger.EnforceClosedPeriods)
	assert.Equal(t, OverpaymentReject, cfg.Billing.Overpayment)
	assert.InDelta(t, 80.0, cfg.Budget.WarningThreshold, 0.001)
	assert.Empty(t, cfg.PaymentAccounts)
	require.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadKeepsDefaultsForMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("business:\n  name: Partial\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Partial", cfg.Business.Name)
	assert.Equal(t, 5, cfg.Numbering.MaxAttempts)
	assert.Equal(t, OverpaymentReject, cfg.Billing.Overpayment)
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Biz")
	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "year_start: 01-01")
	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, "overpayment: reject")
	assert.Contains(t, contents, "enforce_closed_periods: true")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDatabaseDriver, "postgres")
	t.Setenv(EnvDatabaseDSN, "host=db user=ledger dbname=ledger")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvMaxAttempts, "9")

	cfg := Default("Env")
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=db user=ledger dbname=ledger", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9, cfg.Numbering.MaxAttempts)

	t.Setenv(EnvMaxAttempts, "many")
	assert.Error(t, cfg.ApplyEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"overpayment", func(c *Config) { c.Billing.Overpayment = "cap" }},
		{"attempts", func(c *Config) { c.Numbering.MaxAttempts = 0 }},
		{"threshold", func(c *Config) { c.Budget.WarningThreshold = 120 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("x")
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveDSN(t *testing.T) {
	cfg := Default("x")
	assert.Equal(t, filepath.Join("/srv/ledger", "propledger.db"), cfg.ResolveDSN("/srv/ledger"))

	cfg.Database.DSN = "/var/lib/ledger.db"
	assert.Equal(t, "/var/lib/ledger.db", cfg.ResolveDSN("/srv/ledger"))

	cfg.Database.DSN = ":memory:"
	assert.Equal(t, ":memory:", cfg.ResolveDSN("/srv/ledger"))

	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "host=db"
	assert.Equal(t, "host=db", cfg.ResolveDSN("/srv/ledger"))
}
