package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/commands"
	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/journal"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := commands.NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&buf)
	root.SetErr(&buf)
	err := root.Execute()
	return buf.String(), err
}

// project initializes a ledger in a temp dir and returns a runner bound to it.
func project(t *testing.T) (string, func(args ...string) string) {
	t.Helper()
	t.Setenv(config.EnvLogLevel, "error")
	dir := t.TempDir()
	_, err := run(t, "init", dir, "--name", "Test Portfolio")
	require.NoError(t, err)

	return dir, func(args ...string) string {
		t.Helper()
		out, err := run(t, append([]string{"--dir", dir, "--actor", "tester"}, args...)...)
		require.NoError(t, err, out)
		return out
	}
}

func TestInit_CreatesStructure(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "error")
	dir := t.TempDir()
	out, err := run(t, "init", dir, "--name", "Test Portfolio", "--currency", "USD")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized propledger project")
	assert.Contains(t, out, "accounts)")

	for _, d := range []string{"import", filepath.Join("import", "processed"), "exports"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir())
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "Test Portfolio", cfg.Business.Name)
	assert.Equal(t, "USD", cfg.Business.Currency)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), "propledger.db")
	assert.Contains(t, string(gitignore), ".env")

	_, err = os.Stat(filepath.Join(dir, "propledger.db"))
	require.NoError(t, err)
}

func TestInit_SeedsDefaultChart(t *testing.T) {
	_, ledger := project(t)

	out := ledger("account", "list")
	for _, a := range accounts.DefaultChart() {
		assert.Contains(t, out, a.Code)
	}
	assert.Equal(t, len(accounts.DefaultChart())+1, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestInit_LoadsChartCSV(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "error")
	dir := t.TempDir()
	out, err := run(t, "init", dir, "--name", "Test Portfolio", "--chart", filepath.Join("..", "..", "testdata", "chart-of-accounts.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "(11 accounts)")

	out, err = run(t, "--dir", dir, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "5000.00")
}

func TestInit_RefusesExistingProject(t *testing.T) {
	dir, _ := project(t)
	_, err := run(t, "init", dir, "--name", "Again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInit_RequiresName(t *testing.T) {
	_, err := run(t, "init", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"name"`)
}

func TestCommands_NeedProject(t *testing.T) {
	_, err := run(t, "--dir", t.TempDir(), "account", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "propledger init")
}

func TestLedgerWorkflow(t *testing.T) {
	dir, ledger := project(t)

	out := ledger("period", "add", "--name", "Q1 2025", "--start", "2025-01-01", "--end", "2025-03-31")
	assert.Contains(t, out, `Added period 1 "Q1 2025"`)

	out = ledger("journal", "add",
		"--date", "2025-01-02",
		"--description", "Owner contribution",
		"--line", "1020:50000:0",
		"--line", "3010:0:50000",
		"--post")
	assert.Contains(t, out, "Posted JE-2025-00001")

	out = ledger("account", "show", "1020")
	assert.Contains(t, out, "Balance: 50000.00")

	out = ledger("invoice", "create",
		"--date", "2025-03-01",
		"--bill-to", "Tenant 4B",
		"--item", "March rent:1:1000",
		"--issue")
	assert.Contains(t, out, "Created INV-2025-00001 for 1000.00")
	assert.Contains(t, out, "Issued INV-2025-00001")

	out = ledger("invoice", "outstanding", "--as-of", "2025-03-15")
	assert.Contains(t, out, "INV-2025-00001")
	assert.Contains(t, out, "1000.00 outstanding")

	out = ledger("payment", "record", "--date", "2025-03-10", "--amount", "1000", "--invoice", "INV-2025-00001", "--reference", "TRX-1")
	assert.Contains(t, out, "INV-2025-00001 is paid, balance 0.00")

	out = ledger("invoice", "list", "--status", "paid")
	assert.Contains(t, out, "INV-2025-00001")

	out = ledger("report", "trial-balance")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "51000.00")

	out = ledger("report", "pnl", "--from", "2025-01-01", "--to", "2025-03-31")
	assert.Contains(t, out, "Total Revenue")
	assert.Contains(t, out, "1000.00")

	ledger("report", "balance-sheet", "--as-of", "2025-03-31")

	out = ledger("report", "dashboard", "--date", "2025-03-20")
	assert.Contains(t, out, "Revenue")

	out = ledger("audit", "--action", "entry_posted", "--csv")
	assert.Contains(t, out, "JE-2025-00001")
	assert.Contains(t, out, "tester")

	_, err := run(t, "--dir", dir, "period", "close", "1")
	require.NoError(t, err)
	out, err = run(t, "--dir", dir, "journal", "add",
		"--date", "2025-02-01",
		"--description", "Late adjustment",
		"--line", "5010:10:0",
		"--line", "1010:0:10",
		"--post")
	require.Error(t, err, out)
}

func TestJournalPost_RejectsUnbalanced(t *testing.T) {
	dir, ledger := project(t)

	out := ledger("journal", "add", "--date", "2025-01-02", "--description", "Typo", "--line", "1010:100:0", "--line", "4020:0:90")
	assert.Contains(t, out, "Recorded JE-2025-00001")

	out, err := run(t, "--dir", dir, "journal", "post", "JE-2025-00001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), journal.UnbalancedReason)
	assert.Contains(t, out, "JE-2025-00001")

	out = ledger("journal", "list", "--drafts")
	assert.Contains(t, out, "draft")
}

func TestRecordRent_IsIdempotent(t *testing.T) {
	_, ledger := project(t)

	args := []string{"record", "rent", "--receipt", "RCP-77", "--date", "2025-04-01", "--amount", "1500"}
	out := ledger(args...)
	assert.Contains(t, out, "Posted JE-2025-00001")

	out = ledger(args...)
	assert.Contains(t, out, "Already recorded as JE-2025-00001")
}

func TestBudgetStatus(t *testing.T) {
	_, ledger := project(t)

	ledger("period", "add", "--name", "March 2025", "--start", "2025-03-01", "--end", "2025-03-31")
	ledger("budget", "add", "--name", "Repairs", "--period", "1", "--account", "5010", "--amount", "1000")
	ledger("record", "maintenance", "--request", "MR-1", "--date", "2025-03-05", "--amount", "900")

	out := ledger("budget", "status", "--period", "1")
	assert.Contains(t, out, "Repairs")
	assert.Contains(t, out, "900.00")
	assert.Contains(t, out, "warning")
}

func TestPaymentImport_ScansImportDir(t *testing.T) {
	dir, ledger := project(t)

	ledger("invoice", "create", "--date", "2025-03-01", "--item", "March rent:1:1000", "--issue")

	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "receipts.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "receipts.csv"), src, 0o644))

	out := ledger("payment", "import")
	assert.Contains(t, out, "receipts.csv: 3 applied, 0 already recorded, 0 failed")

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "receipts.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "import", "receipts.csv"))
	assert.True(t, os.IsNotExist(err))

	out = ledger("payment", "import", filepath.Join(dir, "import", "processed", "receipts.csv"))
	assert.Contains(t, out, "0 applied, 3 already recorded")

	out = ledger("invoice", "show", "INV-2025-00001")
	assert.Contains(t, out, "[paid]")
}

func TestPaymentImport_UnknownFormatListsKnown(t *testing.T) {
	dir, _ := project(t)
	_, err := run(t, "--dir", dir, "payment", "import", "--format", "qif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: bank, receipts")
}
