// Package storetest opens throwaway migrated databases for package tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/store"
)

// New returns a migrated SQLite database in t's temp dir. A single
// connection serializes concurrent callers the way the CLI runs.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	return open(t, 1)
}

// NewPool is New with a pool of conns connections, so concurrent callers
// hold separate transactions and contend on the database lock.
func NewPool(t testing.TB, conns int) *gorm.DB {
	t.Helper()
	return open(t, conns)
}

func open(t testing.TB, conns int) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{Driver: "sqlite", MaxOpenConns: conns, MaxIdleConns: conns}
	db, err := store.Open(cfg, filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background(), db))

	t.Cleanup(func() { _ = store.Close(db) })
	return db
}
