package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/logger"
	"github.com/propledger/propledger/internal/model"
)

// sqlitePragmas turns on foreign keys so deleting a referenced account is
// refused by the database, and waits on a locked database instead of failing.
// WAL lets readers proceed while a writer holds the lock. Transactions take
// the write lock when they begin, so two writers never deadlock upgrading
// from a read lock.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// uniqueReferenceIndex makes an automated entry's reference claimable once.
// Manual entries leave it empty and are not constrained.
const uniqueReferenceIndex = "CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_entries_reference_unique " +
	"ON journal_entries (reference) WHERE reference <> ''"

// Open connects to the configured database.
func Open(cfg config.DatabaseConfig, dsn string, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(withPragmas(dsn))
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := gormlogger.Silent
	if cfg.LogSQL {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(log, level),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if log != nil {
		log.Debug("database connected", zap.String("driver", dialector.Name()))
	}
	return db, nil
}

// Migrate creates or updates every ledger table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	if err := db.WithContext(ctx).Exec(uniqueReferenceIndex).Error; err != nil {
		return fmt.Errorf("indexing entry references: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}
