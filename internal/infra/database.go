package infra

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/model"
)

// NewDatabase opens (or creates) the terminal's durable local store: a single
// SQLite file holding the product cache, the offline order queue, the cart
// snapshot, and the dead-letter table. Failure to open maps to
// ErrStorageUnavailable; the terminal can still run online-only without it.
//
// SQLite supports one writer at a time, so the pool is pinned to a single
// connection; WAL keeps readers unblocked during writes.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apierror.ErrStorageUnavailable, path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierror.ErrStorageUnavailable, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		return nil, fmt.Errorf("%w: %v", apierror.ErrStorageUnavailable, err)
	}

	if err := db.AutoMigrate(
		&model.CachedProduct{},
		&model.QueuedOrder{},
		&model.CartSnapshot{},
		&model.DeadLetter{},
	); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", apierror.ErrStorageUnavailable, err)
	}

	return db, nil
}

// applyPragmas sets the required SQLite configuration. Idempotent.
func applyPragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("exec %q: %w", pragma, err)
		}
	}
	return nil
}

// CloseDatabase releases the underlying connection. Subsequent operations
// require a fresh NewDatabase.
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
