// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// When trace is true, GORM operations are reported as OTel spans.
func OpenSQLite(path string, trace bool) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if trace {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for every persisted model and
// the partial index guarding credit idempotency.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Balance{},
		&domain.AuditTransaction{},
		&domain.Achievement{},
		&domain.DailyLimit{},
		&domain.BalanceHistoryEntry{},
		&domain.Setting{},
		&domain.Coffee{},
		&domain.Supply{},
		&domain.ChatMessage{},
		&domain.Reaction{},
		&domain.Rating{},
	); err != nil {
		return err
	}

	// A credit may be re-earned after reversal, so uniqueness of the dedupe
	// key only holds among pending/confirmed rows. GORM tags cannot express
	// a partial index, hence the raw statement.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_audit_active_source
		 ON audit_transactions (source_identifier)
		 WHERE status IN ('pending','confirmed')`,
	).Error
}
