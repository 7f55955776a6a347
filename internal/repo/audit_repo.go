// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the audit log.
//
// Error semantics:
//   - Inserting a credit whose dedupe key is already held by a pending or
//     confirmed row trips the ux_audit_active_source partial index; the raw
//     DB error is propagated and the service layer translates it (via
//     IsDuplicate) into idempotent-success semantics.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
)

// FindActiveCredit looks up a pending or confirmed credit holding the given
// dedupe key. The key is the only match criterion: it already encodes the
// source, the natural source ID, and the metadata discriminators, so two
// events that share a sourceID but differ in any discriminator (two emoji on
// one message, the same emoji from two reactors) never shadow each other.
// Returns ErrNotFound when the event has not been credited.
func FindActiveCredit(db *gorm.DB, userID, identifier string) (*domain.AuditTransaction, error) {
	var rec domain.AuditTransaction
	err := db.Model(&domain.AuditTransaction{}).
		Where("user_id = ?", userID).
		Where("status IN ?", []string{domain.StatusPending, domain.StatusConfirmed}).
		Where("source_identifier = ?", identifier).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateAudit inserts a fully populated audit row. The caller decides the
// status (normally pending).
func CreateAudit(db *gorm.DB, rec *domain.AuditTransaction) error {
	return db.Create(rec).Error
}

// ConfirmAudit flips a pending row to confirmed and stamps the final
// balance_after value.
func ConfirmAudit(db *gorm.DB, id string, balanceAfter int) error {
	res := db.Model(&domain.AuditTransaction{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":        domain.StatusConfirmed,
			"balance_after": balanceAfter,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReversed flags a confirmed credit as reversed. The guard on the
// current status makes double reversal visible as ErrNotFound.
func MarkReversed(db *gorm.DB, id, reason string, at time.Time) error {
	res := db.Model(&domain.AuditTransaction{}).
		Where("id = ? AND status = ?", id, domain.StatusConfirmed).
		Updates(map[string]any{
			"status":          domain.StatusReversed,
			"reversed_at":     at,
			"reversed_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAudit fetches one audit row by ID, or ErrNotFound.
func GetAudit(ctx context.Context, db *gorm.DB, id string) (*domain.AuditTransaction, error) {
	var rec domain.AuditTransaction
	err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountUserAudits returns the number of audit rows for userID (pagination support).
func CountUserAudits(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.AuditTransaction{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// ListUserAuditsPage returns one page of a user's audit rows, newest first.
func ListUserAuditsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.AuditTransaction, error) {
	var rows []domain.AuditTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SumConfirmed returns the signed sum of confirmed credit amounts for
// userID. This is the reconciliation baseline the cached balance is checked
// against. System-correction rows are excluded so a repair does not move the
// baseline it was derived from.
func SumConfirmed(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var row struct{ Total int64 }
	err := db.WithContext(ctx).Model(&domain.AuditTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND status = ?", userID, domain.StatusConfirmed).
		Where("source <> ?", domain.SourceCorrection).
		Scan(&row).Error
	return row.Total, err
}

// AuditReportRow is one aggregate bucket of the audit report.
type AuditReportRow struct {
	Source string `json:"source"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Total  int64  `json:"total_xp"`
}

// AuditReport aggregates the audit log by source and status.
func AuditReport(ctx context.Context, db *gorm.DB) ([]AuditReportRow, error) {
	var rows []AuditReportRow
	err := db.WithContext(ctx).Model(&domain.AuditTransaction{}).
		Select("source, status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("source").
		Group("status").
		Order("source ASC, status ASC").
		Scan(&rows).Error
	return rows, err
}
