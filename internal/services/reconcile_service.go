// Package services – ReconcilerService
//
// Balance reconciliation recomputes what a user's balance should be from
// the confirmed audit rows and compares it against the cached balance. The
// audit log is the source of truth; a non-zero drift means the cache is
// wrong, so the repair mints a synthetic system-correction transaction
// through the normal ledger path. The repair is therefore audited and
// reversible like any credit; correction rows are excluded from the
// reconciliation baseline so they do not shift the truth they were derived
// from.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/repo"
)

// BalanceReport compares a stored balance against the audit-derived one.
type BalanceReport struct {
	UserID   string `json:"user_id"`
	Stored   int    `json:"stored"`
	Expected int    `json:"expected"`
	Drift    int    `json:"drift"`
	Valid    bool   `json:"valid"`
}

// ReconcilerService validates and repairs cached balances.
type ReconcilerService struct {
	// DB is the database handle used for reconciliation reads.
	DB *gorm.DB
	// Ledger mints the correction transactions that repair drifted balances.
	Ledger *LedgerService
	// Log is the service logger.
	Log zerolog.Logger
}

// ValidateUserBalance recomputes the expected balance for one user. The
// expected value is the sum of confirmed credit amounts excluding
// system-correction rows, clamped at zero to mirror the ledger's floor.
func (s *ReconcilerService) ValidateUserBalance(ctx context.Context, userID string) (*BalanceReport, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	sum, err := repo.SumConfirmed(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	expected := int(sum)
	if expected < 0 {
		expected = 0
	}

	stored := 0
	bal, err := repo.GetBalance(ctx, s.DB, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		stored = bal.TotalXP
	}

	return &BalanceReport{
		UserID:   userID,
		Stored:   stored,
		Expected: expected,
		Drift:    stored - expected,
		Valid:    stored == expected,
	}, nil
}

// CorrectUserBalance repairs a drifted balance by minting a synthetic
// system-correction transaction for the inverse of the drift through the
// ledger. The repair lands in the audit log like any credit, so it can be
// inspected and reversed; correction rows never feed the baseline sum. A
// balance that is already valid is returned unchanged.
func (s *ReconcilerService) CorrectUserBalance(ctx context.Context, userID, reason string) (*BalanceReport, error) {
	report, err := s.ValidateUserBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if report.Valid {
		return report, nil
	}
	if reason == "" {
		reason = "balance drift correction"
	}

	if _, err := s.Ledger.credit(ctx, AddPointsRequest{
		UserID:   userID,
		Source:   domain.SourceCorrection,
		Amount:   -report.Drift,
		Reason:   reason,
		UniqueID: uuid.NewString(),
	}); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("user_id", userID).
		Int("drift", report.Drift).
		Int("corrected_to", report.Expected).
		Str("reason", reason).
		Msg("balance corrected")

	return s.ValidateUserBalance(ctx, userID)
}

// Report aggregates the audit log by source and status for the admin
// overview.
func (s *ReconcilerService) Report(ctx context.Context) ([]repo.AuditReportRow, error) {
	return repo.AuditReport(ctx, s.DB)
}

// ValidateAllUsers sweeps every balance row. A failure on one user is
// logged and skipped so a single bad row cannot hide the rest of the
// report.
func (s *ReconcilerService) ValidateAllUsers(ctx context.Context) ([]BalanceReport, error) {
	ids, err := repo.ListBalanceUserIDs(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	reports := make([]BalanceReport, 0, len(ids))
	for _, id := range ids {
		report, err := s.ValidateUserBalance(ctx, id)
		if err != nil {
			s.Log.Error().Err(err).Str("user_id", id).Msg("balance validation failed")
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
