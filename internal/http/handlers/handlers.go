// Handler wiring and shared helpers.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Business rules (idempotency,
// daily caps, level math) live entirely in the services package; this layer
// only maps service errors onto the stable error-code taxonomy.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/repo"
	"github.com/tbourn/go-xp-backend/internal/search"
	"github.com/tbourn/go-xp-backend/internal/services"
	"github.com/tbourn/go-xp-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// PointsService defines the ledger operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PointsService interface {
	// AddPoints credits XP for an arbitrary source event.
	AddPoints(ctx context.Context, req services.AddPointsRequest) (*services.CreditResult, error)
	// RemovePoints reverses a previously confirmed credit.
	RemovePoints(ctx context.Context, auditID, reason string) (*services.ReversalResult, error)
	// GetUserPoints returns the balance projection for a user.
	GetUserPoints(ctx context.Context, userID string) (*services.UserPoints, error)
	// RecalculateLevel recomputes the cached level columns from TotalXP.
	RecalculateLevel(ctx context.Context, userID string) (*domain.Balance, error)
	// ListAudit returns a page of the user's audit log and the total count.
	ListAudit(ctx context.Context, userID string, page, pageSize int) ([]domain.AuditTransaction, int64, error)

	// Activity wrappers: record the event and credit the configured amount.
	AddCoffeeMadePoints(ctx context.Context, userID, coffeeID, coffeeType string) (*services.CreditResult, error)
	AddCoffeeBroughtPoints(ctx context.Context, userID, supplyID, description string) (*services.CreditResult, error)
	RecordMessage(ctx context.Context, userID, messageID string) (*services.CreditResult, error)
	RecordReaction(ctx context.Context, reactorID, recipientID, messageID, emoji string) (*services.CreditResult, error)
	RecordRating(ctx context.Context, raterID, recipientID, coffeeID string, stars int) (*services.CreditResult, error)
	AddManualPoints(ctx context.Context, userID string, amount int, reason, idempotencyKey string) (*services.CreditResult, error)
	AddDailyLoginPoints(ctx context.Context, userID string) (*services.CreditResult, error)
}

// AchievementsService defines achievement evaluation and listing operations.
type AchievementsService interface {
	// Evaluate runs the full catalog against the user's stats.
	Evaluate(ctx context.Context, userID string) ([]services.Unlock, error)
	// GetUserAchievements returns the catalog annotated with unlock state.
	GetUserAchievements(ctx context.Context, userID string) ([]services.AchievementView, error)
	// Recompute unlocks what qualifies and revokes what no longer does.
	Recompute(ctx context.Context, userID string) (*services.RecomputeResult, error)
	// SearchCatalog ranks catalog entries against a free-text query.
	SearchCatalog(query string, k int) []search.Result
}

// ReconcileService defines balance validation and repair operations.
type ReconcileService interface {
	ValidateUserBalance(ctx context.Context, userID string) (*services.BalanceReport, error)
	CorrectUserBalance(ctx context.Context, userID, reason string) (*services.BalanceReport, error)
	ValidateAllUsers(ctx context.Context) ([]services.BalanceReport, error)
	Report(ctx context.Context) ([]repo.AuditReportRow, error)
}

// ConfigService defines live XP configuration access.
type ConfigService interface {
	Get(ctx context.Context) (services.XPConfig, error)
	Update(ctx context.Context, cfg services.XPConfig) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for points, achievements, and
// administration. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	pointsSvc PointsService
	achSvc    AchievementsService
	recSvc    ReconcileService
	cfgSvc    ConfigService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(pointsSvc PointsService, achSvc AchievementsService, recSvc ReconcileService, cfgSvc ConfigService) *Handlers {
	return &Handlers{pointsSvc: pointsSvc, achSvc: achSvc, recSvc: recSvc, cfgSvc: cfgSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
