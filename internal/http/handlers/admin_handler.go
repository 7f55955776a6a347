// Administrative HTTP handlers.
//
// This file exposes the operator surface:
//   - POST /admin/users/{id}/recompute  (achievement recompute)
//   - POST /admin/users/{id}/validate   (balance validation)
//   - POST /admin/users/{id}/correct    (balance repair)
//   - POST /admin/validate              (validate every balance)
//   - GET  /admin/audit/report          (audit aggregates)
//   - GET  /admin/xp-config             (live XP amounts)
//   - PUT  /admin/xp-config             (update XP amounts)
//
// These endpoints sit behind the same router as the public API; deployment
// is expected to restrict them at the ingress (see SecurityHeaders and CORS
// configuration).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-xp-backend/internal/services"
)

// RecomputeUser godoc
// @ID          recomputeUser
// @Summary     Recompute a user's achievements
// @Description Unlocks achievements that qualify and revokes ones whose condition no longer holds, reversing their XP rewards.
// @Tags        Admin
// @Produce     json
//
// @Param       id  path  string  true  "User ID"
//
// @Success     200  {object}  services.RecomputeResult
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/users/{id}/recompute [post]
func (h *Handlers) RecomputeUser(c *gin.Context) {
	res, err := h.achSvc.Recompute(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		ok(c, http.StatusOK, res)
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ValidateUser godoc
// @ID          validateUser
// @Summary     Validate one user's balance
// @Description Recomputes the balance from confirmed audit rows and reports any drift against the cached value.
// @Tags        Admin
// @Produce     json
//
// @Param       id  path  string  true  "User ID"
//
// @Success     200  {object}  services.BalanceReport
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/users/{id}/validate [post]
func (h *Handlers) ValidateUser(c *gin.Context) {
	report, err := h.recSvc.ValidateUserBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidUser) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}

// CorrectUserRequest is the optional payload for the balance repair
// endpoint.
type CorrectUserRequest struct {
	// Reason annotates the minted correction transaction.
	Reason string `json:"reason" example:"cache drift after migration"`
}

// CorrectUser godoc
// @ID          correctUser
// @Summary     Repair one user's balance
// @Description Mints a system-correction transaction through the ledger when drift is found.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       id      path  string                      true   "User ID"
// @Param       request body  handlers.CorrectUserRequest false  "Optional correction reason"
//
// @Success     200  {object}  services.BalanceReport
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/users/{id}/correct [post]
func (h *Handlers) CorrectUser(c *gin.Context) {
	var body CorrectUserRequest
	_ = c.ShouldBindJSON(&body) // body is optional
	report, err := h.recSvc.CorrectUserBalance(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		if errors.Is(err, services.ErrInvalidUser) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}

// ValidateAll godoc
// @ID          validateAll
// @Summary     Validate every balance
// @Description Sweeps all balance rows and reports each against its audit-derived value.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {array}   services.BalanceReport
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/validate [post]
func (h *Handlers) ValidateAll(c *gin.Context) {
	reports, err := h.recSvc.ValidateAllUsers(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, reports)
}

// AuditReport godoc
// @ID          auditReport
// @Summary     Audit log aggregates
// @Description Returns transaction counts and XP totals grouped by source and status.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {array}   repo.AuditReportRow
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/audit/report [get]
func (h *Handlers) AuditReport(c *gin.Context) {
	rows, err := h.recSvc.Report(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, rows)
}

// GetXPConfig godoc
// @ID          getXPConfig
// @Summary     Get the live XP configuration
// @Description Returns the effective XP amounts per action and rarity (stored overrides merged over defaults).
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  services.XPConfig
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/xp-config [get]
func (h *Handlers) GetXPConfig(c *gin.Context) {
	cfg, err := h.cfgSvc.Get(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, cfg)
}

// UpdateXPConfig godoc
// @ID          updateXPConfig
// @Summary     Update the live XP configuration
// @Description Persists override amounts per action and rarity; omitted keys keep their defaults.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       body  body  services.XPConfig  true  "Override payload"
//
// @Success     200  {object}  services.XPConfig
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/xp-config [put]
func (h *Handlers) UpdateXPConfig(c *gin.Context) {
	var cfg services.XPConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.cfgSvc.Update(c.Request.Context(), cfg); err != nil {
		if errors.Is(err, services.ErrInvalidConfig) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	stored, err := h.cfgSvc.Get(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stored)
}
