// Points HTTP handlers.
//
// This file exposes REST endpoints for the XP ledger:
//   - POST   /points                            (generic credit)
//   - DELETE /points/{auditId}                  (reverse a credit)
//   - GET    /users/{id}/points                 (balance projection)
//   - GET    /users/{id}/audit                  (audit log, paginated)
//   - POST   /users/{id}/points/coffee-made     (activity shortcuts)
//   - POST   /users/{id}/points/coffee-brought
//   - POST   /users/{id}/points/message
//   - POST   /users/{id}/points/reaction
//   - POST   /users/{id}/points/rating
//   - POST   /users/{id}/points/login
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-xp-backend/internal/domain"
	"github.com/tbourn/go-xp-backend/internal/http/middleware"
	"github.com/tbourn/go-xp-backend/internal/services"
)

//
// DTOs
//

// AddPointsRequest is the JSON payload for the generic credit endpoint.
type AddPointsRequest struct {
	// UserID receives the credit.
	UserID string `json:"user_id" binding:"required" example:"user123"`
	// Source labels the originating action (e.g. coffee-made, manual).
	Source string `json:"source" binding:"required" example:"manual"`
	// Amount is the XP to credit (must be positive).
	Amount int `json:"amount" binding:"required" example:"50"`
	// Reason is a free-form human-readable explanation.
	Reason string `json:"reason" example:"Hackathon prize"`
	// SourceID optionally names the originating entity for deduplication.
	SourceID string `json:"source_id" example:"coffee-42"`
}

// ReverseRequest is the JSON payload for the reversal endpoint.
type ReverseRequest struct {
	// Reason explains why the credit is being reversed.
	Reason string `json:"reason" example:"duplicate event"`
}

// CoffeeRequest is the payload for the coffee-made shortcut.
type CoffeeRequest struct {
	CoffeeID   string `json:"coffee_id" example:"coffee-42"`
	CoffeeType string `json:"coffee_type" example:"espresso"`
}

// SupplyRequest is the payload for the coffee-brought shortcut.
type SupplyRequest struct {
	SupplyID    string `json:"supply_id" example:"supply-7"`
	Description string `json:"description" example:"2kg beans"`
}

// MessageRequest is the payload for the message shortcut.
type MessageRequest struct {
	MessageID string `json:"message_id" example:"msg-1001"`
}

// ReactionRequest is the payload for the reaction shortcut.
type ReactionRequest struct {
	RecipientID string `json:"recipient_id" binding:"required" example:"user456"`
	MessageID   string `json:"message_id" binding:"required" example:"msg-1001"`
	Emoji       string `json:"emoji" binding:"required" example:"fire"`
}

// RatingRequest is the payload for the rating shortcut.
type RatingRequest struct {
	RecipientID string `json:"recipient_id" binding:"required" example:"user456"`
	CoffeeID    string `json:"coffee_id" binding:"required" example:"coffee-42"`
	Stars       int    `json:"stars" binding:"required" example:"5"`
}

// AuditPageResponse wraps a page of audit transactions.
type AuditPageResponse struct {
	Transactions []domain.AuditTransaction `json:"transactions"`
	Pagination   Pagination                `json:"pagination"`
}

// creditStatus maps a credit outcome onto an HTTP status: fresh credits are
// 201, idempotent replays and cap denials are 200.
func creditStatus(res *services.CreditResult) int {
	if res.Duplicate || res.LimitReached {
		return http.StatusOK
	}
	return http.StatusCreated
}

// failCredit translates ledger errors into the error-code taxonomy.
func failCredit(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, services.ErrInvalidUser),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidSource),
		errors.Is(err, services.ErrInvalidStars):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeCreditFailed, err.Error())
	}
}

//
// Handlers
//

// AddPoints godoc
// @ID          addPoints
// @Summary     Credit XP
// @Description Credits XP to a user for a source event. Replaying the same event returns the original credit with duplicate=true.
// @Tags        Points
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Client idempotency key for manual credits"
// @Param       body             body    handlers.AddPointsRequest  true  "Credit payload"
//
// @Success     201  {object}  services.CreditResult
// @Success     200  {object}  services.CreditResult "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /points [post]
func (h *Handlers) AddPoints(c *gin.Context) {
	var req AddPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	svcReq := services.AddPointsRequest{
		UserID:   strings.TrimSpace(req.UserID),
		Source:   strings.TrimSpace(req.Source),
		Amount:   req.Amount,
		Reason:   strings.TrimSpace(req.Reason),
		SourceID: strings.TrimSpace(req.SourceID),
	}
	if key, okKey := middleware.GetIdempotencyKey(c); okKey {
		svcReq.UniqueID = key
	}

	res, err := h.pointsSvc.AddPoints(c.Request.Context(), svcReq)
	if err != nil {
		failCredit(c, err)
		return
	}
	ok(c, creditStatus(res), res)
}

// RemovePoints godoc
// @ID          removePoints
// @Summary     Reverse a credit
// @Description Reverses a confirmed credit by audit ID; the balance drops by the original amount.
// @Tags        Points
// @Accept      json
// @Produce     json
//
// @Param       auditId  path  string  true  "Audit transaction ID (UUID)" format(uuid)
// @Param       body     body  handlers.ReverseRequest  false "Reversal reason"
//
// @Success     200  {object}  services.ReversalResult
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Audit transaction not found"
// @Failure     409  {object}  handlers.ErrorResponse "Already reversed"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /points/{auditId} [delete]
func (h *Handlers) RemovePoints(c *gin.Context) {
	auditID := c.Param("auditId")
	if _, err := uuid.Parse(auditID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "audit id must be a UUID")
		return
	}

	var req ReverseRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	res, err := h.pointsSvc.RemovePoints(c.Request.Context(), auditID, strings.TrimSpace(req.Reason))
	switch {
	case err == nil:
		ok(c, http.StatusOK, res)
	case errors.Is(err, services.ErrAuditNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "audit transaction not found")
	case errors.Is(err, services.ErrAlreadyReversed), errors.Is(err, services.ErrNotReversible):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeReversalFailed, err.Error())
	}
}

// GetUserPoints godoc
// @ID          getUserPoints
// @Summary     Get a user's balance
// @Description Returns total XP, level progress, and recent balance history.
// @Tags        Points
// @Produce     json
//
// @Param       id  path  string  true  "User ID" example(user123)
//
// @Success     200  {object}  services.UserPoints
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/points [get]
func (h *Handlers) GetUserPoints(c *gin.Context) {
	res, err := h.pointsSvc.GetUserPoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// ListUserAudit godoc
// @ID          listUserAudit
// @Summary     List a user's audit log (paginated)
// @Description Returns a page of the user's XP audit transactions, newest first.
// @Tags        Points
// @Produce     json
//
// @Param       id         path   string  true  "User ID"
// @Param       page       query  int     false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.AuditPageResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/audit [get]
func (h *Handlers) ListUserAudit(c *gin.Context) {
	page, pageSize := clampPagination(c)

	rows, total, err := h.pointsSvc.ListAudit(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, AuditPageResponse{
		Transactions: rows,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// AddCoffeeMade godoc
// @ID          addCoffeeMade
// @Summary     Credit a brewed coffee
// @Tags        Points
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "User ID"
// @Param       body  body  handlers.CoffeeRequest  false "Coffee details"
// @Success     201  {object}  services.CreditResult
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/points/coffee-made [post]
func (h *Handlers) AddCoffeeMade(c *gin.Context) {
	var req CoffeeRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.pointsSvc.AddCoffeeMadePoints(c.Request.Context(), c.Param("id"), req.CoffeeID, req.CoffeeType)
	if err != nil {
		failCredit(c, err)
		return
	}
	ok(c, creditStatus(res), res)
}

// AddCoffeeBrought godoc
// @ID          addCoffeeBrought
// @Summary     Credit brought supplies
// @Tags        Points
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "User ID"
// @Param       body  body  handlers.SupplyRequest  false "Supply details"
// @Success     201  {object}  services.CreditResult
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/points/coffee-brought [post]
func (h *Handlers) AddCoffeeBrought(c *gin.Context) {
	var req SupplyRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.pointsSvc.AddCoffeeBroughtPoints(c.Request.Context(), c.Param("id"), req.SupplyID, req.Description)
	if err != nil {
		failCredit(c, err)
		return
	}
	ok(c, creditStatus(res), res)
}

// AddMessage godoc
// @ID          addMessage
// @Summary     Credit a sent message (daily cap applies)
// @Tags        Points
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "User ID"
// @Param       body  body  handlers.MessageRequest  false "Message reference"
// @Success     201  {object}  services.CreditResult
// @Success     200  {object}  services.CreditResult "Cap reached or replay"
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/points/message [post]
func (h *Handlers) AddMessage(c *gin.Context) {
	var req MessageRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.pointsSvc.RecordMessage(c.Request.Context(), c.Param("id"), req.MessageID)
	if err != nil {
		failCredit(c, err)
		return
	}
	ok(c, creditStatus(res), res)
}

// AddReaction godoc
// @ID          addReaction
// @Summary     Credit a reaction (reactor and recipient)
// @Tags        Points
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Reacting user ID"
// @Param       body  body  handlers.ReactionRequest  true "Reaction details"
// @Success     201  {object}  services.CreditResult
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/points/reaction [post]
func (h *Handlers) AddReaction(c *gin.Context) {
	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id, message_id and emoji are required")
		return
	}

	res, err := h.pointsSvc.RecordReaction(c.Request.Context(), c.Param("id"), req.RecipientID, req.MessageID, req.Emoji)
	if err != nil {
		failCredit(c, err)
		return
	}
	ok(c, creditStatus(res), res)
}

// AddRating godoc
// @ID          addRating
// @Summary     Credit a coffee rating
// @Description Credits the rater; four and five star ratings also credit the brewer.
// @Tags        Points
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Rating user ID"
// @Param       body  body  handlers.RatingRequest  true "Rating details"
// @Success     201  {object}  services.CreditResult
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/points/rating [post]
func (h *Handlers) AddRating(c *gin.Context) {
	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id, coffee_id and stars are required")
		return
	}

	res, err := h.pointsSvc.RecordRating(c.Request.Context(), c.Param("id"), req.RecipientID, req.CoffeeID, req.Stars)
	if err != nil {
		failCredit(c, err)
		return
	}
	ok(c, creditStatus(res), res)
}

// AddDailyLogin godoc
// @ID          addDailyLogin
// @Summary     Credit the daily login bonus
// @Description Credits at most once per UTC day; repeats return the original credit.
// @Tags        Points
// @Produce     json
// @Param       id  path  string  true  "User ID"
// @Success     201  {object}  services.CreditResult
// @Success     200  {object}  services.CreditResult "Already credited today"
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/points/login [post]
func (h *Handlers) AddDailyLogin(c *gin.Context) {
	res, err := h.pointsSvc.AddDailyLoginPoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		failCredit(c, err)
		return
	}
	ok(c, creditStatus(res), res)
}
