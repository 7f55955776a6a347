// Achievement HTTP handlers.
//
// This file exposes REST endpoints for achievements:
//   - GET  /users/{id}/achievements           (catalog with unlock state)
//   - POST /users/{id}/achievements/evaluate  (run the predicates now)
//   - GET  /achievements/search               (free-text catalog search)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-xp-backend/internal/search"
	"github.com/tbourn/go-xp-backend/internal/services"
	"github.com/tbourn/go-xp-backend/internal/utils"
)

// EvaluateResponse wraps the unlocks produced by an evaluation run.
type EvaluateResponse struct {
	Unlocked []services.Unlock `json:"unlocked"`
}

// GetUserAchievements godoc
// @ID          getUserAchievements
// @Summary     List a user's achievements
// @Description Returns the achievement catalog annotated with the user's unlock state. Locked secret achievements are omitted.
// @Tags        Achievements
// @Produce     json
//
// @Param       id  path  string  true  "User ID" example(user123)
//
// @Success     200  {array}   services.AchievementView
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/achievements [get]
func (h *Handlers) GetUserAchievements(c *gin.Context) {
	views, err := h.achSvc.GetUserAchievements(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidUser) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, views)
}

// SearchResponse wraps ranked catalog search results.
type SearchResponse struct {
	Results []search.Result `json:"results"`
}

// SearchCatalog godoc
// @ID          searchAchievementCatalog
// @Summary     Search the achievement catalog
// @Description Ranks non-secret achievement definitions against a free-text query. "k" caps the result count (default 3, max 20).
// @Tags        Achievements
// @Produce     json
//
// @Param       q  query  string  true   "Search query" example(brew coffee)
// @Param       k  query  int     false  "Maximum results" example(5)
//
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse "Missing query"
// @Router      /achievements/search [get]
func (h *Handlers) SearchCatalog(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing query parameter 'q'")
		return
	}
	k := utils.AtoiDefault(c.Query("k"), 3)
	if k > 20 {
		k = 20
	}
	results := h.achSvc.SearchCatalog(q, k)
	if results == nil {
		results = []search.Result{}
	}
	ok(c, http.StatusOK, SearchResponse{Results: results})
}

// EvaluateAchievements godoc
// @ID          evaluateAchievements
// @Summary     Evaluate achievements now
// @Description Runs every achievement predicate against the user's current activity stats and unlocks what newly qualifies (with XP rewards).
// @Tags        Achievements
// @Produce     json
//
// @Param       id  path  string  true  "User ID" example(user123)
//
// @Success     200  {object}  handlers.EvaluateResponse
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/achievements/evaluate [post]
func (h *Handlers) EvaluateAchievements(c *gin.Context) {
	unlocked, err := h.achSvc.Evaluate(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		if unlocked == nil {
			unlocked = []services.Unlock{}
		}
		ok(c, http.StatusOK, EvaluateResponse{Unlocked: unlocked})
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, services.ErrInvalidUser):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
