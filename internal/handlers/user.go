package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace/internal/services"
)

// UserHandler serves public profiles
type UserHandler struct {
	accounts *services.AccountService
	reviews  *services.ReviewService
	log      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts *services.AccountService, reviews *services.ReviewService, log *zap.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, reviews: reviews, log: log}
}

// GetProfile returns a user's public profile and review summary
// GET /api/users/:id
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, found := pathID(c, h.log, "id", "user")
	if !found {
		return
	}

	profile, err := h.accounts.PublicProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, profile)
}

// GetReviews returns the public reviews a user has received
// GET /api/users/:id/reviews
func (h *UserHandler) GetReviews(c *gin.Context) {
	userID, found := pathID(c, h.log, "id", "user")
	if !found {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reviews, err := h.reviews.ListForUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, reviews, len(reviews))
}
