package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace/internal/models"
	"marketplace/internal/services"
)

// FavoriteHandler serves the caller's saved listings
type FavoriteHandler struct {
	favorites *services.FavoriteService
	log       *zap.Logger
}

func NewFavoriteHandler(favorites *services.FavoriteService, log *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, log: log}
}

// GetFavorites GET /api/favorites
func (h *FavoriteHandler) GetFavorites(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}

	favorites, err := h.favorites.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, favorites, len(favorites))
}

// AddFavorite saves a listing. Saving it twice is a 400.
// POST /api/favorites
func (h *FavoriteHandler) AddFavorite(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	var req models.FavoriteRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	state, err := h.favorites.Add(c.Request.Context(), userID, req.ListingID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, state)
}

// RemoveFavorite DELETE /api/favorites/:listingId
func (h *FavoriteHandler) RemoveFavorite(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	listingID, found := pathID(c, h.log, "listingId", "favorite")
	if !found {
		return
	}

	state, err := h.favorites.Remove(c.Request.Context(), userID, listingID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, state)
}

// ToggleFavorite POST /api/favorites/:listingId/toggle
func (h *FavoriteHandler) ToggleFavorite(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	listingID, found := pathID(c, h.log, "listingId", "listing")
	if !found {
		return
	}

	state, err := h.favorites.Toggle(c.Request.Context(), userID, listingID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, state)
}
