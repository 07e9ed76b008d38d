package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace/internal/apperr"
	"marketplace/internal/auth"
	"marketplace/internal/models"
	"marketplace/internal/services"
)

// ListingHandler serves listings and the category catalog
type ListingHandler struct {
	listings   *services.ListingService
	categories *services.CategoryService
	log        *zap.Logger
}

func NewListingHandler(listings *services.ListingService, categories *services.CategoryService, log *zap.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, categories: categories, log: log}
}

// GetCategories returns the category catalog
// GET /api/categories
func (h *ListingHandler) GetCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, categories, len(categories))
}

// Search returns active listings with optional filtering
// GET /api/listings?q=&category=&type=&min_price=&max_price=&owner_id=&sort=&limit=&offset=
func (h *ListingHandler) Search(c *gin.Context) {
	filter, err := parseListingFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	page, err := h.listings.Search(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Listings,
		"count":   len(page.Listings),
		"total":   page.Total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// GetListing returns one listing. Owners can see their drafts.
// GET /api/listings/:id
func (h *ListingHandler) GetListing(c *gin.Context) {
	listingID, found := pathID(c, h.log, "id", "listing")
	if !found {
		return
	}
	viewerID, _ := auth.GetUserID(c)

	listing, err := h.listings.Get(c.Request.Context(), listingID, viewerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, listing)
}

// MyListings returns the caller's listings
// GET /api/me/listings?status=
func (h *ListingHandler) MyListings(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	var status *models.ListingStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ListingStatus(raw)
		status = &s
	}

	listings, err := h.listings.MyListings(c.Request.Context(), userID, status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, listings, len(listings))
}

// CreateListing creates a listing owned by the caller
// POST /api/listings
func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	var req models.CreateListingRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	listing, err := h.listings.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, listing)
}

// UpdateListing patches a listing
// PATCH /api/listings/:id
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	listingID, found := pathID(c, h.log, "id", "listing")
	if !found {
		return
	}
	var req models.UpdateListingRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	listing, err := h.listings.Update(c.Request.Context(), listingID, userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, listing)
}

// SetStatus moves a listing between draft, active, paused, sold and deleted
// PUT /api/listings/:id/status
func (h *ListingHandler) SetStatus(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	listingID, found := pathID(c, h.log, "id", "listing")
	if !found {
		return
	}
	var req models.SetListingStatusRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	listing, err := h.listings.SetStatus(c.Request.Context(), listingID, userID, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, listing)
}

// DeleteListing soft-deletes a listing
// DELETE /api/listings/:id
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	listingID, found := pathID(c, h.log, "id", "listing")
	if !found {
		return
	}

	if err := h.listings.Delete(c.Request.Context(), listingID, userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}

func parseListingFilter(c *gin.Context) (models.ListingFilter, error) {
	filter := models.ListingFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Type:     models.ListingType(c.Query("type")),
		Sort:     c.DefaultQuery("sort", "newest"),
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		return filter, err
	}
	if raw := c.Query("owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, apperr.Field("owner_id", "owner_id must be a UUID")
		}
		filter.OwnerID = &id
	}
	return filter, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Field(key, key+" must be a non-negative integer")
	}
	return n, nil
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Field(key, key+" must be a number")
	}
	return &d, nil
}
