package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/observability"
	"marketplace/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListingService owns listing mutations and catalog reads
type ListingService struct {
	repo            *repository.Repository
	log             *zap.Logger
	metrics         *observability.Metrics
	defaultCurrency string
	now             func() time.Time
}

// NewListingService creates a new ListingService
func NewListingService(repo *repository.Repository, log *zap.Logger, metrics *observability.Metrics, defaultCurrency string) *ListingService {
	return &ListingService{
		repo:            repo,
		log:             log,
		metrics:         metrics,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
	}
}

// Create stores a new listing owned by ownerID in draft (default) or active status
func (s *ListingService) Create(ctx context.Context, ownerID uuid.UUID, req models.CreateListingRequest) (*models.Listing, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Field("title", "title is required")
	}
	if !req.Type.Valid() {
		return nil, apperr.Field("type", "type must be product or service")
	}
	if req.Price == nil {
		return nil, apperr.Field("price", "price is required")
	}
	if err := validatePrice(*req.Price); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, req.Category); err != nil {
		return nil, err
	}
	images, err := validateImages(req.Images)
	if err != nil {
		return nil, err
	}
	currency, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.ListingStatusDraft
	}
	if status != models.ListingStatusDraft && status != models.ListingStatusActive {
		return nil, apperr.Field("status", "a new listing must be draft or active")
	}

	listing := &models.Listing{
		OwnerID:      ownerID,
		CategorySlug: req.Category,
		Type:         req.Type,
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		Price:        req.Price.Round(2),
		Currency:     currency,
		Images:       images,
		Status:       status,
	}
	if status == models.ListingStatusActive {
		now := s.now()
		listing.PublishedAt = &now
	}

	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return nil, err
	}

	s.log.Info("listing created",
		zap.String("listing_id", listing.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("status", string(status)))
	return listing, nil
}

// Update applies the non-nil fields of req. Only the owner may update.
func (s *ListingService) Update(ctx context.Context, listingID, ownerID uuid.UUID, req models.UpdateListingRequest) (*models.Listing, error) {
	listing, err := s.loadOwned(ctx, listingID, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.Field("title", "title is required")
		}
		listing.Title = title
	}
	if req.Description != nil {
		listing.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		if err := s.checkCategory(ctx, *req.Category); err != nil {
			return nil, err
		}
		listing.CategorySlug = *req.Category
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, apperr.Field("type", "type must be product or service")
		}
		listing.Type = *req.Type
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
		listing.Price = req.Price.Round(2)
	}
	if req.Currency != nil {
		currency, err := s.currency(*req.Currency)
		if err != nil {
			return nil, err
		}
		listing.Currency = currency
	}
	if req.Images != nil {
		images, err := validateImages(*req.Images)
		if err != nil {
			return nil, err
		}
		listing.Images = images
	}

	if err := s.repo.SaveListing(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// SetStatus moves a listing to status. publishedAt is stamped only on the
// first transition into active.
func (s *ListingService) SetStatus(ctx context.Context, listingID, ownerID uuid.UUID, status models.ListingStatus) (*models.Listing, error) {
	if !status.Valid() {
		return nil, apperr.Field("status", "status must be one of draft, active, paused, sold, deleted")
	}

	listing, err := s.loadOwned(ctx, listingID, ownerID)
	if err != nil {
		return nil, err
	}

	listing.Status = status
	if status == models.ListingStatusActive && listing.PublishedAt == nil {
		now := s.now()
		listing.PublishedAt = &now
	}

	if err := s.repo.SaveListing(ctx, listing); err != nil {
		return nil, err
	}

	s.log.Info("listing status changed",
		zap.String("listing_id", listing.ID.String()),
		zap.String("status", string(status)))
	return listing, nil
}

// Delete soft-deletes the listing
func (s *ListingService) Delete(ctx context.Context, listingID, ownerID uuid.UUID) error {
	_, err := s.SetStatus(ctx, listingID, ownerID, models.ListingStatusDeleted)
	return err
}

// Get returns a listing as seen by viewerID (uuid.Nil for anonymous).
// Drafts and paused listings are visible to their owner only.
func (s *ListingService) Get(ctx context.Context, listingID, viewerID uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if err := visibleTo(listing, viewerID); err != nil {
		return nil, err
	}

	if viewerID != listing.OwnerID {
		// the read still succeeds when the counter update fails
		if err := s.repo.IncrementViewCount(ctx, listing.ID); err != nil {
			s.log.Warn("failed to increment view count",
				zap.String("listing_id", listing.ID.String()),
				zap.Error(err))
			s.metrics.CounterFailure("view_count")
		} else {
			listing.ViewCount++
		}
	}
	return listing, nil
}

// Search returns a page of active listings
func (s *ListingService) Search(ctx context.Context, filter models.ListingFilter) (*models.ListingPage, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.Field("type", "type must be product or service")
	}
	if filter.Sort != "" {
		switch filter.Sort {
		case "newest", "oldest", "price_asc", "price_desc":
		default:
			return nil, apperr.Field("sort", "sort must be newest, oldest, price_asc or price_desc")
		}
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, apperr.Field("min_price", "min_price cannot exceed max_price")
	}
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	return s.repo.SearchListings(ctx, filter)
}

// MyListings returns the owner's listings. Deleted listings are included only
// when status asks for them.
func (s *ListingService) MyListings(ctx context.Context, ownerID uuid.UUID, status *models.ListingStatus) ([]models.Listing, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.Field("status", "unknown listing status")
	}
	return s.repo.ListListingsByOwner(ctx, ownerID, status)
}

func (s *ListingService) loadOwned(ctx context.Context, listingID, ownerID uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != ownerID {
		return nil, apperr.Forbidden("only the owner can modify this listing")
	}
	if listing.Status == models.ListingStatusDeleted {
		return nil, apperr.InvalidState("listing is deleted and cannot be changed")
	}
	return listing, nil
}

// visibleTo reports NotFound for deleted listings, and for drafts and paused
// listings unless viewerID owns them. uuid.Nil is an anonymous viewer.
func visibleTo(listing *models.Listing, viewerID uuid.UUID) error {
	switch listing.Status {
	case models.ListingStatusDeleted:
		return apperr.NotFound("listing")
	case models.ListingStatusDraft, models.ListingStatusPaused:
		if viewerID == uuid.Nil || viewerID != listing.OwnerID {
			return apperr.NotFound("listing")
		}
	}
	return nil
}

func (s *ListingService) checkCategory(ctx context.Context, slug string) error {
	if strings.TrimSpace(slug) == "" {
		return apperr.Field("category", "category is required")
	}
	ok, err := s.repo.CategoryExists(ctx, slug)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Field("category", "unknown category")
	}
	return nil
}

func (s *ListingService) currency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return s.defaultCurrency, nil
	}
	if len(code) != 3 {
		return "", apperr.Field("currency", "currency must be a 3-letter code")
	}
	return code, nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.Field("price", "price cannot be negative")
	}
	if price.GreaterThanOrEqual(decimal.New(1, 10)) {
		return apperr.Field("price", "price is too large")
	}
	return nil
}

func validateImages(images []string) ([]string, error) {
	if len(images) > models.MaxListingImages {
		return nil, apperr.Field("images", "a listing can have at most 10 images")
	}
	out := make([]string, 0, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			return nil, apperr.Field("images", "image keys cannot be empty")
		}
		out = append(out, img)
	}
	return out, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
