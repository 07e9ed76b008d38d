package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

var listingOrder = map[string]string{
	"newest":     "published_at DESC, created_at DESC",
	"oldest":     "published_at ASC, created_at ASC",
	"price_asc":  "price ASC, created_at DESC",
	"price_desc": "price DESC, created_at DESC",
}

// CreateListing creates a new listing
func (r *Repository) CreateListing(ctx context.Context, listing *models.Listing) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error, "listing")
}

// GetListingByID retrieves a listing by ID, including its owner
func (r *Repository) GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).Preload("Owner", publicUser).Where("id = ?", id).First(&listing).Error
	if err != nil {
		return nil, translate(err, "listing")
	}
	return &listing, nil
}

// SaveListing writes the owner-editable fields of listing. view_count and
// favorite_count are maintained by their own updates and never written here.
func (r *Repository) SaveListing(ctx context.Context, listing *models.Listing) error {
	err := r.db.WithContext(ctx).
		Omit(clause.Associations, "view_count", "favorite_count").
		Save(listing).Error
	return translate(err, "listing")
}

// SearchListings returns a page of active listings matching filter
func (r *Repository) SearchListings(ctx context.Context, filter models.ListingFilter) (*models.ListingPage, error) {
	query := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("status = ?", models.ListingStatusActive)

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if filter.Category != "" {
		query = query.Where("category_slug = ?", filter.Category)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, translate(err, "listing")
	}

	order, ok := listingOrder[filter.Sort]
	if !ok {
		order = listingOrder["newest"]
	}

	var listings []models.Listing
	err := query.
		Preload("Owner", publicUser).
		Order(order).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&listings).Error
	if err != nil {
		return nil, translate(err, "listing")
	}

	return &models.ListingPage{
		Listings: listings,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// ListListingsByOwner returns the owner's listings, newest first. A nil status
// returns everything except deleted listings.
func (r *Repository) ListListingsByOwner(ctx context.Context, ownerID uuid.UUID, status *models.ListingStatus) ([]models.Listing, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	} else {
		query = query.Where("status <> ?", models.ListingStatusDeleted)
	}

	var listings []models.Listing
	if err := query.Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, translate(err, "listing")
	}
	return listings, nil
}

// IncrementViewCount bumps the listing's view counter
func (r *Repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	return translate(err, "listing")
}

// RecomputeFavoriteCount sets favorite_count from the favorites rows and returns it
func (r *Repository) RecomputeFavoriteCount(ctx context.Context, listingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).Where("listing_id = ?", listingID).Count(&count).Error
	if err != nil {
		return 0, translate(err, "favorite")
	}
	err = r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listingID).
		UpdateColumn("favorite_count", count).Error
	if err != nil {
		return 0, translate(err, "listing")
	}
	return count, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
