package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// CreateFavorite inserts a favorite. An existing (user, listing) pair
// surfaces as Conflict.
func (r *Repository) CreateFavorite(ctx context.Context, fav *models.Favorite) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(fav).Error, "favorite")
}

// DeleteFavorite removes the pair and reports whether a row existed
func (r *Repository) DeleteFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&models.Favorite{})
	if result.Error != nil {
		return false, translate(result.Error, "favorite")
	}
	return result.RowsAffected > 0, nil
}

// FindFavorite returns the favorite for the pair, or nil
func (r *Repository) FindFavorite(ctx context.Context, userID, listingID uuid.UUID) (*models.Favorite, error) {
	var fav models.Favorite
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		First(&fav).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "favorite")
	}
	return &fav, nil
}

// ListFavorites returns the user's favorites with their listings, newest first
func (r *Repository) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Favorite, error) {
	var favs []models.Favorite
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favs).Error
	if err != nil {
		return nil, translate(err, "favorite")
	}
	return favs, nil
}
