package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// CreateReview inserts a review. A second review by the same reviewer on a
// trade surfaces as Conflict.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error, "review")
}

// ListPublicReviews returns public reviews received by revieweeID, newest first
func (r *Repository) ListPublicReviews(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("Reviewer", publicUser).
		Where("reviewee_id = ? AND is_public = ?", revieweeID, true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, translate(err, "review")
	}
	return reviews, nil
}

// ListTradeReviews returns every review left on a trade
func (r *Repository) ListTradeReviews(ctx context.Context, tradeID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Where("trade_id = ?", tradeID).
		Order("created_at ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, translate(err, "review")
	}
	return reviews, nil
}

// GetReviewSummary aggregates the public reviews received by userID
func (r *Repository) GetReviewSummary(ctx context.Context, userID uuid.UUID) (models.ReviewSummary, error) {
	var row struct {
		Count   int64
		Average *float64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("COUNT(*) AS count, CAST(AVG(rating) AS FLOAT) AS average").
		Where("reviewee_id = ? AND is_public = ?", userID, true).
		Scan(&row).Error
	if err != nil {
		return models.ReviewSummary{}, translate(err, "review")
	}

	summary := models.ReviewSummary{Count: row.Count}
	if row.Average != nil {
		summary.AverageRating = *row.Average
	}
	return summary, nil
}
