package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// CreateTrade inserts a trade. A second active trade for the same
// (listing, buyer, seller) or a reused trade number surfaces as Conflict.
func (r *Repository) CreateTrade(ctx context.Context, trade *models.Trade) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(trade).Error, "trade")
}

// GetTradeByID retrieves a trade by ID, including its listing
func (r *Repository) GetTradeByID(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.WithContext(ctx).Preload("Listing").Where("id = ?", id).First(&trade).Error
	if err != nil {
		return nil, translate(err, "trade")
	}
	return &trade, nil
}

// FindActiveTrade returns the non-terminal trade for the triple, or nil
func (r *Repository) FindActiveTrade(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ? AND seller_id = ? AND status IN ?",
			listingID, buyerID, sellerID, models.ActiveTradeStatuses).
		First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "trade")
	}
	return &trade, nil
}

// TransitionTrade applies updates only while the trade is still in from.
// It reports false when another writer moved the trade first.
func (r *Repository) TransitionTrade(ctx context.Context, id uuid.UUID, from models.TradeStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Trade{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, translate(result.Error, "trade")
	}
	return result.RowsAffected == 1, nil
}

// ListTrades returns trades where userID takes the role in filter, newest first
func (r *Repository) ListTrades(ctx context.Context, userID uuid.UUID, filter models.TradeFilter) ([]models.Trade, error) {
	query := r.db.WithContext(ctx).Preload("Listing")
	switch filter.Role {
	case "buyer":
		query = query.Where("buyer_id = ?", userID)
	case "seller":
		query = query.Where("seller_id = ?", userID)
	default:
		query = query.Where("buyer_id = ? OR seller_id = ?", userID, userID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var trades []models.Trade
	err := query.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&trades).Error
	if err != nil {
		return nil, translate(err, "trade")
	}
	return trades, nil
}
