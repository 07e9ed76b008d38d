package repository

import (
	"context"

	"gorm.io/gorm"

	"marketplace/internal/models"
)

const favoriteCountExpr = "(SELECT COUNT(*) FROM favorites WHERE favorites.listing_id = listings.id)"

// ReconcileFavoriteCounts rewrites every drifted listings.favorite_count and
// returns the number of listings corrected
func (r *Repository) ReconcileFavoriteCounts(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("favorite_count <> "+favoriteCountExpr).
		UpdateColumn("favorite_count", gorm.Expr(favoriteCountExpr))
	if result.Error != nil {
		return 0, translate(result.Error, "listing")
	}
	return result.RowsAffected, nil
}

// ReconcileUnreadCounts rewrites every drifted conversation unread counter and
// returns the number of conversations corrected
func (r *Repository) ReconcileUnreadCounts(ctx context.Context) (int64, error) {
	cols := unreadCountColumns()
	result := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("buyer_unread_count <> ? OR seller_unread_count <> ?", cols["buyer_unread_count"], cols["seller_unread_count"]).
		UpdateColumns(cols)
	if result.Error != nil {
		return 0, translate(result.Error, "conversation")
	}
	return result.RowsAffected, nil
}
