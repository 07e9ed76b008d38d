package repository

import (
	"context"

	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// ListCategories returns all categories ordered by name
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, translate(err, "category")
	}
	return categories, nil
}

func (r *Repository) CategoryExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, translate(err, "category")
	}
	return count > 0, nil
}

// SeedCategories inserts categories that do not exist yet and reports how many were added
func (r *Repository) SeedCategories(ctx context.Context, categories []models.Category) (int64, error) {
	if len(categories) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&categories)
	if result.Error != nil {
		return 0, translate(result.Error, "category")
	}
	return result.RowsAffected, nil
}
