package repository

import (
	"context"

	"github.com/google/uuid"

	"marketplace/internal/models"
)

// CreateDispute inserts a dispute. A second dispute by the same reporter on a
// trade surfaces as Conflict.
func (r *Repository) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	return translate(r.db.WithContext(ctx).Create(dispute).Error, "dispute")
}

// ListDisputes returns disputes the user opened or is named in
func (r *Repository) ListDisputes(ctx context.Context, userID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("reporter_id = ? OR reported_user_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&disputes).Error
	if err != nil {
		return nil, translate(err, "dispute")
	}
	return disputes, nil
}

// CreateReport inserts a listing report
func (r *Repository) CreateReport(ctx context.Context, report *models.Report) error {
	return translate(r.db.WithContext(ctx).Create(report).Error, "report")
}

// ListReports returns the reports filed by reporterID
func (r *Repository) ListReports(ctx context.Context, reporterID uuid.UUID) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, translate(err, "report")
	}
	return reports, nil
}
