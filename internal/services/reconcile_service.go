package services

import (
	"context"

	"go.uber.org/zap"

	"marketplace/internal/observability"
	"marketplace/internal/repository"
)

// ReconcileReport counts the rows whose denormalized counters were corrected
type ReconcileReport struct {
	FavoriteCounts int64 `json:"favorite_counts"`
	UnreadCounts   int64 `json:"unread_counts"`
}

// ReconcileService repairs denormalized counters from their source rows
type ReconcileService struct {
	repo    *repository.Repository
	log     *zap.Logger
	metrics *observability.Metrics
}

func NewReconcileService(repo *repository.Repository, log *zap.Logger, metrics *observability.Metrics) *ReconcileService {
	return &ReconcileService{repo: repo, log: log, metrics: metrics}
}

// Run recomputes every favorite_count and unread counter
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	var report ReconcileReport
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if report.FavoriteCounts, err = tx.ReconcileFavoriteCounts(ctx); err != nil {
			return err
		}
		report.UnreadCounts, err = tx.ReconcileUnreadCounts(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CounterCorrected("favorite_count", int(report.FavoriteCounts))
	s.metrics.CounterCorrected("unread_count", int(report.UnreadCounts))
	s.log.Info("counters reconciled",
		zap.Int64("favorite_counts", report.FavoriteCounts),
		zap.Int64("unread_counts", report.UnreadCounts))
	return &report, nil
}
