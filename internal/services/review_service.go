package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// ReviewService records ratings between the parties of completed trades
type ReviewService struct {
	repo *repository.Repository
	log  *zap.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(repo *repository.Repository, log *zap.Logger) *ReviewService {
	return &ReviewService{repo: repo, log: log}
}

// Submit records reviewerID's review of the other party of a completed trade
func (s *ReviewService) Submit(ctx context.Context, tradeID, reviewerID uuid.UUID, req models.SubmitReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.Field("rating", "rating must be between 1 and 5")
	}

	trade, err := s.repo.GetTradeByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParty(reviewerID) {
		return nil, apperr.Forbidden("only trade participants can leave a review")
	}
	if trade.Status != models.TradeStatusCompleted {
		return nil, apperr.InvalidState("reviews can only be left on completed trades")
	}

	revieweeID := trade.Counterparty(reviewerID)
	if req.RevieweeID != nil && *req.RevieweeID != revieweeID {
		return nil, apperr.Field("reviewee_id", "you can only review the other party of the trade")
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	review := &models.Review{
		TradeID:    trade.ID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Rating:     req.Rating,
		Title:      strings.TrimSpace(req.Title),
		Comment:    strings.TrimSpace(req.Comment),
		IsPublic:   isPublic,
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("you have already reviewed this trade")
		}
		return nil, err
	}

	s.log.Info("review submitted",
		zap.String("review_id", review.ID.String()),
		zap.String("trade_id", trade.ID.String()),
		zap.Int("rating", review.Rating))
	return review, nil
}

// ListForUser returns the public reviews a user has received
func (s *ReviewService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListPublicReviews(ctx, userID, limit, offset)
}

// ListForTrade returns all reviews on a trade. Parties only.
func (s *ReviewService) ListForTrade(ctx context.Context, tradeID, userID uuid.UUID) ([]models.Review, error) {
	trade, err := s.repo.GetTradeByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParty(userID) {
		return nil, apperr.Forbidden("you are not a party to this trade")
	}
	return s.repo.ListTradeReviews(ctx, tradeID)
}

// Summary aggregates the public reviews a user has received
func (s *ReviewService) Summary(ctx context.Context, userID uuid.UUID) (models.ReviewSummary, error) {
	return s.repo.GetReviewSummary(ctx, userID)
}
