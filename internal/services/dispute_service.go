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

// DisputeService records trade disputes and listing reports for moderation
type DisputeService struct {
	repo *repository.Repository
	log  *zap.Logger
}

// NewDisputeService creates a new DisputeService
func NewDisputeService(repo *repository.Repository, log *zap.Logger) *DisputeService {
	return &DisputeService{repo: repo, log: log}
}

// OpenDispute files reporterID's dispute against the other party of a trade
func (s *DisputeService) OpenDispute(ctx context.Context, tradeID, reporterID uuid.UUID, req models.OpenDisputeRequest) (*models.Dispute, error) {
	if !oneOf(req.IssueType, models.DisputeIssueTypes) {
		return nil, apperr.Field("issue_type", "issue type must be one of "+strings.Join(models.DisputeIssueTypes, ", "))
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, apperr.Field("description", "description is required")
	}

	trade, err := s.repo.GetTradeByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParty(reporterID) {
		return nil, apperr.Forbidden("only trade participants can open a dispute")
	}

	dispute := &models.Dispute{
		TradeID:        trade.ID,
		ReporterID:     reporterID,
		ReportedUserID: trade.Counterparty(reporterID),
		IssueType:      req.IssueType,
		Description:    description,
		Status:         models.DisputeStatusOpen,
	}
	if err := s.repo.CreateDispute(ctx, dispute); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("you have already opened a dispute for this trade")
		}
		return nil, err
	}

	s.log.Info("dispute opened",
		zap.String("dispute_id", dispute.ID.String()),
		zap.String("trade_id", trade.ID.String()),
		zap.String("issue_type", dispute.IssueType))
	return dispute, nil
}

// ListDisputes returns disputes the user opened or is named in
func (s *DisputeService) ListDisputes(ctx context.Context, userID uuid.UUID) ([]models.Dispute, error) {
	return s.repo.ListDisputes(ctx, userID)
}

// ReportListing flags a listing owned by someone else
func (s *DisputeService) ReportListing(ctx context.Context, listingID, reporterID uuid.UUID, req models.ReportListingRequest) (*models.Report, error) {
	if !oneOf(req.IssueType, models.ReportIssueTypes) {
		return nil, apperr.Field("issue_type", "issue type must be one of "+strings.Join(models.ReportIssueTypes, ", "))
	}

	listing, err := s.repo.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := visibleTo(listing, reporterID); err != nil {
		return nil, err
	}
	if listing.OwnerID == reporterID {
		return nil, apperr.Validation("you cannot report your own listing", nil)
	}

	report := &models.Report{
		ListingID:      listing.ID,
		ReporterID:     reporterID,
		ReportedUserID: listing.OwnerID,
		IssueType:      req.IssueType,
		Description:    strings.TrimSpace(req.Description),
		Status:         models.ReportStatusPending,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("you have already reported this listing")
		}
		return nil, err
	}

	s.log.Info("listing reported",
		zap.String("report_id", report.ID.String()),
		zap.String("listing_id", listing.ID.String()),
		zap.String("issue_type", report.IssueType))
	return report, nil
}

// ListReports returns the reports filed by reporterID
func (s *DisputeService) ListReports(ctx context.Context, reporterID uuid.UUID) ([]models.Report, error) {
	return s.repo.ListReports(ctx, reporterID)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
