package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace/internal/models"
	"marketplace/internal/services"
)

// ReportHandler serves listing reports and the caller's dispute history
type ReportHandler struct {
	disputes *services.DisputeService
	log      *zap.Logger
}

func NewReportHandler(disputes *services.DisputeService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{disputes: disputes, log: log}
}

// ReportListing flags a listing for moderation
// POST /api/listings/:id/reports
func (h *ReportHandler) ReportListing(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	listingID, found := pathID(c, h.log, "id", "listing")
	if !found {
		return
	}
	var req models.ReportListingRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	report, err := h.disputes.ReportListing(c.Request.Context(), listingID, userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, report)
}

// GetReports GET /api/reports
func (h *ReportHandler) GetReports(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}

	reports, err := h.disputes.ListReports(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, reports, len(reports))
}

// GetDisputes returns disputes the caller opened or is named in
// GET /api/disputes
func (h *ReportHandler) GetDisputes(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}

	disputes, err := h.disputes.ListDisputes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, disputes, len(disputes))
}
