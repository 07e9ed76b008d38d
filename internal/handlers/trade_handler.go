package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/internal/models"
	"marketplace/internal/services"
)

// TradeHandler serves the trade lifecycle and the reviews and disputes hanging off a trade
type TradeHandler struct {
	trades   *services.TradeService
	reviews  *services.ReviewService
	disputes *services.DisputeService
	log      *zap.Logger
}

func NewTradeHandler(trades *services.TradeService, reviews *services.ReviewService, disputes *services.DisputeService, log *zap.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, reviews: reviews, disputes: disputes, log: log}
}

// CreateTrade starts a trade on a listing as the buyer
// POST /api/trades
func (h *TradeHandler) CreateTrade(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	var req models.CreateTradeRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	trade, err := h.trades.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, trade)
}

// GetTrades lists the caller's trades
// GET /api/trades?role=buyer|seller|all&status=
func (h *TradeHandler) GetTrades(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	filter := models.TradeFilter{
		Role:   c.DefaultQuery("role", "all"),
		Status: models.TradeStatus(c.Query("status")),
	}
	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		respondError(c, h.log, err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		respondError(c, h.log, err)
		return
	}

	trades, err := h.trades.List(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, trades, len(trades))
}

// GetTrade returns one trade to either party
// GET /api/trades/:id
func (h *TradeHandler) GetTrade(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	tradeID, found := pathID(c, h.log, "id", "trade")
	if !found {
		return
	}

	trade, err := h.trades.Get(c.Request.Context(), tradeID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, trade)
}

// ConfirmTrade POST /api/trades/:id/confirm
func (h *TradeHandler) ConfirmTrade(c *gin.Context) {
	h.transition(c, h.trades.Confirm)
}

// RejectTrade POST /api/trades/:id/reject
func (h *TradeHandler) RejectTrade(c *gin.Context) {
	h.transition(c, h.trades.Reject)
}

// CancelTrade POST /api/trades/:id/cancel
func (h *TradeHandler) CancelTrade(c *gin.Context) {
	h.transition(c, h.trades.Cancel)
}

// CompleteTrade POST /api/trades/:id/complete
func (h *TradeHandler) CompleteTrade(c *gin.Context) {
	h.transition(c, h.trades.Complete)
}

func (h *TradeHandler) transition(c *gin.Context, apply func(context.Context, uuid.UUID, uuid.UUID) (*models.Trade, error)) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	tradeID, found := pathID(c, h.log, "id", "trade")
	if !found {
		return
	}

	trade, err := apply(c.Request.Context(), tradeID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, trade)
}

// GetTradeReviews returns the reviews left on a trade
// GET /api/trades/:id/reviews
func (h *TradeHandler) GetTradeReviews(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	tradeID, found := pathID(c, h.log, "id", "trade")
	if !found {
		return
	}

	reviews, err := h.reviews.ListForTrade(c.Request.Context(), tradeID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, reviews, len(reviews))
}

// SubmitReview reviews the other party of a completed trade
// POST /api/trades/:id/reviews
func (h *TradeHandler) SubmitReview(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	tradeID, found := pathID(c, h.log, "id", "trade")
	if !found {
		return
	}
	var req models.SubmitReviewRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	review, err := h.reviews.Submit(c.Request.Context(), tradeID, userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, review)
}

// OpenDispute files a dispute against the other party
// POST /api/trades/:id/disputes
func (h *TradeHandler) OpenDispute(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	tradeID, found := pathID(c, h.log, "id", "trade")
	if !found {
		return
	}
	var req models.OpenDisputeRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	dispute, err := h.disputes.OpenDispute(c.Request.Context(), tradeID, userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, dispute)
}
