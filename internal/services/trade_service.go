package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/observability"
	"marketplace/internal/repository"
)

var errTradeMoved = errors.New("trade changed concurrently")

// TradeService drives the trade lifecycle
type TradeService struct {
	repo      *repository.Repository
	log       *zap.Logger
	metrics   *observability.Metrics
	numberGen func(time.Time) (string, error)
	now       func() time.Time
}

// NewTradeService creates a new TradeService
func NewTradeService(repo *repository.Repository, log *zap.Logger, metrics *observability.Metrics) *TradeService {
	return &TradeService{
		repo:      repo,
		log:       log,
		metrics:   metrics,
		numberGen: NewTradeNumber,
		now:       time.Now,
	}
}

// Create opens a trade by buyerID on an active listing. The amount is a
// snapshot of the listing price. The buyer/seller conversation is created if
// needed and the optional note is posted to it.
func (s *TradeService) Create(ctx context.Context, buyerID uuid.UUID, req models.CreateTradeRequest) (*models.Trade, error) {
	listing, err := s.repo.GetListingByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == models.ListingStatusDeleted {
		return nil, apperr.NotFound("listing")
	}

	sellerID := listing.OwnerID
	if req.SellerID != nil && *req.SellerID != sellerID {
		return nil, apperr.Field("seller_id", "seller must be the listing owner")
	}
	if buyerID == sellerID {
		return nil, apperr.Validation("you cannot trade on your own listing", nil)
	}
	if listing.Status != models.ListingStatusActive {
		return nil, apperr.InvalidState("listing is %s and cannot be traded", listing.Status)
	}

	existing, err := s.repo.FindActiveTrade(ctx, listing.ID, buyerID, sellerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, activeTradeConflict(existing)
	}

	note := strings.TrimSpace(req.Note)

	// one retry covers a trade number collision
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		now := s.now()
		number, err := s.numberGen(now)
		if err != nil {
			return nil, apperr.Unexpected("failed to generate trade number", err)
		}

		trade := &models.Trade{
			TradeNumber: number,
			ListingID:   listing.ID,
			BuyerID:     buyerID,
			SellerID:    sellerID,
			Amount:      listing.Price,
			Currency:    listing.Currency,
			Status:      models.TradeStatusInitiated,
			Note:        note,
		}

		err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.CreateTrade(ctx, trade); err != nil {
				return err
			}
			conv, _, err := tx.GetOrCreateConversation(ctx, listing.ID, buyerID, sellerID)
			if err != nil {
				return err
			}
			if note != "" {
				_, err = appendMessage(ctx, tx, conv.ID, buyerID, models.MessageKindUser, note, now)
			}
			return err
		})
		if err == nil {
			s.metrics.TradeTransition("create", string(trade.Status))
			s.log.Info("trade created",
				zap.String("trade_id", trade.ID.String()),
				zap.String("trade_number", trade.TradeNumber),
				zap.String("listing_id", listing.ID.String()),
				zap.String("buyer_id", buyerID.String()))
			return trade, nil
		}
		if !apperr.Is(err, apperr.KindConflict) {
			return nil, err
		}

		// a concurrent request may have won the active-trade race
		existing, ferr := s.repo.FindActiveTrade(ctx, listing.ID, buyerID, sellerID)
		if ferr != nil {
			return nil, ferr
		}
		if existing != nil {
			return nil, activeTradeConflict(existing)
		}
		s.log.Warn("trade number collision, regenerating",
			zap.String("trade_number", number),
			zap.Int("attempt", attempt+1))
		lastErr = err
	}
	return nil, apperr.Unexpected("failed to allocate a unique trade number", lastErr)
}

// Confirm accepts an initiated trade. Seller only.
func (s *TradeService) Confirm(ctx context.Context, tradeID, userID uuid.UUID) (*models.Trade, error) {
	return s.apply(ctx, tradeID, userID, TradeEventConfirm)
}

// Reject declines an initiated trade. Seller only.
func (s *TradeService) Reject(ctx context.Context, tradeID, userID uuid.UUID) (*models.Trade, error) {
	return s.apply(ctx, tradeID, userID, TradeEventReject)
}

// Cancel abandons an initiated or in-progress trade. Either party.
func (s *TradeService) Cancel(ctx context.Context, tradeID, userID uuid.UUID) (*models.Trade, error) {
	return s.apply(ctx, tradeID, userID, TradeEventCancel)
}

// Complete finishes an in-progress trade. Either party; repeating it on a
// completed trade is a no-op. The listing's status is left untouched.
func (s *TradeService) Complete(ctx context.Context, tradeID, userID uuid.UUID) (*models.Trade, error) {
	return s.apply(ctx, tradeID, userID, TradeEventComplete)
}

// Get returns a trade visible to one of its parties
func (s *TradeService) Get(ctx context.Context, tradeID, userID uuid.UUID) (*models.Trade, error) {
	trade, err := s.repo.GetTradeByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParty(userID) {
		return nil, apperr.Forbidden("you are not a party to this trade")
	}
	return trade, nil
}

// List returns the user's trades
func (s *TradeService) List(ctx context.Context, userID uuid.UUID, filter models.TradeFilter) ([]models.Trade, error) {
	switch filter.Role {
	case "", "all", "buyer", "seller":
	default:
		return nil, apperr.Field("role", "role must be buyer, seller or all")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Field("status", "unknown trade status")
	}
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	return s.repo.ListTrades(ctx, userID, filter)
}

func (s *TradeService) apply(ctx context.Context, tradeID, userID uuid.UUID, event TradeEvent) (*models.Trade, error) {
	trade, err := s.repo.GetTradeByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParty(userID) {
		return nil, apperr.Forbidden("you are not a party to this trade")
	}
	if event == TradeEventComplete && trade.Status == models.TradeStatusCompleted {
		return trade, nil
	}

	role := roleBuyer
	if trade.SellerID == userID {
		role = roleSeller
	}
	to, err := nextTradeStatus(trade.Status, event, role)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.TradeStatusInProgress:
		updates["confirmed_at"] = now
	case models.TradeStatusCompleted:
		updates["completed_at"] = now
	case models.TradeStatusCancelled:
		updates["cancelled_at"] = now
		updates["cancelled_by"] = userID
	}

	var updated *models.Trade
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		ok, err := tx.TransitionTrade(ctx, trade.ID, trade.Status, updates)
		if err != nil {
			return err
		}
		if !ok {
			return errTradeMoved
		}

		conv, _, err := tx.GetOrCreateConversation(ctx, trade.ListingID, trade.BuyerID, trade.SellerID)
		if err != nil {
			return err
		}
		if _, err := appendMessage(ctx, tx, conv.ID, userID, models.MessageKindSystem, tradeEventMessage(trade, event, role), now); err != nil {
			return err
		}

		updated, err = tx.GetTradeByID(ctx, trade.ID)
		return err
	})
	if errors.Is(err, errTradeMoved) {
		current, gerr := s.repo.GetTradeByID(ctx, trade.ID)
		if gerr != nil {
			return nil, gerr
		}
		if event == TradeEventComplete && current.Status == models.TradeStatusCompleted {
			return current, nil
		}
		return nil, apperr.InvalidState("trade is now %s", current.Status)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.TradeTransition(string(event), string(to))
	s.log.Info("trade transition",
		zap.String("trade_id", trade.ID.String()),
		zap.String("event", string(event)),
		zap.String("from", string(trade.Status)),
		zap.String("to", string(to)),
		zap.String("actor_id", userID.String()))
	return updated, nil
}

func tradeEventMessage(trade *models.Trade, event TradeEvent, role tradeRole) string {
	switch event {
	case TradeEventConfirm:
		return fmt.Sprintf("Trade %s was confirmed by the seller and is now in progress.", trade.TradeNumber)
	case TradeEventReject:
		return fmt.Sprintf("Trade %s was declined by the seller.", trade.TradeNumber)
	case TradeEventCancel:
		return fmt.Sprintf("Trade %s was cancelled by the %s.", trade.TradeNumber, role)
	case TradeEventComplete:
		return fmt.Sprintf("Trade %s was marked as completed by the %s.", trade.TradeNumber, role)
	}
	return fmt.Sprintf("Trade %s was updated.", trade.TradeNumber)
}

func activeTradeConflict(existing *models.Trade) error {
	return apperr.Conflict(fmt.Sprintf("you already have an active trade (%s) for this listing", existing.TradeNumber))
}
