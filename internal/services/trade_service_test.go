package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
)

func TestTradeHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trade, err := f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusInitiated, trade.Status)
	assert.True(t, trade.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, f.seller.ID, trade.SellerID)

	conv := f.conversation(t)
	assert.Equal(t, int64(0), conv.BuyerUnreadCount)

	trade, err = f.trades.Confirm(ctx, trade.ID, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusInProgress, trade.Status)
	assert.NotNil(t, trade.ConfirmedAt)

	conv = f.conversation(t)
	assert.Equal(t, int64(1), conv.BuyerUnreadCount)
	msgs, err := f.repo.ListMessages(ctx, conv.ID, 10, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageKindSystem, msgs[0].Kind)
	assert.Equal(t, f.seller.ID, msgs[0].SenderID)
	assert.Contains(t, msgs[0].Content, trade.TradeNumber)

	trade, err = f.trades.Complete(ctx, trade.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCompleted, trade.Status)
	require.NotNil(t, trade.CompletedAt)

	// completing does not touch the listing
	listing, err := f.repo.GetListingByID(ctx, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusActive, listing.Status)

	_, err = f.reviews.Submit(ctx, trade.ID, f.buyer.ID, models.SubmitReviewRequest{Rating: 5})
	require.NoError(t, err)

	_, err = f.reviews.Submit(ctx, trade.ID, f.seller.ID, models.SubmitReviewRequest{Rating: 4})
	require.NoError(t, err)
	_, err = f.reviews.Submit(ctx, trade.ID, f.seller.ID, models.SubmitReviewRequest{Rating: 4})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TradeTransitions.WithLabelValues("confirm", "in_progress")))
	f.assertUnreadInvariant(t, conv.ID)
}

func TestTradeNumberFormat(t *testing.T) {
	number, err := NewTradeNumber(time.Date(2024, 1, 31, 15, 45, 1, 0, time.UTC))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TR-20240131-154501-[1-9A-HJ-NP-Za-km-z]{6}$`), number)

	other, err := NewTradeNumber(time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, number, other)
}

func TestTradeCreateGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.trades.Create(ctx, f.seller.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "self trade")

	stranger := uuid.New()
	_, err = f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID, SellerID: &stranger})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "seller mismatch")

	_, err = f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: uuid.New()})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "missing listing")

	_, err = f.listings.SetStatus(ctx, f.listing.ID, f.seller.ID, models.ListingStatusPaused)
	require.NoError(t, err)
	_, err = f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "paused listing")
	assert.Equal(t, 400, apperr.HTTPStatus(apperr.KindOf(err)))

	_, err = f.listings.SetStatus(ctx, f.listing.ID, f.seller.ID, models.ListingStatusDeleted)
	require.NoError(t, err)
	_, err = f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "deleted listing")
}

func TestTradeAmountIsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade := f.openTrade(t)

	price := decimal.NewFromInt(250)
	_, err := f.listings.Update(ctx, f.listing.ID, f.seller.ID, models.UpdateListingRequest{Price: &price})
	require.NoError(t, err)

	got, err := f.trades.Get(ctx, trade.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
}

func TestOneActiveTradePerTriple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade := f.openTrade(t)

	_, err := f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	// another buyer may trade on the same listing
	other := f.user(t, "other")
	_, err = f.trades.Create(ctx, other.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	require.NoError(t, err)

	// once the first trade is terminal the buyer may start again
	_, err = f.trades.Cancel(ctx, trade.ID, f.buyer.ID)
	require.NoError(t, err)
	_, err = f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID, Note: "trying again"})
	require.NoError(t, err)
}

func TestActiveTradeUniqueAtStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade := f.openTrade(t)

	dup := &models.Trade{
		TradeNumber: "TR-DUPLICATE",
		ListingID:   trade.ListingID,
		BuyerID:     trade.BuyerID,
		SellerID:    trade.SellerID,
		Amount:      trade.Amount,
		Currency:    trade.Currency,
		Status:      models.TradeStatusPaid,
	}
	err := f.repo.CreateTrade(ctx, dup)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestConcurrentTradeCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var active int64
	require.NoError(t, f.db.Model(&models.Trade{}).
		Where("listing_id = ? AND buyer_id = ? AND status IN ?", f.listing.ID, f.buyer.ID, models.ActiveTradeStatuses).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestTradeNumberCollisionRetriesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.openTrade(t)

	calls := 0
	f.trades.numberGen = func(now time.Time) (string, error) {
		calls++
		if calls == 1 {
			return first.TradeNumber, nil
		}
		return NewTradeNumber(now)
	}
	other := f.user(t, "other")
	trade, err := f.trades.Create(ctx, other.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	require.NoError(t, err)
	assert.NotEqual(t, first.TradeNumber, trade.TradeNumber)
	assert.Equal(t, 2, calls)

	// a second collision fails without a third attempt
	calls = 0
	f.trades.numberGen = func(time.Time) (string, error) {
		calls++
		return first.TradeNumber, nil
	}
	third := f.user(t, "third")
	_, err = f.trades.Create(ctx, third.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	assert.True(t, apperr.Is(err, apperr.KindUnexpected))
	assert.Equal(t, 2, calls)

	// nothing partial was left behind
	conv, err := f.repo.FindConversation(ctx, f.listing.ID, third.ID, f.seller.ID)
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestTradeCreatePostsNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.trades.Create(ctx, f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID, Note: "  Can I pick it up Friday?  "})
	require.NoError(t, err)

	conv := f.conversation(t)
	assert.Equal(t, int64(1), conv.SellerUnreadCount)
	assert.Equal(t, "Can I pick it up Friday?", conv.LastMessagePreview)
	f.assertUnreadInvariant(t, conv.ID)
}

func TestTradeAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade := f.openTrade(t)
	stranger := f.user(t, "stranger")

	_, err := f.trades.Confirm(ctx, trade.ID, f.buyer.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "buyer cannot confirm")
	_, err = f.trades.Reject(ctx, trade.ID, f.buyer.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "buyer cannot reject")

	for _, op := range []func(context.Context, uuid.UUID, uuid.UUID) (*models.Trade, error){
		f.trades.Confirm, f.trades.Reject, f.trades.Cancel, f.trades.Complete,
	} {
		_, err = op(ctx, trade.ID, stranger.ID)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
	}
	_, err = f.trades.Get(ctx, trade.ID, stranger.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.trades.Confirm(ctx, uuid.New(), f.seller.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTradeCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade := f.completedTrade(t)
	conv := f.conversation(t)

	before, err := f.repo.ListMessages(ctx, conv.ID, 50, nil)
	require.NoError(t, err)

	again, err := f.trades.Complete(ctx, trade.ID, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCompleted, again.Status)
	assert.Equal(t, trade.CompletedAt.Unix(), again.CompletedAt.Unix())

	after, err := f.repo.ListMessages(ctx, conv.ID, 50, nil)
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	_, err = f.trades.Cancel(ctx, trade.ID, f.buyer.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "cancelling a completed trade")
}

func TestCompleteCancelledTradeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade := f.openTrade(t)

	trade, err := f.trades.Reject(ctx, trade.ID, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCancelled, trade.Status)
	require.NotNil(t, trade.CancelledBy)
	assert.Equal(t, f.seller.ID, *trade.CancelledBy)

	_, err = f.trades.Complete(ctx, trade.ID, f.buyer.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	_, err = f.trades.Confirm(ctx, trade.ID, f.seller.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestCompleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	trade := f.openTrade(t)

	_, err := f.trades.Complete(context.Background(), trade.ID, f.buyer.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

// Every (status, event, role) triple either follows one of the four legal
// edges or is rejected.
func TestTransitionTableEdges(t *testing.T) {
	legal := map[[2]models.TradeStatus]bool{
		{models.TradeStatusInitiated, models.TradeStatusInProgress}: true,
		{models.TradeStatusInitiated, models.TradeStatusCancelled}:  true,
		{models.TradeStatusInProgress, models.TradeStatusCompleted}: true,
		{models.TradeStatusInProgress, models.TradeStatusCancelled}: true,
	}
	statuses := []models.TradeStatus{
		models.TradeStatusInitiated, models.TradeStatusPaymentPending, models.TradeStatusPaid,
		models.TradeStatusInProgress, models.TradeStatusCompleted, models.TradeStatusCancelled,
		models.TradeStatusDisputed,
	}
	events := []TradeEvent{TradeEventConfirm, TradeEventReject, TradeEventCancel, TradeEventComplete}

	reached := map[[2]models.TradeStatus]bool{}
	for _, from := range statuses {
		for _, event := range events {
			for _, role := range []tradeRole{roleBuyer, roleSeller} {
				to, err := nextTradeStatus(from, event, role)
				if err != nil {
					kind := apperr.KindOf(err)
					assert.Contains(t, []apperr.Kind{apperr.KindInvalidState, apperr.KindForbidden}, kind)
					continue
				}
				edge := [2]models.TradeStatus{from, to}
				assert.True(t, legal[edge], "illegal edge %s -> %s via %s", from, to, event)
				reached[edge] = true
			}
		}
	}
	assert.Len(t, reached, len(legal))

	_, err := nextTradeStatus(models.TradeStatusInitiated, TradeEventConfirm, roleBuyer)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = nextTradeStatus(models.TradeStatusCompleted, TradeEventCancel, roleBuyer)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestListTrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openTrade(t)
	other := f.activeListing(t, f.buyer, 40)
	_, err := f.trades.Create(ctx, f.seller.ID, models.CreateTradeRequest{ListingID: other.ID})
	require.NoError(t, err)

	all, err := f.trades.List(ctx, f.buyer.ID, models.TradeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	buying, err := f.trades.List(ctx, f.buyer.ID, models.TradeFilter{Role: "buyer"})
	require.NoError(t, err)
	require.Len(t, buying, 1)
	assert.Equal(t, f.listing.ID, buying[0].ListingID)

	_, err = f.trades.List(ctx, f.buyer.ID, models.TradeFilter{Role: "broker"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
