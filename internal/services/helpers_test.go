package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace/internal/auth"
	"marketplace/internal/database"
	"marketplace/internal/models"
	"marketplace/internal/observability"
	"marketplace/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err, "failed to connect database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db), "failed to migrate database")
	return db
}

// fixture is a seeded marketplace: a seller with an active listing priced at
// 100 USD and a buyer with no listings
type fixture struct {
	db      *gorm.DB
	repo    *repository.Repository
	metrics *observability.Metrics

	accounts      *AccountService
	listings      *ListingService
	trades        *TradeService
	conversations *ConversationService
	reviews       *ReviewService
	favorites     *FavoriteService
	disputes      *DisputeService
	reconcile     *ReconcileService

	seller  *models.User
	buyer   *models.User
	listing *models.Listing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	log := zap.NewNop()
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	f := &fixture{
		db:            db,
		repo:          repo,
		metrics:       metrics,
		accounts:      NewAccountService(repo, auth.NewTokenManager("test-secret", time.Hour), 4, log),
		listings:      NewListingService(repo, log, metrics, "USD"),
		trades:        NewTradeService(repo, log, metrics),
		conversations: NewConversationService(repo, log),
		reviews:       NewReviewService(repo, log),
		favorites:     NewFavoriteService(repo),
		disputes:      NewDisputeService(repo, log),
		reconcile:     NewReconcileService(repo, log, metrics),
	}

	_, err := NewCategoryService(repo).SeedDefaults(context.Background())
	require.NoError(t, err)

	f.seller = f.user(t, "seller")
	f.buyer = f.user(t, "buyer")
	f.listing = f.activeListing(t, f.seller, 100)
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	user := &models.User{Email: name + "-" + uuid.NewString()[:8] + "@example.com", PasswordHash: "x", DisplayName: name}
	require.NoError(t, f.repo.CreateUser(context.Background(), user))
	return user
}

func (f *fixture) activeListing(t *testing.T, owner *models.User, price int64) *models.Listing {
	t.Helper()
	p := decimal.NewFromInt(price)
	listing, err := f.listings.Create(context.Background(), owner.ID, models.CreateListingRequest{
		Title:    "Mountain bike",
		Category: "sports",
		Type:     models.ListingTypeProduct,
		Price:    &p,
		Status:   models.ListingStatusActive,
	})
	require.NoError(t, err)
	return listing
}

// draftListing creates an unpublished listing owned by the seller
func (f *fixture) draftListing(t *testing.T) *models.Listing {
	t.Helper()
	p := decimal.NewFromInt(50)
	listing, err := f.listings.Create(context.Background(), f.seller.ID, models.CreateListingRequest{
		Title:    "Unfinished ad",
		Category: "sports",
		Type:     models.ListingTypeProduct,
		Price:    &p,
	})
	require.NoError(t, err)
	require.Equal(t, models.ListingStatusDraft, listing.Status)
	return listing
}

func (f *fixture) openTrade(t *testing.T) *models.Trade {
	t.Helper()
	trade, err := f.trades.Create(context.Background(), f.buyer.ID, models.CreateTradeRequest{ListingID: f.listing.ID})
	require.NoError(t, err)
	return trade
}

func (f *fixture) completedTrade(t *testing.T) *models.Trade {
	t.Helper()
	ctx := context.Background()
	trade := f.openTrade(t)
	_, err := f.trades.Confirm(ctx, trade.ID, f.seller.ID)
	require.NoError(t, err)
	trade, err = f.trades.Complete(ctx, trade.ID, f.buyer.ID)
	require.NoError(t, err)
	return trade
}

func (f *fixture) conversation(t *testing.T) *models.Conversation {
	t.Helper()
	conv, err := f.repo.FindConversation(context.Background(), f.listing.ID, f.buyer.ID, f.seller.ID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	return conv
}

// assertUnreadInvariant checks both counters against the messages rows
func (f *fixture) assertUnreadInvariant(t *testing.T, conversationID uuid.UUID) {
	t.Helper()
	conv, err := f.repo.GetConversationByID(context.Background(), conversationID)
	require.NoError(t, err)

	var fromSeller, fromBuyer int64
	require.NoError(t, f.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id = ? AND is_read = ?", conv.ID, conv.SellerID, false).
		Count(&fromSeller).Error)
	require.NoError(t, f.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id = ? AND is_read = ?", conv.ID, conv.BuyerID, false).
		Count(&fromBuyer).Error)

	require.Equal(t, fromSeller, conv.BuyerUnreadCount, "buyer unread count")
	require.Equal(t, fromBuyer, conv.SellerUnreadCount, "seller unread count")
}
