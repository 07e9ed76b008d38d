package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace/internal/auth"
	"marketplace/internal/database"
	"marketplace/internal/observability"
	"marketplace/internal/repository"
	"marketplace/internal/services"
)

type envelope struct {
	Success     bool              `json:"success"`
	Data        json.RawMessage   `json:"data"`
	Count       int               `json:"count"`
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"fieldErrors"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func setupRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	repo := repository.NewRepository(db)
	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	categories := services.NewCategoryService(repo)
	_, err = categories.SeedDefaults(context.Background())
	require.NoError(t, err)

	router := NewRouter(Deps{
		Accounts:      services.NewAccountService(repo, tokens, 4, log),
		Categories:    categories,
		Listings:      services.NewListingService(repo, log, metrics, "USD"),
		Trades:        services.NewTradeService(repo, log, metrics),
		Conversations: services.NewConversationService(repo, log),
		Reviews:       services.NewReviewService(repo, log),
		Favorites:     services.NewFavoriteService(repo),
		Disputes:      services.NewDisputeService(repo, log),
		Tokens:        tokens,
		Metrics:       metrics,
		Gatherer:      reg,
		Log:           log,
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (s *testServer) register(email string) (token string, userID string) {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/auth/register", "", gin.H{
		"email":        email,
		"password":     "correct-horse",
		"display_name": email,
	})
	require.Equal(s.t, http.StatusCreated, code, env.Error)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	return resp.Token, resp.User.ID
}

func (s *testServer) createListing(token string, fields gin.H) map[string]interface{} {
	s.t.Helper()
	body := gin.H{
		"title":    "Road bike",
		"category": "sports",
		"type":     "product",
		"price":    100,
		"status":   "active",
	}
	for k, v := range fields {
		body[k] = v
	}
	code, env := s.do(http.MethodPost, "/api/listings", token, body)
	require.Equal(s.t, http.StatusCreated, code, env.Error)
	return decodeObject(s.t, env)
}

func decodeObject(t *testing.T, env envelope) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupRouter(t)

	code, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "marketplace_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := setupRouter(t)

	for _, path := range []string{"/api/trades", "/api/favorites", "/api/conversations", "/auth/me"} {
		code, _ := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
	code, _ := s.do(http.MethodGet, "/api/trades", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRegisterValidation(t *testing.T) {
	s := setupRouter(t)

	code, env := s.do(http.MethodPost, "/auth/register", "", gin.H{"email": "nope", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.FieldErrors, "email")
	assert.Contains(t, env.FieldErrors, "password")

	s.register("dup@example.com")
	code, env = s.do(http.MethodPost, "/auth/register", "", gin.H{"email": "dup@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, env.Error)
}

func TestLoginAndMe(t *testing.T) {
	s := setupRouter(t)
	s.register("me@example.com")

	code, _ := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "me@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "me@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, code)
	token, _ := decodeObject(t, env)["token"].(string)
	require.NotEmpty(t, token)

	code, env = s.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "me@example.com", decodeObject(t, env)["email"])
}

func TestTradeLifecycleOverHTTP(t *testing.T) {
	s := setupRouter(t)
	sellerToken, sellerID := s.register("seller@example.com")
	buyerToken, _ := s.register("buyer@example.com")

	listing := s.createListing(sellerToken, nil)
	listingID := listing["id"].(string)

	code, env := s.do(http.MethodPost, "/api/trades", buyerToken, gin.H{"listing_id": listingID})
	require.Equal(t, http.StatusCreated, code, env.Error)
	trade := decodeObject(t, env)
	tradeID := trade["id"].(string)
	assert.Equal(t, "initiated", trade["status"])
	assert.Equal(t, sellerID, trade["seller_id"])

	code, _ = s.do(http.MethodPost, "/api/trades/"+tradeID+"/confirm", buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPost, "/api/trades/"+tradeID+"/confirm", sellerToken, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "in_progress", decodeObject(t, env)["status"])

	code, env = s.do(http.MethodGet, "/api/conversations", buyerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)

	code, env = s.do(http.MethodPost, "/api/trades/"+tradeID+"/complete", buyerToken, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "completed", decodeObject(t, env)["status"])

	code, _ = s.do(http.MethodPost, "/api/trades/"+tradeID+"/complete", sellerToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodPost, "/api/trades/"+tradeID+"/reviews", buyerToken, gin.H{"rating": 5, "comment": "Smooth handover"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = s.do(http.MethodPost, "/api/trades/"+tradeID+"/reviews", buyerToken, gin.H{"rating": 4})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "you have already reviewed this trade", env.Error)

	code, env = s.do(http.MethodGet, "/api/users/"+sellerID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)
}

func TestTradeOnPausedListing(t *testing.T) {
	s := setupRouter(t)
	sellerToken, _ := s.register("seller@example.com")
	buyerToken, _ := s.register("buyer@example.com")
	listingID := s.createListing(sellerToken, nil)["id"].(string)

	code, env := s.do(http.MethodPut, "/api/listings/"+listingID+"/status", sellerToken, gin.H{"status": "paused"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, _ = s.do(http.MethodPost, "/api/trades", buyerToken, gin.H{"listing_id": listingID})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDraftVisibility(t *testing.T) {
	s := setupRouter(t)
	sellerToken, _ := s.register("seller@example.com")
	otherToken, _ := s.register("other@example.com")
	listingID := s.createListing(sellerToken, gin.H{"status": "draft"})["id"].(string)

	code, _ := s.do(http.MethodGet, "/api/listings/"+listingID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(http.MethodGet, "/api/listings/"+listingID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(http.MethodGet, "/api/listings/"+listingID, sellerToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSearchListings(t *testing.T) {
	s := setupRouter(t)
	sellerToken, _ := s.register("seller@example.com")
	s.createListing(sellerToken, gin.H{"title": "Cheap lamp", "category": "home-garden", "price": 15})
	s.createListing(sellerToken, gin.H{"title": "Mountain bike", "price": 400})

	code, env := s.do(http.MethodGet, "/api/listings?min_price=100", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)

	code, env = s.do(http.MethodGet, "/api/listings?q=LAMP", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)

	code, env = s.do(http.MethodGet, "/api/listings?min_price=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.FieldErrors, "min_price")

	code, env = s.do(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Greater(t, env.Count, 5)
}

func TestFavoritesOverHTTP(t *testing.T) {
	s := setupRouter(t)
	sellerToken, _ := s.register("seller@example.com")
	buyerToken, _ := s.register("buyer@example.com")
	listingID := s.createListing(sellerToken, nil)["id"].(string)

	code, env := s.do(http.MethodPost, "/api/favorites", buyerToken, gin.H{"listing_id": listingID})
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.Equal(t, float64(1), decodeObject(t, env)["favorite_count"])

	code, env = s.do(http.MethodPost, "/api/favorites", buyerToken, gin.H{"listing_id": listingID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "listing is already in your favorites", env.Error)

	code, env = s.do(http.MethodPost, "/api/favorites/"+listingID+"/toggle", buyerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, decodeObject(t, env)["favorited"])

	code, _ = s.do(http.MethodDelete, "/api/favorites/"+listingID, buyerToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConversationOverHTTP(t *testing.T) {
	s := setupRouter(t)
	sellerToken, _ := s.register("seller@example.com")
	buyerToken, _ := s.register("buyer@example.com")
	strangerToken, _ := s.register("stranger@example.com")
	listingID := s.createListing(sellerToken, nil)["id"].(string)

	code, env := s.do(http.MethodPost, "/api/conversations", buyerToken, gin.H{"listing_id": listingID, "message": "Still available?"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	convID := decodeObject(t, env)["id"].(string)

	code, env = s.do(http.MethodPost, "/api/conversations/"+convID+"/messages", sellerToken, gin.H{"content": "Yes"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, _ = s.do(http.MethodGet, "/api/conversations/"+convID+"/messages", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodGet, "/api/conversations/"+convID+"/messages?before=yesterday", buyerToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.FieldErrors, "before")

	code, env = s.do(http.MethodGet, "/api/conversations/"+convID+"/messages", buyerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, env.Count)
}

func TestReportsAndDisputes(t *testing.T) {
	s := setupRouter(t)
	sellerToken, _ := s.register("seller@example.com")
	buyerToken, _ := s.register("buyer@example.com")
	listingID := s.createListing(sellerToken, nil)["id"].(string)

	code, env := s.do(http.MethodPost, "/api/listings/"+listingID+"/reports", buyerToken, gin.H{"issue_type": "spam", "description": "Posted ten times"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = s.do(http.MethodGet, "/api/reports", buyerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)

	code, env = s.do(http.MethodGet, "/api/disputes", buyerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Count)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	s := setupRouter(t)
	token, _ := s.register("someone@example.com")

	code, env := s.do(http.MethodGet, "/api/trades/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "trade not found", env.Error)

	code, _ = s.do(http.MethodGet, "/api/listings/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
