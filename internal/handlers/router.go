package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marketplace/internal/auth"
	"marketplace/internal/observability"
	"marketplace/internal/services"
)

// Deps is everything the router needs. It is built once by the composition root.
type Deps struct {
	Accounts      *services.AccountService
	Categories    *services.CategoryService
	Listings      *services.ListingService
	Trades        *services.TradeService
	Conversations *services.ConversationService
	Reviews       *services.ReviewService
	Favorites     *services.FavoriteService
	Disputes      *services.DisputeService

	Tokens         *auth.TokenManager
	Metrics        *observability.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter wires middleware and every route
func NewRouter(d Deps) *gin.Engine {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(d.Log))
	router.Use(RequestMetrics(d.Metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := NewAuthHandler(d.Accounts, d.Log)
	userHandler := NewUserHandler(d.Accounts, d.Reviews, d.Log)
	listingHandler := NewListingHandler(d.Listings, d.Categories, d.Log)
	tradeHandler := NewTradeHandler(d.Trades, d.Reviews, d.Disputes, d.Log)
	conversationHandler := NewConversationHandler(d.Conversations, d.Log)
	favoriteHandler := NewFavoriteHandler(d.Favorites, d.Log)
	reportHandler := NewReportHandler(d.Disputes, d.Log)

	requireAuth := auth.Middleware(d.Tokens, d.Log)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Authentication routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", authHandler.Logout)
		authRoutes.GET("/me", requireAuth, authHandler.GetMe)
	}

	// Public routes
	public := router.Group("/api")
	{
		public.GET("/categories", listingHandler.GetCategories)
		public.GET("/listings", listingHandler.Search)
		public.GET("/listings/:id", auth.OptionalMiddleware(d.Tokens), listingHandler.GetListing)
		public.GET("/users/:id", userHandler.GetProfile)
		public.GET("/users/:id/reviews", userHandler.GetReviews)
	}

	// API routes (protected)
	api := router.Group("/api")
	api.Use(requireAuth)
	{
		api.PATCH("/me", authHandler.UpdateProfile)
		api.POST("/me/password", authHandler.ChangePassword)
		api.GET("/me/listings", listingHandler.MyListings)

		// Listings
		api.POST("/listings", listingHandler.CreateListing)
		api.PATCH("/listings/:id", listingHandler.UpdateListing)
		api.PUT("/listings/:id/status", listingHandler.SetStatus)
		api.DELETE("/listings/:id", listingHandler.DeleteListing)
		api.POST("/listings/:id/reports", reportHandler.ReportListing)

		// Trades
		api.POST("/trades", tradeHandler.CreateTrade)
		api.GET("/trades", tradeHandler.GetTrades)
		api.GET("/trades/:id", tradeHandler.GetTrade)
		api.POST("/trades/:id/confirm", tradeHandler.ConfirmTrade)
		api.POST("/trades/:id/reject", tradeHandler.RejectTrade)
		api.POST("/trades/:id/cancel", tradeHandler.CancelTrade)
		api.POST("/trades/:id/complete", tradeHandler.CompleteTrade)
		api.GET("/trades/:id/reviews", tradeHandler.GetTradeReviews)
		api.POST("/trades/:id/reviews", tradeHandler.SubmitReview)
		api.POST("/trades/:id/disputes", tradeHandler.OpenDispute)

		// Conversations
		api.POST("/conversations", conversationHandler.StartConversation)
		api.GET("/conversations", conversationHandler.GetConversations)
		api.GET("/conversations/:id/messages", conversationHandler.GetMessages)
		api.POST("/conversations/:id/messages", conversationHandler.PostMessage)

		// Favorites
		api.GET("/favorites", favoriteHandler.GetFavorites)
		api.POST("/favorites", favoriteHandler.AddFavorite)
		api.DELETE("/favorites/:listingId", favoriteHandler.RemoveFavorite)
		api.POST("/favorites/:listingId/toggle", favoriteHandler.ToggleFavorite)

		// Moderation
		api.GET("/disputes", reportHandler.GetDisputes)
		api.GET("/reports", reportHandler.GetReports)
	}

	return router
}
