package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace/internal/models"
	"marketplace/internal/services"
)

// AuthHandler handles authentication and account endpoints
type AuthHandler struct {
	accounts *services.AccountService
	log      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *services.AccountService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

// Register creates an account and signs the user in
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	resp, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

// Login exchanges email and password for a token
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	resp, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// Logout handles user logout (stateless JWT, client-side only)
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}

// GetMe returns the currently authenticated user's account
// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}

	user, err := h.accounts.GetMe(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, user)
}

// UpdateProfile patches the caller's profile
// PATCH /api/me
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, user)
}

// ChangePassword replaces the caller's password
// POST /api/me/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
