package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/services"
)

// ConversationHandler serves buyer/seller conversations
type ConversationHandler struct {
	conversations *services.ConversationService
	log           *zap.Logger
}

func NewConversationHandler(conversations *services.ConversationService, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, log: log}
}

// StartConversation opens (or reuses) the caller's conversation about a listing
// POST /api/conversations
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	var req models.StartConversationRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	conv, err := h.conversations.Start(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, conv)
}

// GetConversations GET /api/conversations
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}

	convs, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, convs, len(convs))
}

// GetMessages returns messages oldest first and marks the other party's messages read
// GET /api/conversations/:id/messages?limit=&before=
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	convID, found := pathID(c, h.log, "id", "conversation")
	if !found {
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, h.log, apperr.Field("before", "before must be an RFC3339 timestamp"))
			return
		}
		before = &t
	}

	messages, err := h.conversations.Messages(c.Request.Context(), convID, userID, limit, before)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	okList(c, messages, len(messages))
}

// PostMessage POST /api/conversations/:id/messages
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	userID, authed := currentUser(c, h.log)
	if !authed {
		return
	}
	convID, found := pathID(c, h.log, "id", "conversation")
	if !found {
		return
	}
	var req models.PostMessageRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	msg, err := h.conversations.Post(c.Request.Context(), convID, userID, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}
