package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/repository"
)

const (
	previewLength       = 200
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// ConversationService manages message threads between buyers and sellers
type ConversationService struct {
	repo *repository.Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewConversationService creates a new ConversationService
func NewConversationService(repo *repository.Repository, log *zap.Logger) *ConversationService {
	return &ConversationService{repo: repo, log: log, now: time.Now}
}

// Start opens the caller's conversation with the owner of a listing, posting
// an optional first message
func (s *ConversationService) Start(ctx context.Context, buyerID uuid.UUID, req models.StartConversationRequest) (*models.Conversation, error) {
	listing, err := s.repo.GetListingByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if err := visibleTo(listing, buyerID); err != nil {
		return nil, err
	}
	if listing.OwnerID == buyerID {
		return nil, apperr.Validation("you cannot message yourself about your own listing", nil)
	}

	content := strings.TrimSpace(req.Message)
	var conv *models.Conversation
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		conv, _, err = tx.GetOrCreateConversation(ctx, listing.ID, buyerID, listing.OwnerID)
		if err != nil {
			return err
		}
		if content != "" {
			if _, err := appendMessage(ctx, tx, conv.ID, buyerID, models.MessageKindUser, content, s.now()); err != nil {
				return err
			}
		}
		conv, err = tx.GetConversationByID(ctx, conv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns the caller's conversations with their own unread counts
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	convs, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		out = append(out, models.ConversationSummary{
			Conversation: conv,
			UnreadCount:  conv.UnreadFor(userID),
		})
	}
	return out, nil
}

// Messages returns a page of the conversation's messages. Opening the feed
// marks the other party's messages as read for readerID.
func (s *ConversationService) Messages(ctx context.Context, conversationID, readerID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	conv, err := s.repo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParty(readerID) {
		return nil, apperr.Forbidden("you are not a participant in this conversation")
	}

	if err := s.MarkRead(ctx, conv.ID, readerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	return s.repo.ListMessages(ctx, conv.ID, limit, before)
}

// Post appends a user message from senderID
func (s *ConversationService) Post(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Field("content", "message cannot be empty")
	}

	conv, err := s.repo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParty(senderID) {
		return nil, apperr.Forbidden("you are not a participant in this conversation")
	}

	var msg *models.Message
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		msg, err = appendMessage(ctx, tx, conv.ID, senderID, models.MessageKindUser, content, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead flips the other party's messages to read and zeroes the reader's counter
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		n, err := tx.MarkMessagesRead(ctx, conversationID, readerID, s.now())
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		return tx.RecomputeUnreadCounts(ctx, conversationID)
	})
}

// appendMessage writes a message and refreshes the conversation's activity
// fields and unread counters. tx must be a transaction-bound repository.
func appendMessage(ctx context.Context, tx *repository.Repository, conversationID, senderID uuid.UUID, kind models.MessageKind, content string, at time.Time) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Kind:           kind,
		Content:        content,
		IsRead:         false,
		CreatedAt:      at,
	}
	if err := tx.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := tx.TouchConversation(ctx, conversationID, at, messagePreview(content)); err != nil {
		return nil, err
	}
	if err := tx.RecomputeUnreadCounts(ctx, conversationID); err != nil {
		return nil, err
	}
	return msg, nil
}

func messagePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
