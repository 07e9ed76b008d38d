package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// FindConversation returns the conversation for the triple, or nil
func (r *Repository) FindConversation(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ? AND seller_id = ?", listingID, buyerID, sellerID).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "conversation")
	}
	return &conv, nil
}

// GetOrCreateConversation returns the conversation for the triple, inserting it
// when absent. Concurrent callers converge on the same row.
func (r *Repository) GetOrCreateConversation(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Conversation, bool, error) {
	conv, err := r.FindConversation(ctx, listingID, buyerID, sellerID)
	if err != nil || conv != nil {
		return conv, false, err
	}

	conv = &models.Conversation{
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
	}
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(conv)
	if result.Error != nil {
		return nil, false, translate(result.Error, "conversation")
	}
	if result.RowsAffected == 1 {
		return conv, true, nil
	}

	conv, err = r.FindConversation(ctx, listingID, buyerID, sellerID)
	if err != nil {
		return nil, false, err
	}
	if conv == nil {
		return nil, false, translate(gorm.ErrRecordNotFound, "conversation")
	}
	return conv, false, nil
}

// GetConversationByID retrieves a conversation by ID
func (r *Repository) GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, translate(err, "conversation")
	}
	return &conv, nil
}

// ListConversations returns the user's conversations, most recent activity first
func (r *Repository) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Preload("Buyer", publicUser).
		Preload("Seller", publicUser).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&convs).Error
	if err != nil {
		return nil, translate(err, "conversation")
	}
	return convs, nil
}

// CreateMessage appends a message
func (r *Repository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return translate(r.db.WithContext(ctx).Create(msg).Error, "message")
}

// ListMessages returns up to limit messages older than before, oldest first
func (r *Repository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var msgs []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, translate(err, "message")
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkMessagesRead flips every unread message not sent by readerID
func (r *Repository) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if result.Error != nil {
		return 0, translate(result.Error, "message")
	}
	return result.RowsAffected, nil
}

// TouchConversation records the latest message on the conversation
func (r *Repository) TouchConversation(ctx context.Context, conversationID uuid.UUID, at time.Time, preview string) error {
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message_at":      at,
			"last_message_preview": preview,
		}).Error
	return translate(err, "conversation")
}

// RecomputeUnreadCounts derives both unread counters from the messages rows
func (r *Repository) RecomputeUnreadCounts(ctx context.Context, conversationID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumns(unreadCountColumns()).Error
	return translate(err, "conversation")
}

func unreadCountColumns() map[string]interface{} {
	return map[string]interface{}{
		"buyer_unread_count": gorm.Expr(
			"(SELECT COUNT(*) FROM messages WHERE messages.conversation_id = conversations.id AND messages.sender_id = conversations.seller_id AND messages.is_read = ?)", false),
		"seller_unread_count": gorm.Expr(
			"(SELECT COUNT(*) FROM messages WHERE messages.conversation_id = conversations.id AND messages.sender_id = conversations.buyer_id AND messages.is_read = ?)", false),
	}
}
