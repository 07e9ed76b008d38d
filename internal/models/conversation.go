package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is the message thread between a buyer and a seller about a listing
type Conversation struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_triple" json:"listing_id"`
	Listing            *Listing   `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	BuyerID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_triple;index" json:"buyer_id"`
	Buyer              *User      `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	SellerID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_triple;index" json:"seller_id"`
	Seller             *User      `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	LastMessageAt      *time.Time `gorm:"index" json:"last_message_at"`
	LastMessagePreview string     `gorm:"size:255" json:"last_message_preview"`
	BuyerUnreadCount   int64      `gorm:"not null;default:0" json:"buyer_unread_count"`
	SellerUnreadCount  int64      `gorm:"not null;default:0" json:"seller_unread_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Conversation) IsParty(userID uuid.UUID) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// UnreadFor returns the unread counter belonging to userID
func (c *Conversation) UnreadFor(userID uuid.UUID) int64 {
	if c.BuyerID == userID {
		return c.BuyerUnreadCount
	}
	return c.SellerUnreadCount
}

type MessageKind string

const (
	MessageKindUser   MessageKind = "user"
	MessageKindSystem MessageKind = "system"
)

// Message is an append-only entry in a conversation. Only the read state changes.
type Message struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       uuid.UUID   `gorm:"type:uuid;not null;index" json:"sender_id"`
	Kind           MessageKind `gorm:"size:10;not null" json:"kind"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	IsRead         bool        `gorm:"not null;index" json:"is_read"`
	ReadAt         *time.Time  `json:"read_at,omitempty"`
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Message model
func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ConversationSummary is a conversation as seen by one of its parties
type ConversationSummary struct {
	Conversation
	UnreadCount int64 `json:"unread_count"`
}
