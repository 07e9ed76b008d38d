package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TradeStatus string

const (
	TradeStatusInitiated      TradeStatus = "initiated"
	TradeStatusPaymentPending TradeStatus = "payment_pending"
	TradeStatusPaid           TradeStatus = "paid"
	TradeStatusInProgress     TradeStatus = "in_progress"
	TradeStatusCompleted      TradeStatus = "completed"
	TradeStatusCancelled      TradeStatus = "cancelled"
	TradeStatusDisputed       TradeStatus = "disputed"
)

// ActiveTradeStatuses are the statuses covered by the one-active-trade-per
// (listing, buyer, seller) unique index.
var ActiveTradeStatuses = []TradeStatus{
	TradeStatusInitiated,
	TradeStatusPaymentPending,
	TradeStatusPaid,
	TradeStatusInProgress,
}

// IsActive reports whether s counts toward the active-trade uniqueness rule
func (s TradeStatus) IsActive() bool {
	for _, active := range ActiveTradeStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave s
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusCompleted || s == TradeStatusCancelled
}

func (s TradeStatus) Valid() bool {
	switch s {
	case TradeStatusInitiated, TradeStatusPaymentPending, TradeStatusPaid, TradeStatusInProgress,
		TradeStatusCompleted, TradeStatusCancelled, TradeStatusDisputed:
		return true
	}
	return false
}

// Trade is a buyer's purchase attempt against a listing
type Trade struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TradeNumber string          `gorm:"size:40;uniqueIndex;not null" json:"trade_number"`
	ListingID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"listing_id"`
	Listing     *Listing        `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	BuyerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"buyer_id"`
	Buyer       *User           `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	SellerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"seller_id"`
	Seller      *User           `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Status      TradeStatus     `gorm:"size:30;not null;index" json:"status"`
	Note        string          `gorm:"type:text" json:"note,omitempty"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy *uuid.UUID      `gorm:"type:uuid" json:"cancelled_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Trade model
func (Trade) TableName() string {
	return "trades"
}

func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsParty reports whether userID is the buyer or the seller
func (t *Trade) IsParty(userID uuid.UUID) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// Counterparty returns the other side of the trade for a party
func (t *Trade) Counterparty(userID uuid.UUID) uuid.UUID {
	if t.BuyerID == userID {
		return t.SellerID
	}
	return t.BuyerID
}

// TradeFilter narrows a user's trade list
type TradeFilter struct {
	Role   string // buyer, seller or all
	Status TradeStatus
	Limit  int
	Offset int
}
