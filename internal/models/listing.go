package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingStatusDraft   ListingStatus = "draft"
	ListingStatusActive  ListingStatus = "active"
	ListingStatusPaused  ListingStatus = "paused"
	ListingStatusSold    ListingStatus = "sold"
	ListingStatusDeleted ListingStatus = "deleted"
)

// Valid reports whether s is one of the fixed listing statuses
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusDraft, ListingStatusActive, ListingStatusPaused, ListingStatusSold, ListingStatusDeleted:
		return true
	}
	return false
}

type ListingType string

const (
	ListingTypeProduct ListingType = "product"
	ListingTypeService ListingType = "service"
)

func (t ListingType) Valid() bool {
	return t == ListingTypeProduct || t == ListingTypeService
}

// MaxListingImages bounds the number of image keys stored per listing
const MaxListingImages = 10

// Listing represents an item or service offered on the marketplace
type Listing struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       uuid.UUID                   `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner         *User                       `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CategorySlug  string                      `gorm:"size:64;not null;index" json:"category"`
	Type          ListingType                 `gorm:"size:20;not null" json:"type"`
	Title         string                      `gorm:"size:200;not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	Price         decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency      string                      `gorm:"size:3;not null" json:"currency"`
	Images        datatypes.JSONSlice[string] `json:"images"`
	Status        ListingStatus               `gorm:"size:20;not null;index" json:"status"`
	PublishedAt   *time.Time                  `json:"published_at"`
	ViewCount     int64                       `gorm:"not null;default:0" json:"view_count"`
	FavoriteCount int64                       `gorm:"not null;default:0" json:"favorite_count"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for Listing model
func (Listing) TableName() string {
	return "listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ListingFilter narrows catalog searches
type ListingFilter struct {
	Query    string
	Category string
	Type     ListingType
	OwnerID  *uuid.UUID
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Limit    int
	Offset   int
}

// ListingPage is a page of search results
type ListingPage struct {
	Listings []Listing `json:"listings"`
	Total    int64     `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
