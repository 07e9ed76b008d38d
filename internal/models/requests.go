package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterRequest represents a new account request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

// LoginRequest represents an email/password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UpdateProfileRequest patches the caller's profile. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,notblank,max=100"`
	Bio         *string `json:"bio" binding:"omitempty,max=2000"`
	Location    *string `json:"location" binding:"omitempty,max=255"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,max=500"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// CreateListingRequest represents a new listing. Status may be draft or active.
type CreateListingRequest struct {
	Title       string           `json:"title" binding:"required,notblank,max=200"`
	Description string           `json:"description" binding:"max=5000"`
	Category    string           `json:"category" binding:"required"`
	Type        ListingType      `json:"type" binding:"required,oneof=product service"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Currency    string           `json:"currency" binding:"omitempty,len=3"`
	Images      []string         `json:"images" binding:"max=10,dive,notblank,max=500"`
	Status      ListingStatus    `json:"status" binding:"omitempty,oneof=draft active"`
}

// UpdateListingRequest patches a listing. Nil fields are left unchanged.
type UpdateListingRequest struct {
	Title       *string          `json:"title" binding:"omitempty,notblank,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Category    *string          `json:"category"`
	Type        *ListingType     `json:"type" binding:"omitempty,oneof=product service"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency" binding:"omitempty,len=3"`
	Images      *[]string        `json:"images" binding:"omitempty,max=10,dive,notblank,max=500"`
}

type SetListingStatusRequest struct {
	Status ListingStatus `json:"status" binding:"required"`
}

// CreateTradeRequest starts a trade. SellerID defaults to the listing owner.
type CreateTradeRequest struct {
	ListingID uuid.UUID  `json:"listing_id" binding:"required"`
	SellerID  *uuid.UUID `json:"seller_id"`
	Note      string     `json:"note" binding:"max=2000"`
}

// SubmitReviewRequest rates the other party of a completed trade
type SubmitReviewRequest struct {
	RevieweeID *uuid.UUID `json:"reviewee_id"`
	Rating     int        `json:"rating" binding:"required"`
	Title      string     `json:"title" binding:"max=200"`
	Comment    string     `json:"comment" binding:"max=5000"`
	IsPublic   *bool      `json:"is_public"`
}

type OpenDisputeRequest struct {
	IssueType   string `json:"issue_type" binding:"required"`
	Description string `json:"description" binding:"required,notblank,max=5000"`
}

type ReportListingRequest struct {
	IssueType   string `json:"issue_type" binding:"required"`
	Description string `json:"description" binding:"max=5000"`
}

// StartConversationRequest opens (or reopens) a thread with a listing's owner
type StartConversationRequest struct {
	ListingID uuid.UUID `json:"listing_id" binding:"required"`
	Message   string    `json:"message" binding:"max=5000"`
}

type PostMessageRequest struct {
	Content string `json:"content" binding:"required,notblank,max=5000"`
}

type FavoriteRequest struct {
	ListingID uuid.UUID `json:"listing_id" binding:"required"`
}
