package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a marketplace account
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email,omitempty"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	DisplayName  string    `gorm:"size:100;not null" json:"display_name"`
	Bio          string    `gorm:"type:text" json:"bio,omitempty"`
	Location     string    `gorm:"size:255" json:"location,omitempty"`
	AvatarURL    *string   `gorm:"size:500" json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// PublicUser is the profile shape shown to other users
type PublicUser struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	Location    string    `json:"location,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	MemberSince time.Time `json:"member_since"`
}

// Public strips private fields from the user
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		Location:    u.Location,
		AvatarURL:   u.AvatarURL,
		MemberSince: u.CreatedAt,
	}
}

// ReviewSummary aggregates the public reviews received by a user
type ReviewSummary struct {
	Count         int64   `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

// UserProfile is the public profile response
type UserProfile struct {
	User    PublicUser    `json:"user"`
	Reviews ReviewSummary `json:"reviews"`
}
