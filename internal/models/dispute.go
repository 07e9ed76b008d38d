package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DisputeStatusOpen      = "open"
	DisputeStatusResolved  = "resolved"
	DisputeStatusDismissed = "dismissed"

	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusDismissed = "dismissed"
)

// DisputeIssueTypes lists the accepted dispute issue types
var DisputeIssueTypes = []string{"not_received", "not_as_described", "payment_issue", "no_show", "other"}

// ReportIssueTypes lists the accepted listing report issue types
var ReportIssueTypes = []string{"spam", "prohibited_item", "scam", "offensive", "other"}

// Dispute is raised by one trade party against the other
type Dispute struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TradeID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_disputes_trade_reporter" json:"trade_id"`
	ReporterID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_disputes_trade_reporter;index" json:"reporter_id"`
	ReportedUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"reported_user_id"`
	IssueType      string     `gorm:"size:50;not null" json:"issue_type"`
	Description    string     `gorm:"type:text;not null" json:"description"`
	Status         string     `gorm:"size:20;not null;index" json:"status"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Dispute model
func (Dispute) TableName() string {
	return "disputes"
}

func (d *Dispute) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Report flags a listing for moderation
type Report struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reports_listing_reporter" json:"listing_id"`
	ReporterID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reports_listing_reporter;index" json:"reporter_id"`
	ReportedUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"reported_user_id"`
	IssueType      string    `gorm:"size:50;not null" json:"issue_type"`
	Description    string    `gorm:"type:text" json:"description"`
	Status         string    `gorm:"size:20;not null;index" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for Report model
func (Report) TableName() string {
	return "reports"
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
