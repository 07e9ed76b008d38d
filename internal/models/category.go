package models

import "time"

// Category groups listings in the catalog
type Category struct {
	Slug      string    `gorm:"size:64;primaryKey" json:"slug"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Category model
func (Category) TableName() string {
	return "categories"
}
