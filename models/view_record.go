package models

import (
	"time"

	"gorm.io/gorm"
)

// ViewRecord is one attendance entry: who watched the training video and when.
// Rows are append-only.
type ViewRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Timestamp   time.Time `gorm:"column:ts;index;not null" json:"ts"`
	Affiliation string    `gorm:"size:128;not null" json:"affiliation"`
	Name        string    `gorm:"size:128;not null" json:"name"`
}

// TableName keeps the table name stable across drivers.
func (ViewRecord) TableName() string {
	return "views"
}

// BeforeSave stores the timestamp as UTC. SQLite compares ts as text, so every
// row must carry the same offset for range filters to hold.
func (v *ViewRecord) BeforeSave(tx *gorm.DB) error {
	v.Timestamp = v.Timestamp.UTC()
	return nil
}
