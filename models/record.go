package models

import (
	"time"

	"gorm.io/datatypes"
)

// StoredRecord is one path-addressed value of the record store.
type StoredRecord struct {
	Path       string         `gorm:"primaryKey;size:2048" json:"path"`
	Parent     string         `gorm:"size:2048;not null;index:idx_records_parent" json:"parent"`
	Stamp      *int64         `json:"stamp,omitempty"` // last-writer-wins comparison value, null means "always replaceable"
	ModifiedAt int64          `gorm:"not null" json:"modified_at"`
	Value      datatypes.JSON `gorm:"not null" json:"value"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StoredRecord) TableName() string {
	return "records"
}
