// Package model contains the GORM data models for the persistence layer.
package model

import (
	"time"

	"gorm.io/datatypes"
)

// ProductCacheModel represents one cached product lookup, keyed by barcode.
// The product payload is stored as raw JSON so cache rows survive additions
// to the product shape without a migration.
type ProductCacheModel struct {
	Barcode   string         `gorm:"column:barcode;type:varchar(64);primaryKey"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb;not null"`
	WrittenAt time.Time      `gorm:"column:written_at;type:timestamptz;not null;index"`
}

// TableName specifies the table name for GORM.
func (ProductCacheModel) TableName() string {
	return "product_cache_entries"
}
