package models

import "time"

// StockBalance is one per-batch balance row from the hospital inventory feed.
// The same (code, generic code) pair appears once per batch and location, so
// submissions aggregate over it.
type StockBalance struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	Date        time.Time `gorm:"index;type:date;not null" json:"date"`
	Code        string    `gorm:"index;size:50" json:"code"`
	GenericCode string    `gorm:"size:50" json:"generic_code"`
	Description string    `gorm:"size:255" json:"description"`
	Batch       string    `gorm:"size:50" json:"batch"`
	Quantity    int       `json:"quantity"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MinMaxRule mirrors the stock rules last accepted by CENABAST for a product.
type MinMaxRule struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	Code        string    `gorm:"uniqueIndex;size:50;not null" json:"code"`
	GenericCode string    `gorm:"size:50" json:"generic_code"`
	MinStock    int       `json:"min_stock"`
	MaxStock    int       `json:"max_stock"`
	RelationId  int       `json:"relation_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
