package models

import "time"

// CatalogProduct is the local mirror of the CENABAST product catalog, synced
// page by page from the broker so the dashboard can search without network
// round-trips.
type CatalogProduct struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	Code        string    `gorm:"uniqueIndex;size:50;not null" json:"code"`
	GenericCode int       `gorm:"index" json:"generic_code"`
	Name        string    `gorm:"size:255" json:"name"`
	Active      bool      `gorm:"default:true" json:"active"`
	SyncedAt    time.Time `json:"synced_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
