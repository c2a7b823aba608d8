package models

import "time"

const (
	MovementIn  = "E"
	MovementOut = "S"
)

// Movement is one ledger row from the pharmacy dispensing system. Incoming
// rows carry positive quantities, outgoing rows negative ones.
type Movement struct {
	ID             uint       `gorm:"primary_key" json:"id"`
	Date           time.Time  `gorm:"index;type:date;not null" json:"date"`
	MovementType   string     `gorm:"index;size:1;not null" json:"movement_type"`
	DocumentType   string     `gorm:"size:50" json:"document_type"`
	DocumentNumber string     `gorm:"size:50" json:"document_number"`
	DispatchNumber string     `gorm:"size:50" json:"dispatch_number"`
	Code           string     `gorm:"index;size:50" json:"code"`
	GenericCode    string     `gorm:"size:50" json:"generic_code"`
	Description    string     `gorm:"size:255" json:"description"`
	Quantity       int        `json:"quantity"`
	Batch          string     `gorm:"size:50" json:"batch"`
	ExpiryDate     *time.Time `gorm:"type:date" json:"expiry_date"`
	SupplierRut    string     `gorm:"size:20" json:"supplier_rut"`
	DispatchCode   string     `gorm:"size:20" json:"dispatch_code"`
	Reported       bool       `gorm:"default:false;index" json:"reported"`
	ReportedAt     *time.Time `json:"reported_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
