package models

import "time"

// CenabastToken is the single shared broker token. The table holds exactly one
// row (id = 1); every successful acquisition overwrites it.
type CenabastToken struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Token     string    `gorm:"type:text" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
