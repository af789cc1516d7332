package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID primary keys
)

// DefaultCurrency is used when a coupon is scanned without one
const DefaultCurrency = "EUR"

// Coupon Model
type Coupon struct {
	ID        uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`                   // Primary key
	Barcode   string     `gorm:"type:varchar(255);not null" json:"barcode"`            // Scanned barcode
	Value     *float64   `gorm:"type:decimal(10,2)" json:"value"`                      // Optional monetary value
	Currency  string     `gorm:"type:varchar(3);not null;default:EUR" json:"currency"` // ISO 4217 code
	UserID    uuid.UUID  `gorm:"type:char(36);not null;index" json:"user_id"`          // Foreign key to User
	IsUsed    bool       `gorm:"not null;default:false;index" json:"is_used"`          // Redeemed flag
	ScannedAt time.Time  `gorm:"not null;index" json:"scanned_at"`                     // Scan timestamp
	UsedAt    *time.Time `json:"used_at"`                                              // Set together with IsUsed
}
