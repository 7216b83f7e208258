package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentLink is a shareable token for settling a single invoice. Each
// invoice carries at most one link; reissuing renews the expiry in place and
// keeps the token stable.
type PaymentLink struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"column:invoice_id;not null;uniqueIndex" json:"invoice_id"`
	Token     string       `gorm:"type:text;not null;uniqueIndex" json:"token"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	IsUsed    bool         `gorm:"not null;default:false" json:"is_used"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PaymentLink) TableName() string { return "payment_links" }

// Expired reports whether the link has passed its expiry at the given time.
func (l PaymentLink) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// URL returns the public payment path for the link, empty once consumed.
func (l PaymentLink) URL() string {
	if l.IsUsed {
		return ""
	}
	return "/payment/" + l.Token
}
