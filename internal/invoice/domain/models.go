package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status of an invoice. Stored lowercase.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
)

// Valid reports whether s is one of the known invoice statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusExpired:
		return true
	}
	return false
}

// Invoice is a billing document issued by a company to one of its customers.
// TotalAmount is kept in minor units.
type Invoice struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID      `gorm:"column:company_id;not null;index" json:"company_id"`
	CustomerID  snowflake.ID      `gorm:"column:customer_id;not null;index" json:"customer_id"`
	TotalAmount int64             `gorm:"column:total_amount;not null;default:0" json:"total_amount"`
	Status      Status            `gorm:"type:text;not null;default:'pending'" json:"status"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"-"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// PaymentLinkInfo is the slice of a payment link an invoice response carries.
// URL is only populated while the link is still usable.
type PaymentLinkInfo struct {
	ID        snowflake.ID `json:"id"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	IsUsed    bool         `json:"is_used"`
	URL       string       `json:"url,omitempty"`
}
