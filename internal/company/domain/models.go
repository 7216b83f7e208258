// Package domain contains persistence models for the company registry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Company is owned by exactly one user and roots the authorization scope
// for its customers, invoices and payment links.
type Company struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	OwnerID   snowflake.ID `gorm:"column:owner_id;not null;index" json:"owner_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// Stats aggregates the registry counters for a single company.
type Stats struct {
	TotalCustomers  int64 `json:"total_customers"`
	TotalInvoices   int64 `json:"total_invoices"`
	PendingInvoices int64 `json:"pending_invoices"`
	PaidInvoices    int64 `json:"paid_invoices"`
	TotalRevenue    int64 `json:"total_revenue"`
}
