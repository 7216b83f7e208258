// Package ownership defines the single visibility predicate for the
// ownership chain user -> company -> {customer, invoice} -> payment link.
// Every repository applies one of these scopes; a record outside the
// caller's chain behaves exactly like a missing record.
package ownership

import (
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Companies restricts a companies query to those owned by userID.
func Companies(userID snowflake.ID) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("companies.owner_id = ?", userID)
	}
}

// Customers restricts a customers query to companies owned by userID.
func Customers(userID snowflake.ID) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.
			Joins("JOIN companies ON companies.id = customers.company_id").
			Where("companies.owner_id = ?", userID)
	}
}

// Invoices restricts an invoices query to companies owned by userID.
func Invoices(userID snowflake.ID) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.
			Joins("JOIN companies ON companies.id = invoices.company_id").
			Where("companies.owner_id = ?", userID)
	}
}

// PaymentLinks restricts a payment_links query to invoices whose company is
// owned by userID.
func PaymentLinks(userID snowflake.ID) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.
			Joins("JOIN invoices ON invoices.id = payment_links.invoice_id").
			Joins("JOIN companies ON companies.id = invoices.company_id").
			Where("companies.owner_id = ?", userID)
	}
}
