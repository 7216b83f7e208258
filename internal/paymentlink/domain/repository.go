package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

type ListPaymentLinkFilter struct {
	InvoiceID snowflake.ID
	IsUsed    *bool
}

type Repository interface {
	Insert(ctx context.Context, link *PaymentLink) error
	FindByID(ctx context.Context, ownerID, id snowflake.ID) (*PaymentLink, error)
	FindByInvoice(ctx context.Context, invoiceID snowflake.ID) (*PaymentLink, error)
	FindByToken(ctx context.Context, token string) (*PaymentLink, error)
	List(ctx context.Context, ownerID snowflake.ID, filter ListPaymentLinkFilter, page pagination.Pagination) ([]*PaymentLink, error)
	Update(ctx context.Context, ownerID, id snowflake.ID, fields map[string]any) error
	UpdateByInvoice(ctx context.Context, invoiceID snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, ownerID, id snowflake.ID) error

	// InvoiceByID reads an invoice without ownership scoping. Used by the
	// public payment page after a token already proved reachability.
	InvoiceByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error)
}
