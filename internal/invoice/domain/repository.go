package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	customerdomain "github.com/smallbiznis/faktur/internal/customer/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

type ListInvoiceFilter struct {
	CompanyID  snowflake.ID
	CustomerID snowflake.ID
	Status     Status
	Search     string
	Ordering   string
}

type Repository interface {
	Insert(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, ownerID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, ownerID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	Update(ctx context.Context, ownerID, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, ownerID, id snowflake.ID) error

	CompanyOwnedBy(ctx context.Context, companyID, ownerID snowflake.ID) (bool, error)
	// CustomerCompany returns the company a customer belongs to, scoped to
	// the caller's companies.
	CustomerCompany(ctx context.Context, customerID, ownerID snowflake.ID) (snowflake.ID, error)

	CompaniesByID(ctx context.Context, companyIDs []snowflake.ID) (map[snowflake.ID]*companydomain.Company, error)
	CustomersByID(ctx context.Context, customerIDs []snowflake.ID) (map[snowflake.ID]*customerdomain.Customer, error)
	PaymentLinksByInvoice(ctx context.Context, invoiceIDs []snowflake.ID) (map[snowflake.ID]*PaymentLinkInfo, error)
}
