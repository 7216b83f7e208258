package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

type ListCustomerFilter struct {
	CompanyID snowflake.ID
	Search    string
}

type Repository interface {
	Insert(ctx context.Context, customer *Customer) error
	FindByID(ctx context.Context, ownerID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, ownerID snowflake.ID, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
	Update(ctx context.Context, ownerID, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, ownerID, id snowflake.ID) error

	// CompanyOwnedBy reports whether companyID resolves to a company owned
	// by ownerID. Used to validate the ownership chain before writes.
	CompanyOwnedBy(ctx context.Context, companyID, ownerID snowflake.ID) (bool, error)
	InvoiceCounts(ctx context.Context, customerIDs []snowflake.ID) (map[snowflake.ID]int64, error)
	CompaniesByID(ctx context.Context, companyIDs []snowflake.ID) (map[snowflake.ID]*companydomain.Company, error)
}
