package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

type ListCompanyFilter struct {
	Name string
}

type Repository interface {
	Insert(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, ownerID, id snowflake.ID) (*Company, error)
	List(ctx context.Context, ownerID snowflake.ID, filter ListCompanyFilter, page pagination.Pagination) ([]*Company, error)
	Update(ctx context.Context, ownerID, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, ownerID, id snowflake.ID) error
	Stats(ctx context.Context, companyID snowflake.ID) (*Stats, error)
	CustomerCounts(ctx context.Context, companyIDs []snowflake.ID) (map[snowflake.ID]int64, error)
}
