package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

// CompanyView decorates a company with derived counters for responses.
type CompanyView struct {
	Company
	CustomerCount int64 `json:"customer_count"`
}

type CreateCompanyRequest struct {
	Name string
}

type ListCompanyRequest struct {
	PageToken string
	PageSize  int
	Name      string
}

type ListCompanyResponse struct {
	pagination.PageInfo
	Companies []CompanyView `json:"companies"`
}

type GetCompanyRequest struct {
	ID string
}

type UpdateCompanyRequest struct {
	ID   string
	Name *string
}

type DeleteCompanyRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCompanyRequest) (CompanyView, error)
	List(context.Context, ListCompanyRequest) (ListCompanyResponse, error)
	GetByID(context.Context, GetCompanyRequest) (CompanyView, error)
	Update(context.Context, UpdateCompanyRequest) (CompanyView, error)
	Delete(context.Context, DeleteCompanyRequest) error
	Stats(context.Context, GetCompanyRequest) (Stats, error)
}

var (
	ErrInvalidUser = errors.New("invalid_user")
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
)
