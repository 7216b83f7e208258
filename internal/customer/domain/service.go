package domain

import (
	"context"
	"errors"

	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

// CustomerView decorates a customer with its company snapshot and invoice
// count for responses.
type CustomerView struct {
	Customer
	CompanyDetail *companydomain.Company `json:"company_detail,omitempty"`
	InvoiceCount  int64                  `json:"invoice_count"`
}

type CreateCustomerRequest struct {
	CompanyID string
	FullName  string
	Phone     string
	Email     string
}

type ListCustomerRequest struct {
	PageToken string
	PageSize  int
	CompanyID string
	Search    string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []CustomerView `json:"customers"`
}

type GetCustomerRequest struct {
	ID string
}

type UpdateCustomerRequest struct {
	ID       string
	FullName *string
	Phone    *string
	Email    *string
}

type DeleteCustomerRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (CustomerView, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (CustomerView, error)
	Update(context.Context, UpdateCustomerRequest) (CustomerView, error)
	Delete(context.Context, DeleteCustomerRequest) error
}

var (
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidFullName = errors.New("invalid_full_name")
	ErrInvalidPhone    = errors.New("invalid_phone")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
