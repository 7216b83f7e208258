package domain

import (
	"context"
	"errors"

	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	customerdomain "github.com/smallbiznis/faktur/internal/customer/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

// InvoiceView decorates an invoice with its company and customer snapshots
// and the payment link issued against it, if any.
type InvoiceView struct {
	Invoice
	CompanyDetail  *companydomain.Company   `json:"company_detail,omitempty"`
	CustomerDetail *customerdomain.Customer `json:"customer_detail,omitempty"`
	PaymentLink    *PaymentLinkInfo         `json:"payment_link,omitempty"`
}

type CreateInvoiceRequest struct {
	CompanyID   string
	CustomerID  string
	TotalAmount int64
	Status      string
}

type ListInvoiceRequest struct {
	PageToken  string
	PageSize   int
	CompanyID  string
	CustomerID string
	Status     string
	Search     string
	Ordering   string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []InvoiceView `json:"invoices"`
}

type GetInvoiceRequest struct {
	ID string
}

type UpdateInvoiceRequest struct {
	ID          string
	Status      *string
	TotalAmount *int64
}

type DeleteInvoiceRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (InvoiceView, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(context.Context, GetInvoiceRequest) (InvoiceView, error)
	Update(context.Context, UpdateInvoiceRequest) (InvoiceView, error)
	Delete(context.Context, DeleteInvoiceRequest) error
}

var (
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrCustomerCompany = errors.New("customer_company_mismatch")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidOrdering = errors.New("invalid_ordering")
	// ErrInvalidPageToken rejects a page token combined with a custom
	// ordering. Cursors are keyed on (created_at, id) descending, so a token
	// minted under any other sort would skip or repeat rows.
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
