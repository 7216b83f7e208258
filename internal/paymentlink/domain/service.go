package domain

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

// DefaultExpiresInDays is applied when an issue request omits the window.
const DefaultExpiresInDays = 30

// MaxExpiresInDays bounds the expiry window of a link.
const MaxExpiresInDays = 365

// PaymentLinkView decorates a link with the invoice it settles and the
// public payment URL while the link is still usable.
type PaymentLinkView struct {
	PaymentLink
	InvoiceDetail *invoicedomain.InvoiceView `json:"invoice_detail,omitempty"`
	URL           string                     `json:"url,omitempty"`
}

// VerifyResult is the outcome of a read-only link check. Reason is one of
// "valid", "used" or "expired".
type VerifyResult struct {
	Valid  bool            `json:"valid"`
	Reason string          `json:"reason"`
	Link   PaymentLinkView `json:"payment_link"`
}

// PublicPaymentView is what the unauthenticated payment page renders.
type PublicPaymentView struct {
	Token     string                     `json:"token"`
	ExpiresAt time.Time                  `json:"expires_at"`
	IsUsed    bool                       `json:"is_used"`
	IsExpired bool                       `json:"is_expired"`
	Invoice   *invoicedomain.InvoiceView `json:"invoice"`
}

// IssuePaymentLinkRequest issues or renews the link for an invoice. A nil
// ExpiresInDays falls back to the default window; an explicit zero is out of
// bounds and rejected.
type IssuePaymentLinkRequest struct {
	InvoiceID     string
	ExpiresInDays *int
}

type ListPaymentLinkRequest struct {
	PageToken string
	PageSize  int
	InvoiceID string
	IsUsed    *bool
}

type ListPaymentLinkResponse struct {
	pagination.PageInfo
	PaymentLinks []PaymentLinkView `json:"payment_links"`
}

type GetPaymentLinkRequest struct {
	ID string
}

type UpdatePaymentLinkRequest struct {
	ID        string
	ExpiresAt *time.Time
	IsUsed    *bool
}

type DeletePaymentLinkRequest struct {
	ID string
}

type Service interface {
	IssueOrRenew(context.Context, IssuePaymentLinkRequest) (PaymentLinkView, error)
	List(context.Context, ListPaymentLinkRequest) (ListPaymentLinkResponse, error)
	GetByID(context.Context, GetPaymentLinkRequest) (PaymentLinkView, error)
	Update(context.Context, UpdatePaymentLinkRequest) (PaymentLinkView, error)
	Delete(context.Context, DeletePaymentLinkRequest) error
	Verify(context.Context, GetPaymentLinkRequest) (VerifyResult, error)

	// ResolveToken backs the public payment page and requires no caller.
	ResolveToken(ctx context.Context, token string) (PublicPaymentView, error)
}

var (
	ErrInvalidUser    = errors.New("invalid_user")
	ErrInvalidInvoice = errors.New("invalid_invoice")
	ErrInvoicePaid    = errors.New("invoice_already_paid")
	ErrInvalidExpiry  = errors.New("invalid_expires_in_days")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)
