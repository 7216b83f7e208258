package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/faktur/internal/authctx"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/internal/paymentlink/domain"
	"github.com/smallbiznis/faktur/pkg/db"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("paymentlink.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
	}
}

func (s *Service) IssueOrRenew(ctx context.Context, req domain.IssuePaymentLinkRequest) (domain.PaymentLinkView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.PaymentLinkView{}, domain.ErrInvalidUser
	}

	invoiceID, err := snowflake.ParseString(strings.TrimSpace(req.InvoiceID))
	if err != nil || invoiceID == 0 {
		return domain.PaymentLinkView{}, domain.ErrInvalidInvoice
	}

	days := domain.DefaultExpiresInDays
	if req.ExpiresInDays != nil {
		days = *req.ExpiresInDays
	}
	if days < 1 || days > domain.MaxExpiresInDays {
		return domain.PaymentLinkView{}, domain.ErrInvalidExpiry
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, ownerID, invoiceID)
	if err != nil {
		if err == invoicedomain.ErrNotFound {
			return domain.PaymentLinkView{}, domain.ErrInvalidInvoice
		}
		return domain.PaymentLinkView{}, err
	}
	if invoice.Status == invoicedomain.StatusPaid {
		return domain.PaymentLinkView{}, domain.ErrInvoicePaid
	}

	now := time.Now().UTC()
	expiresAt := now.AddDate(0, 0, days)

	renewed := false
	link, err := s.repo.FindByInvoice(ctx, invoiceID)
	switch err {
	case nil:
		if err := s.renew(ctx, invoiceID, expiresAt, now); err != nil {
			return domain.PaymentLinkView{}, err
		}
		renewed = true
	case domain.ErrNotFound:
		link = &domain.PaymentLink{
			ID:        s.genID.Generate(),
			InvoiceID: invoiceID,
			Token:     uuid.NewString(),
			ExpiresAt: expiresAt,
			IsUsed:    false,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, link); err != nil {
			// Concurrent issue for the same invoice. The row exists now,
			// so renew it instead.
			if !db.IsDuplicateKeyErr(err) {
				return domain.PaymentLinkView{}, err
			}
			if err := s.renew(ctx, invoiceID, expiresAt, now); err != nil {
				return domain.PaymentLinkView{}, err
			}
			renewed = true
		}
	default:
		return domain.PaymentLinkView{}, err
	}

	// Renew updates the row in place, so only that path needs a re-read to
	// pick up the surviving token and its new expiry.
	if renewed {
		link, err = s.repo.FindByInvoice(ctx, invoiceID)
		if err != nil {
			return domain.PaymentLinkView{}, err
		}
	}

	s.log.Info("payment link issued",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("payment_link_id", link.ID.String()),
	)
	return s.decorate(ctx, link, invoice)
}

// renew refreshes the expiry of the existing link for an invoice and makes
// it usable again. The token is deliberately left untouched.
func (s *Service) renew(ctx context.Context, invoiceID snowflake.ID, expiresAt, now time.Time) error {
	return s.repo.UpdateByInvoice(ctx, invoiceID, map[string]any{
		"expires_at": expiresAt,
		"is_used":    false,
		"updated_at": now,
	})
}

func (s *Service) List(ctx context.Context, req domain.ListPaymentLinkRequest) (domain.ListPaymentLinkResponse, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ListPaymentLinkResponse{}, domain.ErrInvalidUser
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListPaymentLinkFilter{IsUsed: req.IsUsed}
	if invoiceID := strings.TrimSpace(req.InvoiceID); invoiceID != "" {
		id, err := snowflake.ParseString(invoiceID)
		if err != nil {
			return domain.ListPaymentLinkResponse{}, domain.ErrInvalidInvoice
		}
		filter.InvoiceID = id
	}

	items, err := s.repo.List(ctx, ownerID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListPaymentLinkResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(link *domain.PaymentLink) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        link.ID.String(),
			CreatedAt: link.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	links := make([]domain.PaymentLinkView, 0, len(items))
	for _, item := range items {
		view, err := s.decorate(ctx, item, nil)
		if err != nil {
			return domain.ListPaymentLinkResponse{}, err
		}
		links = append(links, view)
	}

	resp := domain.ListPaymentLinkResponse{PaymentLinks: links}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPaymentLinkRequest) (domain.PaymentLinkView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.PaymentLinkView{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.PaymentLinkView{}, err
	}

	link, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return domain.PaymentLinkView{}, err
	}

	return s.decorate(ctx, link, nil)
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePaymentLinkRequest) (domain.PaymentLinkView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.PaymentLinkView{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.PaymentLinkView{}, err
	}

	fields := map[string]any{}
	if req.ExpiresAt != nil {
		fields["expires_at"] = req.ExpiresAt.UTC()
	}
	if req.IsUsed != nil {
		fields["is_used"] = *req.IsUsed
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.repo.Update(ctx, ownerID, id, fields); err != nil {
			return domain.PaymentLinkView{}, err
		}
	}

	return s.GetByID(ctx, domain.GetPaymentLinkRequest{ID: req.ID})
}

func (s *Service) Delete(ctx context.Context, req domain.DeletePaymentLinkRequest) error {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.log.Info("payment link deleted", zap.String("payment_link_id", id.String()))
	return nil
}

// Verify reports link validity without consuming it, so repeated checks
// always return the same answer for an unchanged link.
func (s *Service) Verify(ctx context.Context, req domain.GetPaymentLinkRequest) (domain.VerifyResult, error) {
	view, err := s.GetByID(ctx, req)
	if err != nil {
		return domain.VerifyResult{}, err
	}

	result := domain.VerifyResult{Link: view}
	switch {
	case view.IsUsed:
		result.Reason = "used"
	case view.Expired(time.Now().UTC()):
		result.Reason = "expired"
	default:
		result.Valid = true
		result.Reason = "valid"
	}
	return result, nil
}

func (s *Service) ResolveToken(ctx context.Context, token string) (domain.PublicPaymentView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.PublicPaymentView{}, domain.ErrNotFound
	}

	link, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return domain.PublicPaymentView{}, err
	}

	invoice, err := s.repo.InvoiceByID(ctx, link.InvoiceID)
	if err != nil {
		return domain.PublicPaymentView{}, err
	}

	invoiceView, err := s.invoiceView(ctx, invoice, link)
	if err != nil {
		return domain.PublicPaymentView{}, err
	}

	return domain.PublicPaymentView{
		Token:     link.Token,
		ExpiresAt: link.ExpiresAt,
		IsUsed:    link.IsUsed,
		IsExpired: link.Expired(time.Now().UTC()),
		Invoice:   &invoiceView,
	}, nil
}

// decorate attaches the invoice view. A pre-fetched invoice avoids a second
// read on the issue path; nil falls back to an unscoped lookup since the
// link itself already proved reachability.
func (s *Service) decorate(ctx context.Context, link *domain.PaymentLink, invoice *invoicedomain.Invoice) (domain.PaymentLinkView, error) {
	if invoice == nil {
		found, err := s.repo.InvoiceByID(ctx, link.InvoiceID)
		if err != nil {
			return domain.PaymentLinkView{}, err
		}
		invoice = found
	}

	invoiceView, err := s.invoiceView(ctx, invoice, link)
	if err != nil {
		return domain.PaymentLinkView{}, err
	}

	return domain.PaymentLinkView{
		PaymentLink:   *link,
		InvoiceDetail: &invoiceView,
		URL:           link.URL(),
	}, nil
}

func (s *Service) invoiceView(ctx context.Context, invoice *invoicedomain.Invoice, link *domain.PaymentLink) (invoicedomain.InvoiceView, error) {
	companies, err := s.invoiceRepo.CompaniesByID(ctx, []snowflake.ID{invoice.CompanyID})
	if err != nil {
		return invoicedomain.InvoiceView{}, err
	}
	customers, err := s.invoiceRepo.CustomersByID(ctx, []snowflake.ID{invoice.CustomerID})
	if err != nil {
		return invoicedomain.InvoiceView{}, err
	}

	return invoicedomain.InvoiceView{
		Invoice:        *invoice,
		CompanyDetail:  companies[invoice.CompanyID],
		CustomerDetail: customers[invoice.CustomerID],
		PaymentLink: &invoicedomain.PaymentLinkInfo{
			ID:        link.ID,
			Token:     link.Token,
			ExpiresAt: link.ExpiresAt,
			IsUsed:    link.IsUsed,
			URL:       link.URL(),
		},
	}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
