package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/authctx"
	"github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.InvoiceView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.InvoiceView{}, domain.ErrInvalidUser
	}

	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil || companyID == 0 {
		return domain.InvoiceView{}, domain.ErrInvalidCompany
	}
	owned, err := s.repo.CompanyOwnedBy(ctx, companyID, ownerID)
	if err != nil {
		return domain.InvoiceView{}, err
	}
	if !owned {
		return domain.InvoiceView{}, domain.ErrInvalidCompany
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.InvoiceView{}, domain.ErrInvalidCustomer
	}
	customerCompanyID, err := s.repo.CustomerCompany(ctx, customerID, ownerID)
	if err != nil {
		return domain.InvoiceView{}, err
	}
	if customerCompanyID != companyID {
		return domain.InvoiceView{}, domain.ErrCustomerCompany
	}

	if req.TotalAmount < 0 {
		return domain.InvoiceView{}, domain.ErrInvalidAmount
	}

	status := domain.StatusPending
	if req.Status != "" {
		status = domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
		if !status.Valid() {
			return domain.InvoiceView{}, domain.ErrInvalidStatus
		}
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		CustomerID:  customerID,
		TotalAmount: req.TotalAmount,
		Status:      status,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, &invoice); err != nil {
		return domain.InvoiceView{}, err
	}

	return s.decorate(ctx, &invoice)
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidUser
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	ordering := strings.TrimSpace(req.Ordering)
	if req.PageToken != "" && ordering != "" && ordering != "-created_at" {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidPageToken
	}

	filter := domain.ListInvoiceFilter{
		Search:   strings.TrimSpace(req.Search),
		Ordering: ordering,
	}
	if companyID := strings.TrimSpace(req.CompanyID); companyID != "" {
		id, err := snowflake.ParseString(companyID)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidCompany
		}
		filter.CompanyID = id
	}
	if customerID := strings.TrimSpace(req.CustomerID); customerID != "" {
		id, err := snowflake.ParseString(customerID)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = id
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = domain.Status(strings.ToLower(status))
		if !filter.Status.Valid() {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
		}
	}

	items, err := s.repo.List(ctx, ownerID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	views, err := s.decorateAll(ctx, items)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	resp := domain.ListInvoiceResponse{Invoices: views}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetInvoiceRequest) (domain.InvoiceView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.InvoiceView{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.InvoiceView{}, err
	}

	invoice, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return domain.InvoiceView{}, err
	}

	return s.decorate(ctx, invoice)
}

func (s *Service) Update(ctx context.Context, req domain.UpdateInvoiceRequest) (domain.InvoiceView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.InvoiceView{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.InvoiceView{}, err
	}

	fields := map[string]any{}
	if req.Status != nil {
		status := domain.Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !status.Valid() {
			return domain.InvoiceView{}, domain.ErrInvalidStatus
		}
		fields["status"] = status
	}
	if req.TotalAmount != nil {
		if *req.TotalAmount < 0 {
			return domain.InvoiceView{}, domain.ErrInvalidAmount
		}
		fields["total_amount"] = *req.TotalAmount
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.repo.Update(ctx, ownerID, id, fields); err != nil {
			return domain.InvoiceView{}, err
		}
	}

	return s.GetByID(ctx, domain.GetInvoiceRequest{ID: req.ID})
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteInvoiceRequest) error {
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

	s.log.Info("invoice deleted", zap.String("invoice_id", id.String()))
	return nil
}

func (s *Service) decorate(ctx context.Context, invoice *domain.Invoice) (domain.InvoiceView, error) {
	views, err := s.decorateAll(ctx, []*domain.Invoice{invoice})
	if err != nil {
		return domain.InvoiceView{}, err
	}
	return views[0], nil
}

func (s *Service) decorateAll(ctx context.Context, items []*domain.Invoice) ([]domain.InvoiceView, error) {
	invoiceIDs := make([]snowflake.ID, 0, len(items))
	companyIDs := make([]snowflake.ID, 0, len(items))
	customerIDs := make([]snowflake.ID, 0, len(items))
	seenCompany := map[snowflake.ID]struct{}{}
	seenCustomer := map[snowflake.ID]struct{}{}
	for _, item := range items {
		invoiceIDs = append(invoiceIDs, item.ID)
		if _, ok := seenCompany[item.CompanyID]; !ok {
			seenCompany[item.CompanyID] = struct{}{}
			companyIDs = append(companyIDs, item.CompanyID)
		}
		if _, ok := seenCustomer[item.CustomerID]; !ok {
			seenCustomer[item.CustomerID] = struct{}{}
			customerIDs = append(customerIDs, item.CustomerID)
		}
	}

	companies, err := s.repo.CompaniesByID(ctx, companyIDs)
	if err != nil {
		return nil, err
	}
	customers, err := s.repo.CustomersByID(ctx, customerIDs)
	if err != nil {
		return nil, err
	}
	links, err := s.repo.PaymentLinksByInvoice(ctx, invoiceIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.InvoiceView, 0, len(items))
	for _, item := range items {
		views = append(views, domain.InvoiceView{
			Invoice:        *item,
			CompanyDetail:  companies[item.CompanyID],
			CustomerDetail: customers[item.CustomerID],
			PaymentLink:    links[item.ID],
		})
	}
	return views, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
