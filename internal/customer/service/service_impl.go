package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/authctx"
	"github.com/smallbiznis/faktur/internal/customer/domain"
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
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.CustomerView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.CustomerView{}, domain.ErrInvalidUser
	}

	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil || companyID == 0 {
		return domain.CustomerView{}, domain.ErrInvalidCompany
	}
	owned, err := s.repo.CompanyOwnedBy(ctx, companyID, ownerID)
	if err != nil {
		return domain.CustomerView{}, err
	}
	if !owned {
		return domain.CustomerView{}, domain.ErrInvalidCompany
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.CustomerView{}, domain.ErrInvalidFullName
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return domain.CustomerView{}, domain.ErrInvalidPhone
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.CustomerView{}, domain.ErrInvalidEmail
		}
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		FullName:  fullName,
		Phone:     phone,
		Email:     email,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, &customer); err != nil {
		return domain.CustomerView{}, err
	}

	return s.decorate(ctx, &customer)
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ListCustomerResponse{}, domain.ErrInvalidUser
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListCustomerFilter{
		Search: strings.TrimSpace(req.Search),
	}
	if companyID := strings.TrimSpace(req.CompanyID); companyID != "" {
		id, err := snowflake.ParseString(companyID)
		if err != nil {
			return domain.ListCustomerResponse{}, domain.ErrInvalidCompany
		}
		filter.CompanyID = id
	}

	items, err := s.repo.List(ctx, ownerID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID.String(),
			CreatedAt: customer.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	customerIDs := make([]snowflake.ID, 0, len(items))
	companyIDs := make([]snowflake.ID, 0, len(items))
	seen := map[snowflake.ID]struct{}{}
	for _, item := range items {
		customerIDs = append(customerIDs, item.ID)
		if _, ok := seen[item.CompanyID]; !ok {
			seen[item.CompanyID] = struct{}{}
			companyIDs = append(companyIDs, item.CompanyID)
		}
	}
	counts, err := s.repo.InvoiceCounts(ctx, customerIDs)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}
	companies, err := s.repo.CompaniesByID(ctx, companyIDs)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers := make([]domain.CustomerView, 0, len(items))
	for _, item := range items {
		customers = append(customers, domain.CustomerView{
			Customer:      *item,
			CompanyDetail: companies[item.CompanyID],
			InvoiceCount:  counts[item.ID],
		})
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.CustomerView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.CustomerView{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.CustomerView{}, err
	}

	customer, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return domain.CustomerView{}, err
	}

	return s.decorate(ctx, customer)
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.CustomerView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.CustomerView{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.CustomerView{}, err
	}

	fields := map[string]any{}
	if req.FullName != nil {
		fullName := strings.TrimSpace(*req.FullName)
		if fullName == "" {
			return domain.CustomerView{}, domain.ErrInvalidFullName
		}
		fields["full_name"] = fullName
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" {
			return domain.CustomerView{}, domain.ErrInvalidPhone
		}
		fields["phone"] = phone
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				return domain.CustomerView{}, domain.ErrInvalidEmail
			}
		}
		fields["email"] = email
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.repo.Update(ctx, ownerID, id, fields); err != nil {
			return domain.CustomerView{}, err
		}
	}

	return s.GetByID(ctx, domain.GetCustomerRequest{ID: req.ID})
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteCustomerRequest) error {
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

	s.log.Info("customer deleted", zap.String("customer_id", id.String()))
	return nil
}

func (s *Service) decorate(ctx context.Context, customer *domain.Customer) (domain.CustomerView, error) {
	counts, err := s.repo.InvoiceCounts(ctx, []snowflake.ID{customer.ID})
	if err != nil {
		return domain.CustomerView{}, err
	}
	companies, err := s.repo.CompaniesByID(ctx, []snowflake.ID{customer.CompanyID})
	if err != nil {
		return domain.CustomerView{}, err
	}
	return domain.CustomerView{
		Customer:      *customer,
		CompanyDetail: companies[customer.CompanyID],
		InvoiceCount:  counts[customer.ID],
	}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
