package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/authctx"
	"github.com/smallbiznis/faktur/internal/company/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("company.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCompanyRequest) (domain.CompanyView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.CompanyView{}, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CompanyView{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	company := domain.Company{
		ID:        s.genID.Generate(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, &company); err != nil {
		return domain.CompanyView{}, err
	}

	return domain.CompanyView{Company: company}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCompanyRequest) (domain.ListCompanyResponse, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ListCompanyResponse{}, domain.ErrInvalidUser
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, ownerID, domain.ListCompanyFilter{
		Name: strings.TrimSpace(req.Name),
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListCompanyResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(company *domain.Company) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        company.ID.String(),
			CreatedAt: company.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	counts, err := s.repo.CustomerCounts(ctx, ids)
	if err != nil {
		return domain.ListCompanyResponse{}, err
	}

	companies := make([]domain.CompanyView, 0, len(items))
	for _, item := range items {
		companies = append(companies, domain.CompanyView{
			Company:       *item,
			CustomerCount: counts[item.ID],
		})
	}

	resp := domain.ListCompanyResponse{Companies: companies}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCompanyRequest) (domain.CompanyView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.CompanyView{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.CompanyView{}, err
	}

	company, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return domain.CompanyView{}, err
	}

	counts, err := s.repo.CustomerCounts(ctx, []snowflake.ID{company.ID})
	if err != nil {
		return domain.CompanyView{}, err
	}

	return domain.CompanyView{
		Company:       *company,
		CustomerCount: counts[company.ID],
	}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCompanyRequest) (domain.CompanyView, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.CompanyView{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.CompanyView{}, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.CompanyView{}, domain.ErrInvalidName
		}
		fields["name"] = name
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.repo.Update(ctx, ownerID, id, fields); err != nil {
			return domain.CompanyView{}, err
		}
	}

	return s.GetByID(ctx, domain.GetCompanyRequest{ID: req.ID})
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteCompanyRequest) error {
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

	s.log.Info("company deleted", zap.String("company_id", id.String()))
	return nil
}

func (s *Service) Stats(ctx context.Context, req domain.GetCompanyRequest) (domain.Stats, error) {
	ownerID, ok := authctx.UserIDFromContext(ctx)
	if !ok {
		return domain.Stats{}, domain.ErrInvalidUser
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.Stats{}, err
	}

	// Scope check first so an out-of-scope company reads as missing.
	if _, err := s.repo.FindByID(ctx, ownerID, id); err != nil {
		return domain.Stats{}, err
	}

	stats, err := s.repo.Stats(ctx, id)
	if err != nil {
		return domain.Stats{}, err
	}
	return *stats, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
