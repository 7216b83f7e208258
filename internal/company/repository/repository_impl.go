package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/company/domain"
	"github.com/smallbiznis/faktur/internal/ownership"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *repo) FindByID(ctx context.Context, ownerID, id snowflake.ID) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).
		Scopes(ownership.Companies(ownerID)).
		Where("companies.id = ?", id).
		First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repo) List(ctx context.Context, ownerID snowflake.ID, filter domain.ListCompanyFilter, page pagination.Pagination) ([]*domain.Company, error) {
	var companies []*domain.Company
	stmt := r.db.WithContext(ctx).
		Model(&domain.Company{}).
		Scopes(ownership.Companies(ownerID))
	if filter.Name != "" {
		stmt = stmt.Where("companies.name LIKE ?", "%"+filter.Name+"%")
	}
	if cursor, ok := pagination.DecodeKeyset(page.PageToken); ok {
		stmt = stmt.Where(
			"companies.created_at < ? OR (companies.created_at = ? AND companies.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("companies.created_at desc, companies.id desc").
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *repo) Update(ctx context.Context, ownerID, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("companies.owner_id = ? AND companies.id = ?", ownerID, id).
		Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the company and everything beneath it. The explicit
// bottom-up deletes keep cascade semantics identical across engines that
// were migrated without FK enforcement (in-memory sqlite in tests).
func (r *repo) Delete(ctx context.Context, ownerID, id snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company domain.Company
		err := tx.Where("owner_id = ? AND id = ?", ownerID, id).First(&company).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Exec(
			`DELETE FROM payment_links WHERE invoice_id IN (SELECT id FROM invoices WHERE company_id = ?)`, id,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM invoices WHERE company_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM customers WHERE company_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM companies WHERE id = ?`, id).Error
	})
}

func (r *repo) Stats(ctx context.Context, companyID snowflake.ID) (*domain.Stats, error) {
	var stats domain.Stats
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(*) FROM customers WHERE company_id = ?) AS total_customers,
			(SELECT COUNT(*) FROM invoices WHERE company_id = ?) AS total_invoices,
			(SELECT COUNT(*) FROM invoices WHERE company_id = ? AND status = 'pending') AS pending_invoices,
			(SELECT COUNT(*) FROM invoices WHERE company_id = ? AND status = 'paid') AS paid_invoices,
			(SELECT COALESCE(SUM(total_amount), 0) FROM invoices WHERE company_id = ? AND status = 'paid') AS total_revenue`,
		companyID, companyID, companyID, companyID, companyID,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *repo) CustomerCounts(ctx context.Context, companyIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	counts := make(map[snowflake.ID]int64, len(companyIDs))
	if len(companyIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CompanyID snowflake.ID
		Count     int64
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT company_id, COUNT(*) AS count FROM customers WHERE company_id IN ? GROUP BY company_id`,
		companyIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CompanyID] = row.Count
	}
	return counts, nil
}
