package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	"github.com/smallbiznis/faktur/internal/customer/domain"
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

func (r *repo) Insert(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, ownerID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).
		Scopes(ownership.Customers(ownerID)).
		Where("customers.id = ?", id).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, ownerID snowflake.ID, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := r.db.WithContext(ctx).
		Model(&domain.Customer{}).
		Scopes(ownership.Customers(ownerID))
	if filter.CompanyID != 0 {
		stmt = stmt.Where("customers.company_id = ?", filter.CompanyID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where(
			"customers.full_name LIKE ? OR customers.email LIKE ? OR customers.phone LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if cursor, ok := pagination.DecodeKeyset(page.PageToken); ok {
		stmt = stmt.Where(
			"customers.created_at < ? OR (customers.created_at = ? AND customers.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("customers.created_at desc, customers.id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) Update(ctx context.Context, ownerID, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("customers.id = ? AND customers.company_id IN (SELECT id FROM companies WHERE owner_id = ?)", id, ownerID).
		Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the customer and the invoices issued against it, mirroring
// the cascade the schema declares for engines migrated without FK enforcement.
func (r *repo) Delete(ctx context.Context, ownerID, id snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer domain.Customer
		err := tx.
			Scopes(ownership.Customers(ownerID)).
			Where("customers.id = ?", id).
			First(&customer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Exec(
			`DELETE FROM payment_links WHERE invoice_id IN (SELECT id FROM invoices WHERE customer_id = ?)`, id,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM invoices WHERE customer_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM customers WHERE id = ?`, id).Error
	})
}

func (r *repo) CompanyOwnedBy(ctx context.Context, companyID, ownerID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&companydomain.Company{}).
		Where("companies.id = ? AND companies.owner_id = ?", companyID, ownerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) CompaniesByID(ctx context.Context, companyIDs []snowflake.ID) (map[snowflake.ID]*companydomain.Company, error) {
	companies := make(map[snowflake.ID]*companydomain.Company, len(companyIDs))
	if len(companyIDs) == 0 {
		return companies, nil
	}

	var rows []*companydomain.Company
	err := r.db.WithContext(ctx).
		Where("companies.id IN ?", companyIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		companies[row.ID] = row
	}
	return companies, nil
}

func (r *repo) InvoiceCounts(ctx context.Context, customerIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	counts := make(map[snowflake.ID]int64, len(customerIDs))
	if len(customerIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CustomerID snowflake.ID
		Count      int64
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT customer_id, COUNT(*) AS count FROM invoices WHERE customer_id IN ? GROUP BY customer_id`,
		customerIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CustomerID] = row.Count
	}
	return counts, nil
}
