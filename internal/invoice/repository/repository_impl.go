package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	customerdomain "github.com/smallbiznis/faktur/internal/customer/domain"
	"github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/internal/ownership"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
	"gorm.io/gorm"
)

// orderings maps the accepted ordering keys to ORDER BY clauses. A leading
// "-" on the key flips the direction.
var orderings = map[string]string{
	"created_at":   "invoices.created_at",
	"total_amount": "invoices.total_amount",
	"status":       "invoices.status",
}

// OrderClause translates an ordering key into a SQL ORDER BY expression.
// The empty key falls back to newest first.
func OrderClause(ordering string) (string, bool) {
	key := strings.TrimSpace(ordering)
	if key == "" {
		key = "-created_at"
	}
	desc := strings.HasPrefix(key, "-")
	column, ok := orderings[strings.TrimPrefix(key, "-")]
	if !ok {
		return "", false
	}
	if desc {
		return column + " desc, invoices.id desc", true
	}
	return column + " asc, invoices.id asc", true
}

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, ownerID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).
		Scopes(ownership.Invoices(ownerID)).
		Where("invoices.id = ?", id).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, ownerID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	order, ok := OrderClause(filter.Ordering)
	if !ok {
		return nil, domain.ErrInvalidOrdering
	}

	var invoices []*domain.Invoice
	stmt := r.db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Scopes(ownership.Invoices(ownerID))
	if filter.CompanyID != 0 {
		stmt = stmt.Where("invoices.company_id = ?", filter.CompanyID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("invoices.customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("invoices.status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.
			Joins("JOIN customers ON customers.id = invoices.customer_id").
			Where("customers.full_name LIKE ? OR customers.email LIKE ?", pattern, pattern)
	}
	if cursor, ok := pagination.DecodeKeyset(page.PageToken); ok {
		stmt = stmt.Where(
			"invoices.created_at < ? OR (invoices.created_at = ? AND invoices.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order(order).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Update(ctx context.Context, ownerID, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("invoices.id = ? AND invoices.company_id IN (SELECT id FROM companies WHERE owner_id = ?)", id, ownerID).
		Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, ownerID, id snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice domain.Invoice
		err := tx.
			Scopes(ownership.Invoices(ownerID)).
			Where("invoices.id = ?", id).
			First(&invoice).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Exec(`DELETE FROM payment_links WHERE invoice_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM invoices WHERE id = ?`, id).Error
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

func (r *repo) CustomerCompany(ctx context.Context, customerID, ownerID snowflake.ID) (snowflake.ID, error) {
	var customer customerdomain.Customer
	err := r.db.WithContext(ctx).
		Scopes(ownership.Customers(ownerID)).
		Where("customers.id = ?", customerID).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.ErrInvalidCustomer
	}
	if err != nil {
		return 0, err
	}
	return customer.CompanyID, nil
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

func (r *repo) CustomersByID(ctx context.Context, customerIDs []snowflake.ID) (map[snowflake.ID]*customerdomain.Customer, error) {
	customers := make(map[snowflake.ID]*customerdomain.Customer, len(customerIDs))
	if len(customerIDs) == 0 {
		return customers, nil
	}

	var rows []*customerdomain.Customer
	err := r.db.WithContext(ctx).
		Where("customers.id IN ?", customerIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		customers[row.ID] = row
	}
	return customers, nil
}

func (r *repo) PaymentLinksByInvoice(ctx context.Context, invoiceIDs []snowflake.ID) (map[snowflake.ID]*domain.PaymentLinkInfo, error) {
	links := make(map[snowflake.ID]*domain.PaymentLinkInfo, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return links, nil
	}

	var rows []struct {
		domain.PaymentLinkInfo
		InvoiceID snowflake.ID
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, token, expires_at, is_used FROM payment_links WHERE invoice_id IN ?`,
		invoiceIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		info := rows[i].PaymentLinkInfo
		if !info.IsUsed {
			info.URL = "/payment/" + info.Token
		}
		links[rows[i].InvoiceID] = &info
	}
	return links, nil
}
