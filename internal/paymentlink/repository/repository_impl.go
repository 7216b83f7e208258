package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/internal/ownership"
	"github.com/smallbiznis/faktur/internal/paymentlink/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, link *domain.PaymentLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repo) FindByID(ctx context.Context, ownerID, id snowflake.ID) (*domain.PaymentLink, error) {
	var link domain.PaymentLink
	err := r.db.WithContext(ctx).
		Scopes(ownership.PaymentLinks(ownerID)).
		Where("payment_links.id = ?", id).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repo) FindByInvoice(ctx context.Context, invoiceID snowflake.ID) (*domain.PaymentLink, error) {
	var link domain.PaymentLink
	err := r.db.WithContext(ctx).
		Where("payment_links.invoice_id = ?", invoiceID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repo) FindByToken(ctx context.Context, token string) (*domain.PaymentLink, error) {
	var link domain.PaymentLink
	err := r.db.WithContext(ctx).
		Where("payment_links.token = ?", token).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repo) List(ctx context.Context, ownerID snowflake.ID, filter domain.ListPaymentLinkFilter, page pagination.Pagination) ([]*domain.PaymentLink, error) {
	var links []*domain.PaymentLink
	stmt := r.db.WithContext(ctx).
		Model(&domain.PaymentLink{}).
		Scopes(ownership.PaymentLinks(ownerID))
	if filter.InvoiceID != 0 {
		stmt = stmt.Where("payment_links.invoice_id = ?", filter.InvoiceID)
	}
	if filter.IsUsed != nil {
		stmt = stmt.Where("payment_links.is_used = ?", *filter.IsUsed)
	}
	if cursor, ok := pagination.DecodeKeyset(page.PageToken); ok {
		stmt = stmt.Where(
			"payment_links.created_at < ? OR (payment_links.created_at = ? AND payment_links.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("payment_links.created_at desc, payment_links.id desc").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repo) Update(ctx context.Context, ownerID, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.PaymentLink{}).
		Where(
			`payment_links.id = ? AND payment_links.invoice_id IN (
				SELECT invoices.id FROM invoices
				JOIN companies ON companies.id = invoices.company_id
				WHERE companies.owner_id = ?)`,
			id, ownerID,
		).
		Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) UpdateByInvoice(ctx context.Context, invoiceID snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.PaymentLink{}).
		Where("payment_links.invoice_id = ?", invoiceID).
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
	link, err := r.FindByID(ctx, ownerID, id)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("payment_links.id = ?", link.ID).
		Delete(&domain.PaymentLink{}).Error
}

func (r *repo) InvoiceByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := r.db.WithContext(ctx).
		Where("invoices.id = ?", id).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidInvoice
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
