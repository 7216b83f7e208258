package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/authctx"
	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	customerdomain "github.com/smallbiznis/faktur/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/faktur/internal/invoice/repository"
	"github.com/smallbiznis/faktur/internal/migration"
	"github.com/smallbiznis/faktur/internal/paymentlink/domain"
	"github.com/smallbiznis/faktur/internal/paymentlink/repository"
	"github.com/smallbiznis/faktur/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc     domain.Service
	conn    *gorm.DB
	node    *snowflake.Node
	ctx     context.Context
	ownerID snowflake.ID
}

func days(n int) *int { return &n }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := migration.AutoMigrate(conn); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	ownerID := node.Generate()
	return &testEnv{
		svc: New(Params{
			Log:         zap.NewNop(),
			GenID:       node,
			Repo:        repository.New(conn),
			InvoiceRepo: invoicerepository.New(conn),
		}),
		conn:    conn,
		node:    node,
		ctx:     authctx.WithUserID(context.Background(), ownerID),
		ownerID: ownerID,
	}
}

func (e *testEnv) seedInvoice(t *testing.T, ownerID snowflake.ID, status invoicedomain.Status) invoicedomain.Invoice {
	t.Helper()

	now := time.Now().UTC()
	company := companydomain.Company{
		ID:        e.node.Generate(),
		Name:      "Acme",
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.conn.Create(&company).Error; err != nil {
		t.Fatalf("failed to seed company: %v", err)
	}

	customer := customerdomain.Customer{
		ID:        e.node.Generate(),
		CompanyID: company.ID,
		FullName:  "Jane Roe",
		Phone:     "+6281200001111",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.conn.Create(&customer).Error; err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}

	invoice := invoicedomain.Invoice{
		ID:          e.node.Generate(),
		CompanyID:   company.ID,
		CustomerID:  customer.ID,
		TotalAmount: 1200,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.conn.Create(&invoice).Error; err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	return invoice
}

func TestIssuePaymentLink(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPending)

	view, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: invoice.ID.String()})
	if err != nil {
		t.Fatalf("failed to issue link: %v", err)
	}
	if view.Token == "" {
		t.Fatal("expected a token")
	}
	if view.IsUsed {
		t.Fatal("expected fresh link to be unused")
	}
	if view.URL != "/payment/"+view.Token {
		t.Fatalf("expected payment URL, got %q", view.URL)
	}
	if view.InvoiceDetail == nil || view.InvoiceDetail.ID != invoice.ID {
		t.Fatal("expected invoice detail on link")
	}

	wantExpiry := time.Now().UTC().AddDate(0, 0, domain.DefaultExpiresInDays)
	if diff := view.ExpiresAt.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected default expiry around %v, got %v", wantExpiry, view.ExpiresAt)
	}
}

func TestReissueKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPending)

	first, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: invoice.ID.String(), ExpiresInDays: days(5)})
	if err != nil {
		t.Fatalf("failed to issue link: %v", err)
	}

	used := true
	if _, err := env.svc.Update(env.ctx, domain.UpdatePaymentLinkRequest{ID: first.ID.String(), IsUsed: &used}); err != nil {
		t.Fatalf("failed to mark link used: %v", err)
	}

	second, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: invoice.ID.String(), ExpiresInDays: days(60)})
	if err != nil {
		t.Fatalf("failed to reissue link: %v", err)
	}
	if second.Token != first.Token {
		t.Fatalf("expected token preserved, got %s then %s", first.Token, second.Token)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same row, got %d then %d", first.ID, second.ID)
	}
	if second.IsUsed {
		t.Fatal("expected reissue to reset is_used")
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Fatalf("expected extended expiry, got %v then %v", first.ExpiresAt, second.ExpiresAt)
	}

	var count int64
	if err := env.conn.Model(&domain.PaymentLink{}).Where("invoice_id = ?", invoice.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count links: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single link per invoice, got %d", count)
	}
}

func TestIssueRejectsPaidInvoice(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPaid)

	_, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: invoice.ID.String()})
	if err != domain.ErrInvoicePaid {
		t.Fatalf("expected ErrInvoicePaid, got %v", err)
	}
}

func TestIssueExpiryBounds(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPending)

	// An explicit zero is out of bounds; only an omitted value may default.
	for _, d := range []int{0, -1, domain.MaxExpiresInDays + 1} {
		if _, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{
			InvoiceID:     invoice.ID.String(),
			ExpiresInDays: days(d),
		}); err != domain.ErrInvalidExpiry {
			t.Fatalf("expected ErrInvalidExpiry for %d days, got %v", d, err)
		}
	}
}

func TestIssueForeignInvoice(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.seedInvoice(t, env.node.Generate(), invoicedomain.StatusPending)

	_, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: invoice.ID.String()})
	if err != domain.ErrInvalidInvoice {
		t.Fatalf("expected ErrInvalidInvoice for foreign invoice, got %v", err)
	}
}

func TestVerifyReasons(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPending)

	issued, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: invoice.ID.String()})
	if err != nil {
		t.Fatalf("failed to issue link: %v", err)
	}

	result, err := env.svc.Verify(env.ctx, domain.GetPaymentLinkRequest{ID: issued.ID.String()})
	if err != nil {
		t.Fatalf("failed to verify link: %v", err)
	}
	if !result.Valid || result.Reason != "valid" {
		t.Fatalf("expected valid link, got %+v", result)
	}

	// Verify is read only, so a second call answers the same.
	again, err := env.svc.Verify(env.ctx, domain.GetPaymentLinkRequest{ID: issued.ID.String()})
	if err != nil {
		t.Fatalf("failed to verify link again: %v", err)
	}
	if !again.Valid {
		t.Fatal("expected verify to leave the link untouched")
	}

	used := true
	if _, err := env.svc.Update(env.ctx, domain.UpdatePaymentLinkRequest{ID: issued.ID.String(), IsUsed: &used}); err != nil {
		t.Fatalf("failed to mark link used: %v", err)
	}
	result, err = env.svc.Verify(env.ctx, domain.GetPaymentLinkRequest{ID: issued.ID.String()})
	if err != nil {
		t.Fatalf("failed to verify used link: %v", err)
	}
	if result.Valid || result.Reason != "used" {
		t.Fatalf("expected used link, got %+v", result)
	}

	unused := false
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := env.svc.Update(env.ctx, domain.UpdatePaymentLinkRequest{
		ID:        issued.ID.String(),
		IsUsed:    &unused,
		ExpiresAt: &past,
	}); err != nil {
		t.Fatalf("failed to expire link: %v", err)
	}
	result, err = env.svc.Verify(env.ctx, domain.GetPaymentLinkRequest{ID: issued.ID.String()})
	if err != nil {
		t.Fatalf("failed to verify expired link: %v", err)
	}
	if result.Valid || result.Reason != "expired" {
		t.Fatalf("expected expired link, got %+v", result)
	}
}

func TestResolveToken(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPending)

	issued, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: invoice.ID.String()})
	if err != nil {
		t.Fatalf("failed to issue link: %v", err)
	}

	// ResolveToken backs the public page and needs no caller in context.
	view, err := env.svc.ResolveToken(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("failed to resolve token: %v", err)
	}
	if view.Token != issued.Token {
		t.Fatalf("expected token %s, got %s", issued.Token, view.Token)
	}
	if view.IsUsed || view.IsExpired {
		t.Fatalf("expected usable link, got %+v", view)
	}
	if view.Invoice == nil || view.Invoice.ID != invoice.ID {
		t.Fatal("expected invoice on public view")
	}
	if view.Invoice.CustomerDetail == nil {
		t.Fatal("expected customer detail on public view")
	}

	if _, err := env.svc.ResolveToken(context.Background(), "no-such-token"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func TestListPaymentLinksFilterByUsed(t *testing.T) {
	env := newTestEnv(t)
	first := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPending)
	second := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPending)

	linkA, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: first.ID.String()})
	if err != nil {
		t.Fatalf("failed to issue link: %v", err)
	}
	if _, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: second.ID.String()}); err != nil {
		t.Fatalf("failed to issue link: %v", err)
	}

	used := true
	if _, err := env.svc.Update(env.ctx, domain.UpdatePaymentLinkRequest{ID: linkA.ID.String(), IsUsed: &used}); err != nil {
		t.Fatalf("failed to mark link used: %v", err)
	}

	resp, err := env.svc.List(env.ctx, domain.ListPaymentLinkRequest{IsUsed: &used})
	if err != nil {
		t.Fatalf("failed to list links: %v", err)
	}
	if len(resp.PaymentLinks) != 1 {
		t.Fatalf("expected 1 used link, got %d", len(resp.PaymentLinks))
	}
	if resp.PaymentLinks[0].ID != linkA.ID {
		t.Fatalf("expected link %d, got %d", linkA.ID, resp.PaymentLinks[0].ID)
	}
	if resp.PaymentLinks[0].URL != "" {
		t.Fatalf("expected no URL for used link, got %q", resp.PaymentLinks[0].URL)
	}
}

func TestDeletePaymentLink(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.seedInvoice(t, env.ownerID, invoicedomain.StatusPending)

	issued, err := env.svc.IssueOrRenew(env.ctx, domain.IssuePaymentLinkRequest{InvoiceID: invoice.ID.String()})
	if err != nil {
		t.Fatalf("failed to issue link: %v", err)
	}

	if err := env.svc.Delete(env.ctx, domain.DeletePaymentLinkRequest{ID: issued.ID.String()}); err != nil {
		t.Fatalf("failed to delete link: %v", err)
	}
	if _, err := env.svc.GetByID(env.ctx, domain.GetPaymentLinkRequest{ID: issued.ID.String()}); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
