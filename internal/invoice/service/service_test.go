package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/authctx"
	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	customerdomain "github.com/smallbiznis/faktur/internal/customer/domain"
	"github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/internal/invoice/repository"
	"github.com/smallbiznis/faktur/internal/migration"
	paymentlinkdomain "github.com/smallbiznis/faktur/internal/paymentlink/domain"
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
			Log:   zap.NewNop(),
			GenID: node,
			Repo:  repository.New(conn),
		}),
		conn:    conn,
		node:    node,
		ctx:     authctx.WithUserID(context.Background(), ownerID),
		ownerID: ownerID,
	}
}

func (e *testEnv) seedCompany(t *testing.T, ownerID snowflake.ID, name string) companydomain.Company {
	t.Helper()

	now := time.Now().UTC()
	company := companydomain.Company{
		ID:        e.node.Generate(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.conn.Create(&company).Error; err != nil {
		t.Fatalf("failed to seed company: %v", err)
	}
	return company
}

func (e *testEnv) seedCustomer(t *testing.T, companyID snowflake.ID, fullName string) customerdomain.Customer {
	t.Helper()

	now := time.Now().UTC()
	customer := customerdomain.Customer{
		ID:        e.node.Generate(),
		CompanyID: companyID,
		FullName:  fullName,
		Phone:     "+6281200001111",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.conn.Create(&customer).Error; err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}
	return customer
}

func TestCreateInvoiceDefaultsToPending(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	customer := env.seedCustomer(t, company.ID, "Jane Roe")

	created, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
		CompanyID:   company.ID.String(),
		CustomerID:  customer.ID.String(),
		TotalAmount: 2500,
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	if created.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", created.Status)
	}
	if created.CompanyDetail == nil || created.CompanyDetail.ID != company.ID {
		t.Fatal("expected company detail")
	}
	if created.CustomerDetail == nil || created.CustomerDetail.ID != customer.ID {
		t.Fatal("expected customer detail")
	}
	if created.PaymentLink != nil {
		t.Fatal("expected no payment link on fresh invoice")
	}
}

func TestCreateInvoiceCustomerCompanyMismatch(t *testing.T) {
	env := newTestEnv(t)
	companyA := env.seedCompany(t, env.ownerID, "Acme")
	companyB := env.seedCompany(t, env.ownerID, "Globex")
	customer := env.seedCustomer(t, companyA.ID, "Jane Roe")

	_, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
		CompanyID:   companyB.ID.String(),
		CustomerID:  customer.ID.String(),
		TotalAmount: 100,
	})
	if err != domain.ErrCustomerCompany {
		t.Fatalf("expected ErrCustomerCompany, got %v", err)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	customer := env.seedCustomer(t, company.ID, "Jane Roe")
	foreign := env.seedCompany(t, env.node.Generate(), "Not Yours")

	tests := []struct {
		name string
		req  domain.CreateInvoiceRequest
		want error
	}{
		{
			name: "foreign company",
			req:  domain.CreateInvoiceRequest{CompanyID: foreign.ID.String(), CustomerID: customer.ID.String(), TotalAmount: 100},
			want: domain.ErrInvalidCompany,
		},
		{
			name: "unknown customer",
			req:  domain.CreateInvoiceRequest{CompanyID: company.ID.String(), CustomerID: env.node.Generate().String(), TotalAmount: 100},
			want: domain.ErrInvalidCustomer,
		},
		{
			name: "negative amount",
			req:  domain.CreateInvoiceRequest{CompanyID: company.ID.String(), CustomerID: customer.ID.String(), TotalAmount: -1},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "unknown status",
			req:  domain.CreateInvoiceRequest{CompanyID: company.ID.String(), CustomerID: customer.ID.String(), TotalAmount: 100, Status: "draft"},
			want: domain.ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.Create(env.ctx, tt.req); err != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestListInvoicesStatusFilterAndOrdering(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	customer := env.seedCustomer(t, company.ID, "Jane Roe")

	amounts := map[int64]string{500: "paid", 1500: "pending", 900: "pending"}
	for amount, status := range amounts {
		if _, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
			CompanyID:   company.ID.String(),
			CustomerID:  customer.ID.String(),
			TotalAmount: amount,
			Status:      status,
		}); err != nil {
			t.Fatalf("failed to create invoice: %v", err)
		}
	}

	resp, err := env.svc.List(env.ctx, domain.ListInvoiceRequest{Status: "pending", Ordering: "total_amount"})
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(resp.Invoices) != 2 {
		t.Fatalf("expected 2 pending invoices, got %d", len(resp.Invoices))
	}
	if resp.Invoices[0].TotalAmount != 900 || resp.Invoices[1].TotalAmount != 1500 {
		t.Fatalf("expected ascending amounts, got %d then %d", resp.Invoices[0].TotalAmount, resp.Invoices[1].TotalAmount)
	}
}

func TestListInvoicesPaginatesWithCursor(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	customer := env.seedCustomer(t, company.ID, "Jane Roe")

	want := map[snowflake.ID]struct{}{}
	for i := 0; i < 5; i++ {
		created, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
			CompanyID:   company.ID.String(),
			CustomerID:  customer.ID.String(),
			TotalAmount: int64(100 * (i + 1)),
		})
		if err != nil {
			t.Fatalf("failed to create invoice: %v", err)
		}
		want[created.ID] = struct{}{}
	}

	seen := map[snowflake.ID]struct{}{}
	token := ""
	for page := 0; page < 3; page++ {
		resp, err := env.svc.List(env.ctx, domain.ListInvoiceRequest{PageSize: 2, PageToken: token})
		if err != nil {
			t.Fatalf("failed to list page %d: %v", page+1, err)
		}
		for _, view := range resp.Invoices {
			if _, dup := seen[view.ID]; dup {
				t.Fatalf("invoice %d repeated on page %d", view.ID, page+1)
			}
			seen[view.ID] = struct{}{}
		}
		if page < 2 {
			if len(resp.Invoices) != 2 || !resp.HasMore {
				t.Fatalf("expected full page %d with more, got %d rows has_more=%v", page+1, len(resp.Invoices), resp.HasMore)
			}
		} else {
			if len(resp.Invoices) != 1 || resp.HasMore {
				t.Fatalf("expected final page of 1, got %d rows has_more=%v", len(resp.Invoices), resp.HasMore)
			}
		}
		token = resp.NextPageToken
	}

	if len(seen) != len(want) {
		t.Fatalf("expected %d distinct invoices across pages, got %d", len(want), len(seen))
	}
	for id := range want {
		if _, ok := seen[id]; !ok {
			t.Fatalf("invoice %d missing from paged results", id)
		}
	}
}

func TestListInvoicesRejectsPageTokenWithOrdering(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.List(env.ctx, domain.ListInvoiceRequest{
		PageToken: "opaque",
		Ordering:  "total_amount",
	})
	if err != domain.ErrInvalidPageToken {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestListInvoicesRejectsUnknownOrdering(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.List(env.ctx, domain.ListInvoiceRequest{Ordering: "amount"}); err != domain.ErrInvalidOrdering {
		t.Fatalf("expected ErrInvalidOrdering, got %v", err)
	}
}

func TestListInvoicesSearchByCustomer(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	jane := env.seedCustomer(t, company.ID, "Jane Roe")
	john := env.seedCustomer(t, company.ID, "John Doe")

	for _, customerID := range []snowflake.ID{jane.ID, john.ID} {
		if _, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
			CompanyID:   company.ID.String(),
			CustomerID:  customerID.String(),
			TotalAmount: 100,
		}); err != nil {
			t.Fatalf("failed to create invoice: %v", err)
		}
	}

	resp, err := env.svc.List(env.ctx, domain.ListInvoiceRequest{Search: "jane"})
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(resp.Invoices) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(resp.Invoices))
	}
	if resp.Invoices[0].CustomerID != jane.ID {
		t.Fatalf("expected invoice for jane, got customer %d", resp.Invoices[0].CustomerID)
	}
}

func TestGetInvoiceScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	customer := env.seedCustomer(t, company.ID, "Jane Roe")

	created, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
		CompanyID:   company.ID.String(),
		CustomerID:  customer.ID.String(),
		TotalAmount: 100,
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}

	strangerCtx := authctx.WithUserID(context.Background(), env.node.Generate())
	if _, err := env.svc.GetByID(strangerCtx, domain.GetInvoiceRequest{ID: created.ID.String()}); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for stranger, got %v", err)
	}
}

func TestUpdateInvoiceStatus(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	customer := env.seedCustomer(t, company.ID, "Jane Roe")

	created, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
		CompanyID:   company.ID.String(),
		CustomerID:  customer.ID.String(),
		TotalAmount: 100,
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}

	status := "paid"
	updated, err := env.svc.Update(env.ctx, domain.UpdateInvoiceRequest{ID: created.ID.String(), Status: &status})
	if err != nil {
		t.Fatalf("failed to update invoice: %v", err)
	}
	if updated.Status != domain.StatusPaid {
		t.Fatalf("expected paid status, got %s", updated.Status)
	}
}

func TestDeleteInvoiceRemovesPaymentLink(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	customer := env.seedCustomer(t, company.ID, "Jane Roe")

	created, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
		CompanyID:   company.ID.String(),
		CustomerID:  customer.ID.String(),
		TotalAmount: 100,
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}

	now := time.Now().UTC()
	link := paymentlinkdomain.PaymentLink{
		ID:        env.node.Generate(),
		InvoiceID: created.ID,
		Token:     "11111111-2222-3333-4444-555555555555",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := env.conn.Create(&link).Error; err != nil {
		t.Fatalf("failed to seed payment link: %v", err)
	}

	if err := env.svc.Delete(env.ctx, domain.DeleteInvoiceRequest{ID: created.ID.String()}); err != nil {
		t.Fatalf("failed to delete invoice: %v", err)
	}

	var links int64
	if err := env.conn.Model(&paymentlinkdomain.PaymentLink{}).Where("invoice_id = ?", created.ID).Count(&links).Error; err != nil {
		t.Fatalf("failed to count payment links: %v", err)
	}
	if links != 0 {
		t.Fatalf("expected payment link removed with invoice, got %d", links)
	}
}

func TestInvoiceViewCarriesPaymentLink(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, env.ownerID, "Acme")
	customer := env.seedCustomer(t, company.ID, "Jane Roe")

	created, err := env.svc.Create(env.ctx, domain.CreateInvoiceRequest{
		CompanyID:   company.ID.String(),
		CustomerID:  customer.ID.String(),
		TotalAmount: 100,
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}

	now := time.Now().UTC()
	link := paymentlinkdomain.PaymentLink{
		ID:        env.node.Generate(),
		InvoiceID: created.ID,
		Token:     "11111111-2222-3333-4444-555555555555",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := env.conn.Create(&link).Error; err != nil {
		t.Fatalf("failed to seed payment link: %v", err)
	}

	got, err := env.svc.GetByID(env.ctx, domain.GetInvoiceRequest{ID: created.ID.String()})
	if err != nil {
		t.Fatalf("failed to get invoice: %v", err)
	}
	if got.PaymentLink == nil {
		t.Fatal("expected payment link on view")
	}
	if got.PaymentLink.Token != link.Token {
		t.Fatalf("expected token %s, got %s", link.Token, got.PaymentLink.Token)
	}
	if got.PaymentLink.URL != "/payment/"+link.Token {
		t.Fatalf("expected payment URL, got %q", got.PaymentLink.URL)
	}
}
