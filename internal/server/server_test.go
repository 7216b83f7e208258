package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	companyrepository "github.com/smallbiznis/faktur/internal/company/repository"
	companyservice "github.com/smallbiznis/faktur/internal/company/service"
	"github.com/smallbiznis/faktur/internal/config"
	customerrepository "github.com/smallbiznis/faktur/internal/customer/repository"
	customerservice "github.com/smallbiznis/faktur/internal/customer/service"
	identityrepository "github.com/smallbiznis/faktur/internal/identity/repository"
	identityservice "github.com/smallbiznis/faktur/internal/identity/service"
	"github.com/smallbiznis/faktur/internal/identity/token"
	invoicerepository "github.com/smallbiznis/faktur/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/faktur/internal/invoice/service"
	"github.com/smallbiznis/faktur/internal/migration"
	obsmetrics "github.com/smallbiznis/faktur/internal/observability/metrics"
	paymentlinkrepository "github.com/smallbiznis/faktur/internal/paymentlink/repository"
	paymentlinkservice "github.com/smallbiznis/faktur/internal/paymentlink/service"
	"github.com/smallbiznis/faktur/pkg/db"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	log := zap.NewNop()
	cfg := config.Config{AppName: "faktur-test", Environment: "test"}

	issuer, err := token.NewIssuer(token.Config{Secret: "test-secret", Issuer: cfg.AppName})
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}

	identityRepo, resetRepo := identityrepository.New(conn)
	invoiceRepo := invoicerepository.New(conn)

	return NewServer(ServerParams{
		Gin:    NewEngine(log, obsmetrics.New(cfg)),
		Cfg:    cfg,
		GenID:  node,
		Issuer: issuer,
		IdentitySvc: identityservice.New(identityservice.Params{
			Log:       log,
			GenID:     node,
			Repo:      identityRepo,
			ResetRepo: resetRepo,
		}),
		CompanySvc: companyservice.New(companyservice.Params{
			Log:   log,
			GenID: node,
			Repo:  companyrepository.New(conn),
		}),
		CustomerSvc: customerservice.New(customerservice.Params{
			Log:   log,
			GenID: node,
			Repo:  customerrepository.New(conn),
		}),
		InvoiceSvc: invoiceservice.New(invoiceservice.Params{
			Log:   log,
			GenID: node,
			Repo:  invoiceRepo,
		}),
		PaymentLinkSvc: paymentlinkservice.New(paymentlinkservice.Params{
			Log:         log,
			GenID:       node,
			Repo:        paymentlinkrepository.New(conn),
			InvoiceRepo: invoiceRepo,
		}),
	})
}

func doJSON(t *testing.T, srv *Server, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func registerAndLogin(t *testing.T, srv *Server, email string) string {
	t.Helper()

	w := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":     email,
		"password":  "sturdy-password-1",
		"password2": "sturdy-password-1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from register, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	tokens, ok := body["tokens"].(map[string]any)
	if !ok {
		t.Fatalf("expected tokens in register response, got %v", body)
	}
	access, _ := tokens["access"].(string)
	if access == "" {
		t.Fatal("expected access token")
	}
	return access
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv, "alice@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "sturdy-password-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", w.Code)
	}
}

func TestRegisterValidationPayload(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":     "bob@example.com",
		"password":  "sturdy-password-1",
		"password2": "something-else",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched passwords, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if _, ok := body["error"]; !ok {
		t.Fatalf("expected error payload, got %v", body)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/companies", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/companies", "not-a-jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":     "carol@example.com",
		"password":  "sturdy-password-1",
		"password2": "sturdy-password-1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from register, got %d", w.Code)
	}
	tokens := decodeBody(t, w)["tokens"].(map[string]any)
	refresh, _ := tokens["refresh"].(string)
	access, _ := tokens["access"].(string)

	w = doJSON(t, srv, http.MethodPost, "/api/auth/token/refresh", "", gin.H{"refresh": refresh})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from refresh, got %d: %s", w.Code, w.Body.String())
	}

	// Access tokens must not rotate.
	w = doJSON(t, srv, http.MethodPost, "/api/auth/token/refresh", "", gin.H{"refresh": access})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access-as-refresh, got %d", w.Code)
	}
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	access := registerAndLogin(t, srv, "dave@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/companies", access, gin.H{"name": "Acme"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create company, got %d: %s", w.Code, w.Body.String())
	}
	companyID := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

	w = doJSON(t, srv, http.MethodPost, "/api/customers", access, gin.H{
		"company_id": companyID,
		"full_name":  "Jane Roe",
		"phone":      "+6281200001111",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create customer, got %d: %s", w.Code, w.Body.String())
	}
	customerID := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

	w = doJSON(t, srv, http.MethodPost, "/api/invoices", access, gin.H{
		"company_id":   companyID,
		"customer_id":  customerID,
		"total_amount": 2500,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create invoice, got %d: %s", w.Code, w.Body.String())
	}
	invoice := decodeBody(t, w)["data"].(map[string]any)
	invoiceID := invoice["id"].(string)
	if invoice["status"] != "pending" {
		t.Fatalf("expected pending invoice, got %v", invoice["status"])
	}

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/invoices/%s/create_payment_link", invoiceID), access, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create payment link, got %d: %s", w.Code, w.Body.String())
	}
	link := decodeBody(t, w)["data"].(map[string]any)
	tokenValue, _ := link["token"].(string)
	if tokenValue == "" {
		t.Fatal("expected payment link token")
	}

	// Omitting expires_in_days defaults; sending an explicit zero does not.
	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/invoices/%s/create_payment_link", invoiceID), access, gin.H{"expires_in_days": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero expiry, got %d: %s", w.Code, w.Body.String())
	}

	// The payment page is public.
	w = doJSON(t, srv, http.MethodGet, "/payment/"+tokenValue, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from public payment page, got %d: %s", w.Code, w.Body.String())
	}
	page := decodeBody(t, w)["data"].(map[string]any)
	if page["token"] != tokenValue {
		t.Fatalf("expected token %s on page, got %v", tokenValue, page["token"])
	}
	if page["is_expired"] != false {
		t.Fatalf("expected usable link, got %v", page)
	}
}

func TestCrossTenantReadsAreNotFound(t *testing.T) {
	srv := newTestServer(t)
	owner := registerAndLogin(t, srv, "erin@example.com")
	stranger := registerAndLogin(t, srv, "frank@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/companies", owner, gin.H{"name": "Acme"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create company, got %d", w.Code)
	}
	companyID := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

	w = doJSON(t, srv, http.MethodGet, "/api/companies/"+companyID, stranger, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign company, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPaidInvoiceRejectsPaymentLink(t *testing.T) {
	srv := newTestServer(t)
	access := registerAndLogin(t, srv, "grace@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/companies", access, gin.H{"name": "Acme"})
	companyID := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

	w = doJSON(t, srv, http.MethodPost, "/api/customers", access, gin.H{
		"company_id": companyID,
		"full_name":  "Jane Roe",
		"phone":      "+6281200001111",
	})
	customerID := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

	w = doJSON(t, srv, http.MethodPost, "/api/invoices", access, gin.H{
		"company_id":   companyID,
		"customer_id":  customerID,
		"total_amount": 100,
		"status":       "paid",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create invoice, got %d: %s", w.Code, w.Body.String())
	}
	invoiceID := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

	w = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/invoices/%s/create_payment_link", invoiceID), access, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for paid invoice, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to re-encode body: %v", err)
	}
	if !bytes.Contains(raw, []byte("already paid")) {
		t.Fatalf("expected paid invoice message, got %s", raw)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", w.Code)
	}
}
