package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/faktur/internal/company"
	companydomain "github.com/smallbiznis/faktur/internal/company/domain"
	"github.com/smallbiznis/faktur/internal/config"
	"github.com/smallbiznis/faktur/internal/customer"
	customerdomain "github.com/smallbiznis/faktur/internal/customer/domain"
	"github.com/smallbiznis/faktur/internal/identity"
	identitydomain "github.com/smallbiznis/faktur/internal/identity/domain"
	"github.com/smallbiznis/faktur/internal/identity/token"
	"github.com/smallbiznis/faktur/internal/invoice"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/faktur/internal/observability/metrics"
	"github.com/smallbiznis/faktur/internal/paymentlink"
	paymentlinkdomain "github.com/smallbiznis/faktur/internal/paymentlink/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	fx.Provide(registerGin),
	identity.Module,
	company.Module,
	customer.Module,
	invoice.Module,
	paymentlink.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	genID          *snowflake.Node
	issuer         *token.Issuer
	identitySvc    identitydomain.Service
	companySvc     companydomain.Service
	customerSvc    customerdomain.Service
	invoiceSvc     invoicedomain.Service
	paymentLinkSvc paymentlinkdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	GenID          *snowflake.Node
	Issuer         *token.Issuer
	IdentitySvc    identitydomain.Service
	CompanySvc     companydomain.Service
	CustomerSvc    customerdomain.Service
	InvoiceSvc     invoicedomain.Service
	PaymentLinkSvc paymentlinkdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		genID:          p.GenID,
		issuer:         p.Issuer,
		identitySvc:    p.IdentitySvc,
		companySvc:     p.CompanySvc,
		customerSvc:    p.CustomerSvc,
		invoiceSvc:     p.InvoiceSvc,
		paymentLinkSvc: p.PaymentLinkSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/token/refresh", s.RefreshToken)
	auth.POST("/logout", s.Logout)
	auth.POST("/password-reset/request", s.RequestPasswordReset)
	auth.POST("/password-reset/confirm", s.ConfirmPasswordReset)

	auth.GET("/profile", s.AuthRequired(), s.GetProfile)
	auth.PATCH("/profile", s.AuthRequired(), s.UpdateProfile)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Companies --------
	api.GET("/companies", s.ListCompanies)
	api.POST("/companies", s.CreateCompany)
	api.GET("/companies/:id", s.GetCompanyByID)
	api.PATCH("/companies/:id", s.UpdateCompany)
	api.DELETE("/companies/:id", s.DeleteCompany)
	api.GET("/companies/:id/stats", s.GetCompanyStats)

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PATCH("/customers/:id", s.UpdateCustomer)
	api.DELETE("/customers/:id", s.DeleteCustomer)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.POST("/invoices/:id/create_payment_link", s.CreateInvoicePaymentLink)

	// -------- Payment Links --------
	api.GET("/payment-links", s.ListPaymentLinks)
	api.POST("/payment-links", s.CreatePaymentLink)
	api.GET("/payment-links/:id", s.GetPaymentLinkByID)
	api.PATCH("/payment-links/:id", s.UpdatePaymentLink)
	api.DELETE("/payment-links/:id", s.DeletePaymentLink)
	api.GET("/payment-links/:id/verify", s.VerifyPaymentLink)
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/payment/:token", s.ResolvePaymentToken)
}
