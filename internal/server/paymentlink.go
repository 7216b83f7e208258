package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	paymentlinkdomain "github.com/smallbiznis/faktur/internal/paymentlink/domain"
	"github.com/smallbiznis/faktur/pkg/db/pagination"
)

type createPaymentLinkRequest struct {
	InvoiceID     string `json:"invoice_id"`
	ExpiresInDays *int   `json:"expires_in_days"`
}

func (s *Server) CreatePaymentLink(c *gin.Context) {
	var req createPaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentLinkSvc.IssueOrRenew(c.Request.Context(), paymentlinkdomain.IssuePaymentLinkRequest{
		InvoiceID:     strings.TrimSpace(req.InvoiceID),
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPaymentLinks(c *gin.Context) {
	var query struct {
		pagination.Pagination
		InvoiceID string `form:"invoice_id"`
		IsUsed    *bool  `form:"is_used"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentLinkSvc.List(c.Request.Context(), paymentlinkdomain.ListPaymentLinkRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		InvoiceID: strings.TrimSpace(query.InvoiceID),
		IsUsed:    query.IsUsed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaymentLinkByID(c *gin.Context) {
	resp, err := s.paymentLinkSvc.GetByID(c.Request.Context(), paymentlinkdomain.GetPaymentLinkRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePaymentLinkRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
	IsUsed    *bool      `json:"is_used"`
}

func (s *Server) UpdatePaymentLink(c *gin.Context) {
	var req updatePaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentLinkSvc.Update(c.Request.Context(), paymentlinkdomain.UpdatePaymentLinkRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		ExpiresAt: req.ExpiresAt,
		IsUsed:    req.IsUsed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePaymentLink(c *gin.Context) {
	err := s.paymentLinkSvc.Delete(c.Request.Context(), paymentlinkdomain.DeletePaymentLinkRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// VerifyPaymentLink reports validity without consuming the link, so clients
// can poll it safely.
func (s *Server) VerifyPaymentLink(c *gin.Context) {
	resp, err := s.paymentLinkSvc.Verify(c.Request.Context(), paymentlinkdomain.GetPaymentLinkRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPaymentLinkValidationError(err error) bool {
	switch {
	case errors.Is(err, paymentlinkdomain.ErrInvalidInvoice),
		errors.Is(err, paymentlinkdomain.ErrInvoicePaid),
		errors.Is(err, paymentlinkdomain.ErrInvalidExpiry),
		errors.Is(err, paymentlinkdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}
