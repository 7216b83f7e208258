package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ResolvePaymentToken serves the unauthenticated payment page payload. The
// token itself is the only credential; expired or consumed links still
// resolve so the page can explain why payment is no longer possible.
func (s *Server) ResolvePaymentToken(c *gin.Context) {
	resp, err := s.paymentLinkSvc.ResolveToken(c.Request.Context(), strings.TrimSpace(c.Param("token")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
