package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	billingdomain "github.com/smallbiznis/comanda/internal/billing/domain"
)

func (s *Server) OpenBilling(c *gin.Context) {
	var req billingdomain.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TableID = strings.TrimSpace(c.Param("id"))
	req.Actor = actorFrom(c)

	resp, err := s.billingSvc.OpenBilling(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelBilling(c *gin.Context) {
	if err := s.billingSvc.CancelBilling(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) QuoteBilling(c *gin.Context) {
	var req billingdomain.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TableID = strings.TrimSpace(c.Param("id"))
	req.Actor = actorFrom(c)

	resp, err := s.billingSvc.Quote(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FinalizeBilling(c *gin.Context) {
	var req billingdomain.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TableID = strings.TrimSpace(c.Param("id"))
	req.Actor = actorFrom(c)

	resp, err := s.billingSvc.Finalize(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	methods := make([]string, 0, len(resp.Sale.Payments))
	for _, p := range resp.Sale.Payments {
		methods = append(methods, p.Method)
	}
	s.recordAudit(c, auditdomain.ActionSaleFinalized, "sale", resp.Sale.ID, map[string]any{
		"invoice_number": resp.Sale.InvoiceNumber,
		"table_id":       req.TableID,
		"total_usd":      resp.Sale.TotalUSD.StringFixed(2),
		"methods":        methods,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConvertAmount(c *gin.Context) {
	var req billingdomain.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.AmountUSD = strings.TrimSpace(req.AmountUSD)
	req.AmountVES = strings.TrimSpace(req.AmountVES)

	resp, err := s.billingSvc.Convert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
