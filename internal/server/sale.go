package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
	"go.uber.org/zap"
)

func (s *Server) ListSales(c *gin.Context) {
	var req saledomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Sales, "page_info": resp.PageInfo})
}

func (s *Server) SalesSummary(c *gin.Context) {
	var req saledomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.Summary(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CloseDay(c *gin.Context) {
	resp, err := s.saleSvc.CloseDay(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionDayClosed, "sale", "", map[string]any{
		"closed": resp.Closed,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleByID(c *gin.Context) {
	resp, err := s.saleSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SaleReceipt(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	receipt, err := s.saleSvc.Receipt(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="receipt-`+id+`.pdf"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, receipt); err != nil {
		s.log.Warn("failed to write receipt", zap.String("sale_id", id), zap.Error(err))
	}
}

func (s *Server) DeleteSale(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	sale, err := s.saleSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.saleSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionSaleDeleted, "sale", sale.ID, map[string]any{
		"invoice_number": sale.InvoiceNumber,
		"total_usd":      sale.TotalUSD.StringFixed(2),
	})

	c.Status(http.StatusNoContent)
}
