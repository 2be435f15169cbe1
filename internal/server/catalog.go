package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
)

func (s *Server) GetSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req settingsdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionSettingsUpdated, "settings", "", map[string]any{
		"exchange_rate": resp.ExchangeRate.String(),
		"iva":           resp.IVA.String(),
		"igtf":          resp.IGTF.String(),
		"iva_enabled":   resp.IVAEnabled,
		"igtf_enabled":  resp.IGTFEnabled,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListZones(c *gin.Context) {
	resp, err := s.zoneSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateZone(c *gin.Context) {
	var req zonedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.zoneSvc.Create(c.Request.Context(), zonedomain.CreateRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) DeleteZone(c *gin.Context) {
	if err := s.zoneSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Price = strings.TrimSpace(req.Price)

	resp, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		Category  string `form:"category"`
		Zone      string `form:"zone"`
		Available string `form:"available"`
		LowStock  string `form:"low_stock"`
		SortBy    string `form:"sort_by"`
		OrderBy   string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	available, err := parseOptionalBool(query.Available)
	if err != nil {
		AbortWithError(c, newValidationError("available", "invalid_available", "invalid available"))
		return
	}
	lowStock, err := parseOptionalBool(query.LowStock)
	if err != nil {
		AbortWithError(c, newValidationError("low_stock", "invalid_low_stock", "invalid low_stock"))
		return
	}

	var zoneID *int64
	if zone := strings.TrimSpace(query.Zone); zone != "" {
		zoneID, err = s.zoneSvc.Resolve(c.Request.Context(), zone)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.productSvc.List(c.Request.Context(), productdomain.ListRequest{
		Category:  strings.TrimSpace(query.Category),
		ZoneID:    zoneID,
		Available: available,
		LowStock:  lowStock != nil && *lowStock,
		SortBy:    strings.TrimSpace(query.SortBy),
		OrderBy:   strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req productdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.productSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProduct(c *gin.Context) {
	if err := s.productSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SetProductStock(c *gin.Context) {
	var req productdomain.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if (req.Stock == nil) == (req.Delta == nil) {
		AbortWithError(c, newValidationError("stock", "invalid_stock", "set exactly one of stock and delta"))
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.productSvc.SetStock(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	change := map[string]any{"stock": resp.Stock}
	if req.Delta != nil {
		change["delta"] = *req.Delta
	}
	s.recordAudit(c, auditdomain.ActionStockAdjusted, "product", resp.ID, change)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
