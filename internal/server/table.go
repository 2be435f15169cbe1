package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
)

func (s *Server) ListTables(c *gin.Context) {
	var query struct {
		Status   string `form:"status"`
		Type     string `form:"type"`
		Occupied string `form:"occupied"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	occupied, err := parseOptionalBool(query.Occupied)
	if err != nil {
		AbortWithError(c, newValidationError("occupied", "invalid_occupied", "invalid occupied"))
		return
	}

	resp, err := s.tableSvc.List(c.Request.Context(), tabledomain.ListRequest{
		Status:   strings.TrimSpace(query.Status),
		Type:     strings.TrimSpace(query.Type),
		Occupied: occupied != nil && *occupied,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateTable(c *gin.Context) {
	var req tabledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tableSvc.Create(c.Request.Context(), tabledomain.CreateRequest{
		Number: strings.TrimSpace(req.Number),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) SuggestTableNumber(c *gin.Context) {
	number, err := s.tableSvc.SuggestNumber(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"number": number}})
}

func (s *Server) OpenExternalTab(c *gin.Context) {
	var req tabledomain.OpenExternalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tableSvc.OpenExternal(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetTableByID(c *gin.Context) {
	resp, err := s.tableSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTable(c *gin.Context) {
	if err := s.tableSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListTableOrders(c *gin.Context) {
	resp, err := s.orderSvc.ListByTable(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SubmitOrder(c *gin.Context) {
	var req orderdomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TableID = strings.TrimSpace(c.Param("id"))

	resp, err := s.orderSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PendingDelta(c *gin.Context) {
	var req orderdomain.PendingDeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TableID = strings.TrimSpace(c.Param("id"))

	resp, err := s.orderSvc.PendingDelta(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
