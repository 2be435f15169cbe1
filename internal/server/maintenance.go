package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	maintenancedomain "github.com/smallbiznis/comanda/internal/maintenance/domain"
	"go.uber.org/zap"
)

func (s *Server) Reset(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req maintenancedomain.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.maintenanceSvc.Reset(c.Request.Context(), maintenancedomain.ResetRequest{
		Mode:    strings.TrimSpace(req.Mode),
		ActorID: principal.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionStoreReset, "store", "", map[string]any{
		"mode": string(resp.Mode),
	})
	s.log.Warn("store reset",
		zap.String("mode", string(resp.Mode)),
		zap.String("username", principal.Username),
	)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
