package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
)

func (s *Server) GetLicense(c *gin.Context) {
	resp, err := s.licenseSvc.Status(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateLicense(c *gin.Context) {
	var req licensedomain.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	key := strings.TrimSpace(req.Key)
	resp, err := s.licenseSvc.Activate(c.Request.Context(), licensedomain.ActivateRequest{Key: key})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionLicenseActivated, "license", "", map[string]any{
		"key":  auditdomain.MaskSecret(key),
		"plan": resp.Plan,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
