package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
)

func (s *Server) ListUsers(c *gin.Context) {
	resp, err := s.authsvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateUser(c *gin.Context) {
	var req authdomain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.authsvc.CreateUser(c.Request.Context(), authdomain.CreateUserRequest{
		Username:    strings.TrimSpace(req.Username),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Password:    req.Password,
		Role:        strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionUserCreated, "user", resp.ID, map[string]any{
		"username": resp.Username,
		"role":     string(resp.Role),
	})
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateUser(c *gin.Context) {
	var req authdomain.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.authsvc.UpdateUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	changes := map[string]any{"password_changed": req.Password != nil}
	if req.Role != nil {
		changes["role"] = string(resp.Role)
	}
	if req.Active != nil {
		changes["active"] = resp.Active
	}
	s.recordAudit(c, auditdomain.ActionUserUpdated, "user", resp.ID, changes)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.authsvc.DeleteUser(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionUserDeleted, "user", id, nil)

	c.Status(http.StatusNoContent)
}
