package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	billingdomain "github.com/smallbiznis/comanda/internal/billing/domain"
	obscontext "github.com/smallbiznis/comanda/internal/observability/context"
)

const contextPrincipalKey = "principal"

func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextPrincipalKey, principal)
		ctx := obscontext.WithActor(c.Request.Context(), string(principal.Role), strconv.FormatInt(principal.UserID, 10))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorize gates a route on the caller's role. It must run after
// AuthRequired.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), string(principal.Role), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (*authdomain.Principal, bool) {
	v, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*authdomain.Principal)
	return principal, ok && principal != nil
}

func actorFrom(c *gin.Context) billingdomain.Actor {
	principal, ok := principalFrom(c)
	if !ok {
		return billingdomain.Actor{}
	}
	return billingdomain.Actor{
		UserID: principal.UserID,
		Role:   string(principal.Role),
	}
}
