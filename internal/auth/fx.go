package auth

import (
	"github.com/smallbiznis/comanda/internal/auth/repository"
	"github.com/smallbiznis/comanda/internal/auth/service"
	"github.com/smallbiznis/comanda/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	session.Module,
)
