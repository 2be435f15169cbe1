package zone

import (
	"github.com/smallbiznis/comanda/internal/zone/repository"
	"github.com/smallbiznis/comanda/internal/zone/service"
	"go.uber.org/fx"
)

var Module = fx.Module("zone.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
