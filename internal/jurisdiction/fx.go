package jurisdiction

import (
	"github.com/smallbiznis/taxrail/internal/jurisdiction/repository"
	"github.com/smallbiznis/taxrail/internal/jurisdiction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("jurisdiction.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewNoopGeoLookup),
	fx.Provide(service.NewRegistry),
)
