package exemption

import (
	"github.com/smallbiznis/taxrail/internal/exemption/repository"
	"github.com/smallbiznis/taxrail/internal/exemption/service"
	"go.uber.org/fx"
)

var Module = fx.Module("exemption.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewEvaluator),
)
