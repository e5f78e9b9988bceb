package calculation

import (
	"github.com/smallbiznis/taxrail/internal/calculation/domain"
	"github.com/smallbiznis/taxrail/internal/calculation/engine"
	"github.com/smallbiznis/taxrail/internal/calculation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("calculation.service",
	fx.Provide(
		provideEngines,
		service.NewCalculator,
		asCalculator,
		asCacheAdmin,
		service.NewBulk,
	),
)

func provideEngines() *engine.Registry {
	return engine.NewRegistry(engine.NewGeneral(), engine.NewTelecom())
}

func asCalculator(c *service.Calculator) domain.Calculator { return c }

func asCacheAdmin(c *service.Calculator) domain.CacheAdmin { return c }
