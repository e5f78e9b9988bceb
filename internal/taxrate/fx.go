package taxrate

import (
	"github.com/smallbiznis/taxrail/internal/taxrate/repository"
	"github.com/smallbiznis/taxrail/internal/taxrate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxrate.service",
	fx.Provide(
		repository.NewRepository,
		service.NewManagement,
	),
)
