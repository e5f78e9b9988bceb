package category

import (
	"github.com/smallbiznis/taxrail/internal/category/repository"
	"github.com/smallbiznis/taxrail/internal/category/service"
	"go.uber.org/fx"
)

var Module = fx.Module("category.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewClassifier),
)
