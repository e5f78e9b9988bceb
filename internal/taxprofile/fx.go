package taxprofile

import (
	"github.com/smallbiznis/taxrail/internal/taxprofile/repository"
	"github.com/smallbiznis/taxrail/internal/taxprofile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxprofile.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewResolver),
)
