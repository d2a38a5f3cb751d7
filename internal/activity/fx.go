package activity

import (
	"github.com/landworks/cadastre/internal/activity/repository"
	"github.com/landworks/cadastre/internal/activity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
