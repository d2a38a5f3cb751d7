package notification

import (
	"github.com/landworks/cadastre/internal/notification/repository"
	"github.com/landworks/cadastre/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
