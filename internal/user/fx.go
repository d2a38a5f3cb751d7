package user

import (
	"github.com/landworks/cadastre/internal/user/repository"
	"github.com/landworks/cadastre/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
