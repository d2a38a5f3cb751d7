package audit

import (
	"github.com/landworks/cadastre/internal/audit/repository"
	"github.com/landworks/cadastre/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
