package assessment

import (
	"github.com/landworks/cadastre/internal/assessment/repository"
	"github.com/landworks/cadastre/internal/assessment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assessment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
