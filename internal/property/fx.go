package property

import (
	"github.com/landworks/cadastre/internal/property/repository"
	"github.com/landworks/cadastre/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(
		fx.Annotate(
			repository.ProvideWorkflowStore,
			fx.ResultTags(`group:"workflow.stores"`),
		),
	),
)
