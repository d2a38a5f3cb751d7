package customer

import (
	"github.com/landworks/cadastre/internal/customer/repository"
	"github.com/landworks/cadastre/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(
		fx.Annotate(
			repository.ProvideWorkflowStore,
			fx.ResultTags(`group:"workflow.stores"`),
		),
	),
)
