package usage

import (
	"github.com/docupulse/docupulse/internal/usage/repository"
	"github.com/docupulse/docupulse/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
