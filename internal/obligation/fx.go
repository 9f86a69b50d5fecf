package obligation

import (
	"github.com/vidyalaya/feeledger/internal/obligation/repository"
	"github.com/vidyalaya/feeledger/internal/obligation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("obligation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
