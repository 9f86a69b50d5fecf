package academic

import (
	"github.com/vidyalaya/feeledger/internal/academic/repository"
	"github.com/vidyalaya/feeledger/internal/academic/service"
	"go.uber.org/fx"
)

var Module = fx.Module("academic.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
