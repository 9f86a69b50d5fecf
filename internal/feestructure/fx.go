package feestructure

import (
	"github.com/vidyalaya/feeledger/internal/feestructure/repository"
	"github.com/vidyalaya/feeledger/internal/feestructure/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feestructure.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
