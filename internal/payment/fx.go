package payment

import (
	"github.com/vidyalaya/feeledger/internal/payment/repository"
	"github.com/vidyalaya/feeledger/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
