package paymentlink

import (
	"github.com/smallbiznis/faktur/internal/paymentlink/repository"
	"github.com/smallbiznis/faktur/internal/paymentlink/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentlink.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
