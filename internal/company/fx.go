package company

import (
	"github.com/smallbiznis/faktur/internal/company/repository"
	"github.com/smallbiznis/faktur/internal/company/service"
	"go.uber.org/fx"
)

var Module = fx.Module("company.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
