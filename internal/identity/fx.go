package identity

import (
	"github.com/smallbiznis/faktur/internal/identity/repository"
	"github.com/smallbiznis/faktur/internal/identity/service"
	"github.com/smallbiznis/faktur/internal/identity/token"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(token.NewIssuerFromConfig),
)
