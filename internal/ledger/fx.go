package ledger

import (
	"github.com/smallbiznis/vaultload/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(service.ProvideRedisClient),
	fx.Provide(service.ProvideLocker),
	fx.Provide(service.NewLedger),
)
