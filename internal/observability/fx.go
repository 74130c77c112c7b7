package observability

import (
	"strings"

	"github.com/smallbiznis/vaultload/internal/config"
	"github.com/smallbiznis/vaultload/internal/observability/logger"
	"github.com/smallbiznis/vaultload/internal/observability/metrics"
	"github.com/smallbiznis/vaultload/pkg/telemetry"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
		metrics.New,
		metrics.NewPusher,
	),
	telemetry.Module,
)

func provideLoggerConfig(cfg config.Config) logger.Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "vaultload"
	}
	return logger.Config{
		ServiceName:         serviceName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.Log.Level,
		Format:              cfg.Log.Format,
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}
