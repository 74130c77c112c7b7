package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vaultload/internal/clock"
	"github.com/smallbiznis/vaultload/internal/config"
	"github.com/smallbiznis/vaultload/internal/discovery"
	"github.com/smallbiznis/vaultload/internal/ledger"
	"github.com/smallbiznis/vaultload/internal/observability"
	"github.com/smallbiznis/vaultload/internal/pipeline"
	"github.com/smallbiznis/vaultload/internal/vault"
	"github.com/smallbiznis/vaultload/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// coreOptions are shared by every command.
func coreOptions(cfg config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log.Named("fx")}
			l.UseLogLevel(zap.DebugLevel)
			return l
		}),
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
	}
}

// pipelineOptions wire everything a file load needs.
func pipelineOptions(cfg config.Config) []fx.Option {
	return append(coreOptions(cfg),
		fx.Provide(discovery.New),
		ledger.Module,
		vault.Module,
		pipeline.Module,
	)
}

// start builds and starts an app; the returned stop func must be called.
func start(ctx context.Context, opts ...fx.Option) (func(), error) {
	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		_ = app.Stop(stopCtx)
	}, nil
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
