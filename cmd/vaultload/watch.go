package main

import (
	"context"

	"github.com/smallbiznis/vaultload/internal/discovery"
	ledgerdomain "github.com/smallbiznis/vaultload/internal/ledger/domain"
	"github.com/smallbiznis/vaultload/internal/pipeline"
	"github.com/smallbiznis/vaultload/internal/server"
	"github.com/smallbiznis/vaultload/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type watchDeps struct {
	fx.In

	Log      *zap.Logger
	Finder   *discovery.Finder
	Ledger   ledgerdomain.Ledger
	Pipeline *pipeline.Pipeline
	Watcher  *watch.Watcher
	Status   *server.Status
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Load pending files, then every new file that lands in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			var deps watchDeps
			stop, err := start(cmd.Context(), append(pipelineOptions(cfg),
				fx.Provide(watch.New),
				server.Module,
				fx.Invoke(func(d watchDeps) { deps = d }),
			)...)
			if err != nil {
				return err
			}
			defer stop()

			return watchFiles(cmd.Context(), deps)
		},
	}
}

// watchFiles drains the backlog and then follows the data directory until
// ctx is cancelled. Failed files are reported and left unmarked.
func watchFiles(ctx context.Context, deps watchDeps) error {
	handle := func(ctx context.Context, path string) error {
		report, err := deps.Pipeline.ProcessFile(ctx, path)
		deps.Status.Record(report)
		return err
	}

	pending, err := deps.Finder.Pending(ctx, deps.Ledger)
	if err != nil {
		return err
	}
	for _, path := range pending {
		if ctx.Err() != nil {
			return nil
		}
		if err := handle(ctx, path); err != nil {
			deps.Log.Warn("backlog file failed", zap.String("file_id", discovery.FileID(path)), zap.Error(err))
		}
	}

	err = deps.Watcher.Run(ctx, handle)
	deps.Log.Info("watch stopped")
	return err
}
