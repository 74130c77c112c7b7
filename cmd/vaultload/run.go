package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smallbiznis/vaultload/internal/discovery"
	ledgerdomain "github.com/smallbiznis/vaultload/internal/ledger/domain"
	"github.com/smallbiznis/vaultload/internal/observability/metrics"
	"github.com/smallbiznis/vaultload/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errAllWithArg = errors.New("--all does not take a file argument")

type runDeps struct {
	fx.In

	Log      *zap.Logger
	Finder   *discovery.Finder
	Ledger   ledgerdomain.Ledger
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Metrics
	Pusher   metrics.Pusher `optional:"true"`
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "run [YYYYMMDD|filename]",
		Short: "Load one file, or every pending file with --all",
		Long: `Load one source file from the data directory.

With a YYYYMMDD argument the first file containing that date is loaded.
Any other argument names a dated file in the data directory. Without an
argument the latest file is loaded. --all loads every file the ledger has
not yet recorded, oldest first.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errAllWithArg
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			var deps runDeps
			stop, err := start(cmd.Context(), append(pipelineOptions(cfg), fx.Invoke(func(d runDeps) { deps = d }))...)
			if err != nil {
				return err
			}
			defer stop()

			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runFiles(cmd.Context(), deps, all, arg, opts.stdout)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "process every file not yet in the ledger")
	return cmd
}

func runFiles(ctx context.Context, deps runDeps, all bool, arg string, out io.Writer) error {
	var paths []string
	if all {
		pending, err := deps.Finder.Pending(ctx, deps.Ledger)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			deps.Log.Info("no pending files", zap.String("dir", deps.Finder.Dir()))
			return nil
		}
		paths = pending
	} else {
		path, err := deps.Finder.Resolve(arg)
		if err != nil {
			return err
		}
		paths = []string{path}
	}

	reports, runErr := deps.Pipeline.ProcessFiles(ctx, paths)
	printReports(out, reports)

	if deps.Pusher != nil {
		if err := deps.Pusher.Push(context.WithoutCancel(ctx), deps.Metrics.Registry()); err != nil {
			deps.Log.Warn("push metrics failed", zap.Error(err))
		}
	}
	return runErr
}

func printReports(out io.Writer, reports []pipeline.Report) {
	if out == nil || len(reports) == 0 {
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tOUTCOME\tROWS\tINSERTED\tFAILED SETS\tDURATION")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.FileID, r.Outcome, r.RowsRead, r.Inserted(), r.FailedSets(), r.Duration)
	}
	_ = tw.Flush()
}
