package main

import (
	"github.com/smallbiznis/vaultload/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the vault schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the hub, link and satellite tables and processed_files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			var runner *migration.Runner
			stop, err := start(cmd.Context(), append(coreOptions(cfg),
				migration.Module,
				fx.Populate(&runner),
			)...)
			if err != nil {
				return err
			}
			defer stop()

			return runner.Up(cmd.Context())
		},
	})
	return cmd
}
