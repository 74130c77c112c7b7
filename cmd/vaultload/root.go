package main

import (
	"io"

	"github.com/smallbiznis/vaultload/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	stdout     io.Writer
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}

func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout}
	rc := &cobra.Command{
		Use:   "vaultload",
		Short: "Load daily CSV extracts into Data Vault hub, link and satellite tables.",
		Long: `vaultload reads denormalized daily extracts, splits every row into
hub, link and satellite records and inserts them with conflict-skip in
dependency order. Each file is recorded in the processed-file ledger once
all of its record sets were written.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	rc.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file to read from.")

	rc.AddCommand(newRunCommand(opts))
	rc.AddCommand(newWatchCommand(opts))
	rc.AddCommand(newSchemaCommand(opts))
	return rc
}
