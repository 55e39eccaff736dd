// Package cli implements reviewctl, the operator command line for the
// review service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hrreview/internal/app/server"
	"hrreview/internal/platform/config"
)

// Options are the persistent flags shared by every subcommand. Empty values
// keep what the environment configured.
type Options struct {
	Driver     string
	SQLitePath string
	Output     string
}

// Loader returns the base configuration; tests replace it.
type Loader func() config.Config

func NewRootCmd(load Loader) *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Operate the performance review service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.Driver, "driver", "", "store driver override (postgres|sqlite)")
	root.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite-path", "", "sqlite database file override")
	root.PersistentFlags().StringVarP(&opts.Output, "output", "o", "yaml", "output format (yaml|json)")

	env := &environment{load: load, opts: opts}
	root.AddCommand(
		newServeCmd(env),
		newMigrateCmd(env),
		newSeedCmd(env),
		newSweepCmd(env),
		newCycleSummaryCmd(env),
		newPolicyCheckCmd(env),
	)
	return root
}

type environment struct {
	load Loader
	opts *Options
}

func (e *environment) config() config.Config {
	cfg := e.load()
	if e.opts.Driver != "" {
		cfg.StoreDriver = e.opts.Driver
	}
	if e.opts.SQLitePath != "" {
		cfg.SQLitePath = e.opts.SQLitePath
	}
	return cfg
}

// open builds the application without starting its HTTP listener or jobs.
func (e *environment) open(ctx context.Context, adjust func(*config.Config)) (*server.App, error) {
	cfg := e.config()
	if adjust != nil {
		adjust(&cfg)
	}
	return server.New(ctx, cfg)
}

func (e *environment) print(w io.Writer, v any) error {
	switch e.opts.Output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", e.opts.Output)
	}
}
