package main

import (
	"context"

	"github.com/spf13/cobra"

	"inked/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "inked",
		Short:         "Track fountain pens and the inks loaded in them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to inked.toml (defaults apply when empty)")

	cmd.AddCommand(
		newServeCmd(opts),
		newPensCmd(opts),
		newInksCmd(opts),
		newSeedCmd(opts),
	)
	return cmd
}

// withApp loads configuration, opens the collection and seeds it when empty
// before running fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	return runApp(cmd, opts, true, fn)
}

func runApp(cmd *cobra.Command, opts *rootOptions, seedEmpty bool, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	if seedEmpty {
		if err := a.seedIfEmpty(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}
