package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"inked/internal/seed"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var printDefaults bool
	cmd := &cobra.Command{
		Use:   "seed [file]",
		Short: "Import a YAML fixture file into the collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printDefaults {
				return seed.Encode(cmd.OutOrStdout(), seed.Default())
			}
			if len(args) == 0 {
				return errors.New("seed file required")
			}
			c, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			return runApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				return a.importCollection(ctx, c, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&printDefaults, "print-defaults", false, "write the built-in collection as YAML and exit")
	return cmd
}
