package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"inked/internal/core"
	"inked/internal/state"
)

func newPensCmd(opts *rootOptions) *cobra.Command {
	var (
		search, sortKey, dir string
		asJSON               bool
	)
	cmd := &cobra.Command{
		Use:   "pens",
		Short: "List pens, filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := state.FromValues(url.Values{"q": {search}, "sort": {sortKey}, "dir": {dir}})
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				views, err := a.svc.Pens(ctx, st.PenQuery())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), views)
				}
				return printPens(cmd.OutOrStdout(), views)
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "q", "", "match brand, model or nib fields")
	cmd.Flags().StringVar(&sortKey, "sort", "", "sort key: brand, model or nibSize")
	cmd.Flags().StringVar(&dir, "dir", "", "sort direction: ascending or descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(
		newPenAddCmd(opts),
		newPenInkCmd(opts),
		newPenCleanCmd(opts),
		newPenDeleteCmd(opts),
	)
	return cmd
}

func newPenAddCmd(opts *rootOptions) *cobra.Command {
	var (
		draft    core.PenDraft
		logoPath string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a clean pen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logo, err := readLogo(logoPath)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				pen, res, err := a.svc.AddPen(ctx, draft, logo)
				if err != nil {
					return err
				}
				if err := resultError(res); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pen.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&draft.Brand, "brand", "", "brand (required)")
	cmd.Flags().StringVar(&draft.Model, "model", "", "model (required)")
	cmd.Flags().StringVar(&draft.Nib.Size, "nib-size", "", "nib size (required)")
	cmd.Flags().StringVar(&draft.Nib.Material, "nib-material", "", "nib material (required)")
	cmd.Flags().StringVar(&draft.Nib.Features, "nib-features", "", "nib features")
	cmd.Flags().StringVar(&draft.Nib.WritingFeel, "writing-feel", "", "writing feel notes")
	cmd.Flags().StringVar(&logoPath, "logo", "", "brand logo image file")
	return cmd
}

func newPenInkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ink <pen-id> <ink-id>",
		Short: "Load an ink into a pen",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				_, _, err := a.svc.InkPen(ctx, args[0], args[1])
				return err
			})
		},
	}
}

func newPenCleanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean <pen-id>",
		Short: "Empty a pen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				_, _, err := a.svc.CleanPen(ctx, args[0])
				return err
			})
		},
	}
}

func newPenDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <pen-id>",
		Short: "Delete a pen after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				confirmer := promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
				if yes {
					confirmer = core.Confirmed(true)
				}
				deletion, _, err := a.svc.DeletePen(ctx, args[0], confirmer)
				if err != nil {
					return err
				}
				if !deletion.Confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "not deleted")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
