package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"inked/internal/core"
	"inked/internal/state"
)

func newInksCmd(opts *rootOptions) *cobra.Command {
	var (
		search, color string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "inks",
		Short: "List inks, optionally near a color",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := state.FromValues(url.Values{"inkq": {search}, "color": {color}})
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				views, err := a.svc.Inks(ctx, st.InkQuery())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), views)
				}
				return printInks(cmd.OutOrStdout(), views)
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "q", "", "match brand, name or color")
	cmd.Flags().StringVar(&color, "color", "", "only inks close to this #rrggbb color")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(
		newInkAddCmd(opts),
		newInkUsageCmd(opts),
		newInkDeleteCmd(opts),
	)
	return cmd
}

func newInkAddCmd(opts *rootOptions) *cobra.Command {
	var (
		draft    core.InkDraft
		logoPath string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an ink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logo, err := readLogo(logoPath)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				ink, res, err := a.svc.AddInk(ctx, draft, logo)
				if err != nil {
					return err
				}
				if err := resultError(res); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ink.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&draft.Brand, "brand", "", "brand (required)")
	cmd.Flags().StringVar(&draft.Name, "name", "", "name (required)")
	cmd.Flags().StringVar(&draft.Color, "color", "", "swatch color, #rrggbb")
	cmd.Flags().StringVar(&logoPath, "logo", "", "brand logo image file")
	return cmd
}

func newInkUsageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <ink-id>",
		Short: "Show which pens hold an ink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				usage, err := a.svc.InkUsage(ctx, args[0])
				if err != nil {
					return err
				}
				if !usage.InUse {
					fmt.Fprintln(cmd.OutOrStdout(), "not in use")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(usage.PenIDs, "\n"))
				return nil
			})
		},
	}
}

func newInkDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <ink-id>",
		Short: "Delete an ink, cleaning the pens that hold it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				confirmer := promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
				if yes {
					confirmer = core.Confirmed(true)
				}
				deletion, _, err := a.svc.DeleteInk(ctx, args[0], confirmer)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case !deletion.Confirmed:
					fmt.Fprintln(out, "not deleted")
				case len(deletion.ClearedPenIDs) > 0:
					fmt.Fprintf(out, "deleted, cleaned pens %s\n", strings.Join(deletion.ClearedPenIDs, ", "))
				default:
					fmt.Fprintln(out, "deleted")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
