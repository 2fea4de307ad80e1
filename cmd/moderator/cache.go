package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ingredient-moderator/internal/cli"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and refresh the product and decision caches",
	}

	cmd.AddCommand(cacheRefreshCmd())
	cmd.AddCommand(cacheStatusCmd())

	return cmd
}

func cacheRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reload the catalog and drop expired decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			every, _ := cmd.Flags().GetDuration("every")
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			return runPeriodically(ctx, every, func() error {
				report, err := a.mod.RefreshCache(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintln(out, cli.RenderCacheStatus(report.Status))
				_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Swept %d expired decisions", report.SweptDecisions)))
				return nil
			})
		},
	}

	cmd.Flags().Duration("every", 0, "repeat the refresh on this interval")

	return cmd
}

func cacheStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show product cache freshness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			if _, err := a.mod.RefreshCache(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCacheStatus(a.mod.CacheStatus()))
			return nil
		},
	}
}
