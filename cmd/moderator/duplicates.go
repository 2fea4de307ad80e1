package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ingredient-moderator/internal/cli"
)

func duplicatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find catalog products that look like the same thing",
		Long: `Compare every pair of catalog products and file a merge suggestion
for each pair whose names match closely enough.

--every repeats the scan on an interval until interrupted.`,
		RunE: runDuplicates,
	}

	cmd.Flags().Duration("every", 0, "repeat the scan on this interval")

	return cmd
}

func runDuplicates(cmd *cobra.Command, _ []string) error {
	every, _ := cmd.Flags().GetDuration("every")
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	scan := func() error {
		report, err := a.mod.DetectDuplicates(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderDuplicates(report))
		return nil
	}

	return runPeriodically(ctx, every, scan)
}
