package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ingredient-moderator/internal/cli"
)

func decisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Manage remembered moderation decisions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete expired decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			n, err := a.decisions.Sweep(ctx)
			if err != nil {
				return fmt.Errorf("failed to sweep decisions: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Swept %d expired decisions", n)))
			return nil
		},
	})

	return cmd
}
