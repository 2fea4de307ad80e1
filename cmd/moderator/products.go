package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ingredient-moderator/internal/cli"
	"github.com/Veraticus/ingredient-moderator/internal/model"
)

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalog",
	}

	cmd.AddCommand(productsAddCmd())
	cmd.AddCommand(productsListCmd())
	cmd.AddCommand(productsSearchCmd())

	return cmd
}

func productsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a product to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			synonyms, _ := cmd.Flags().GetStringSlice("synonym")
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p := &model.Product{
				CanonicalName: strings.TrimSpace(args[0]),
				Category:      category,
				Synonyms:      synonyms,
			}
			if err := store.CreateProduct(ctx, p); err != nil {
				return fmt.Errorf("failed to add product: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s (%s)", p.CanonicalName, p.ID)))
			return nil
		},
	}

	cmd.Flags().String("category", "", "product category")
	cmd.Flags().StringSlice("synonym", nil, "alternative name (repeatable)")

	return cmd
}

func productsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog products",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			products, err := store.ListProducts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list products: %w", err)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Catalog products (%d)", len(products))))
			_, _ = fmt.Fprintln(out, cli.RenderProducts(products))
			return nil
		},
	}
}

func productsSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <prefix>",
		Short: "Find products whose name or synonym starts with prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			if _, err := a.mod.RefreshCache(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderProducts(a.mod.FindByPrefix(args[0], limit)))
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum results")

	return cmd
}
