package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ingredient-moderator/internal/cli"
	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/storage"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Review moderation tasks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List moderation tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			taskType, _ := cmd.Flags().GetString("type")
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tasks, err := store.ListTasks(ctx, storage.TaskFilter{
				Type:   model.TaskType(taskType),
				Status: model.TaskStatus(status),
				Limit:  limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Moderation tasks (%d)", len(tasks))))
			_, _ = fmt.Fprintln(out, cli.RenderTasks(tasks))
			return nil
		},
	}
	list.Flags().String("type", "", "task type (link_suggestion, new_product, merge_suggestion)")
	list.Flags().String("status", string(model.TaskPending), "task status, empty for all")
	list.Flags().Int("limit", 50, "maximum tasks")

	cmd.AddCommand(list)
	return cmd
}
