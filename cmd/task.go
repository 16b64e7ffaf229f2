package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/parking-sniper/internal/config"
	"github.com/example/parking-sniper/internal/db"
	"github.com/example/parking-sniper/internal/migrate"
	"github.com/example/parking-sniper/internal/store"
	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage reservation tasks (non-UI)",
	}
	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskDeleteCmd())
	return cmd
}

func openTaskRepo(ctx context.Context) (*store.TaskRepo, func(), error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, nil, err
	}
	return store.NewTaskRepo(d), d.Close, nil
}

func newTaskCreateCmd() *cobra.Command {
	var date, plate string

	c := &cobra.Command{
		Use:   "create",
		Short: "Queue a booking intent for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			repo, closeDB, err := openTaskRepo(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			id, err := repo.Create(ctx, date, plate)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created task id=%d date=%s plate=%s\n", id, date, plate)
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD")
	c.Flags().StringVar(&plate, "plate", "", "plate number")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("plate")
	return c
}

func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reservation tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			repo, closeDB, err := openTaskRepo(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			tasks, err := repo.List(ctx)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Fprintf(os.Stdout, "id=%d date=%s plate=%s status=%s retry_log=%q\n",
					t.ID, t.Date, t.PlateNumber, t.Status, t.RetryLog)
			}
			return nil
		},
	}
}

func newTaskDeleteCmd() *cobra.Command {
	var id int64

	c := &cobra.Command{
		Use:   "delete",
		Short: "Request removal of a task (the worker confirms it against the portal)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			repo, closeDB, err := openTaskRepo(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.RequestDelete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "task %d marked for deletion\n", id)
			return nil
		},
	}

	c.Flags().Int64Var(&id, "id", 0, "task id")
	_ = c.MarkFlagRequired("id")
	return c
}
