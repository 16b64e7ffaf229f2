package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/example/parking-sniper/internal/config"
	"github.com/example/parking-sniper/internal/creds"
	"github.com/example/parking-sniper/internal/db"
	"github.com/example/parking-sniper/internal/migrate"
	"github.com/example/parking-sniper/internal/portal"
	"github.com/example/parking-sniper/internal/store"
	"github.com/example/parking-sniper/internal/worker"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the reservation worker loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			// The database may still be coming up when the worker starts.
			if err := retry.Do(
				func() error { return d.Ping(ctx) },
				retry.Context(ctx),
				retry.Attempts(5),
				retry.Delay(2*time.Second),
			); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			dialer := &portal.Dialer{
				BaseURL:   cfg.PortalBaseURL,
				Slug:      cfg.GarageSlug,
				ArticleID: cfg.ArticleID,
				Creds:     creds.New(cfg.CredsURL, cfg.RemoteTimeout),
				Timeout:   cfg.RemoteTimeout,
			}

			w := &worker.Worker{
				Dial:           func(ctx context.Context) (worker.Session, error) { return dialer.Connect(ctx) },
				Tasks:          store.NewTaskRepo(d),
				Avail:          store.NewAvailabilityRepo(d),
				Log:            log.With().Str("component", "worker").Logger(),
				Interval:       cfg.PollInterval,
				SessionMaxAge:  cfg.SessionMaxAge,
				AcquireBackoff: cfg.AcquireBackoff,
			}

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
