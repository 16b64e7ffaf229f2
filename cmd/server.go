package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/parking-sniper/internal/config"
	"github.com/example/parking-sniper/internal/crypto"
	"github.com/example/parking-sniper/internal/db"
	"github.com/example/parking-sniper/internal/migrate"
	"github.com/example/parking-sniper/internal/store"
	"github.com/example/parking-sniper/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the dashboard API (also serves the worker its portal credentials)",
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

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			aead, err := crypto.New(cfg.CredEncKey)
			if err != nil {
				return err
			}

			srv := &web.Server{
				Auth:  web.NewAuth(d, cfg.CookieHashKey, cfg.CookieBlockKey),
				Tasks: store.NewTaskRepo(d),
				Avail: store.NewAvailabilityRepo(d),
				Creds: store.NewCredRepo(d, aead),
				Log:   log.With().Str("component", "web").Logger(),
			}

			log.Info().Str("addr", cfg.ListenAddr).Msg("http listening")
			if err := web.Start(ctx, cfg.ListenAddr, srv.Routes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
