package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/parking-sniper/internal/config"
	"github.com/example/parking-sniper/internal/crypto"
	"github.com/example/parking-sniper/internal/db"
	"github.com/example/parking-sniper/internal/migrate"
	"github.com/example/parking-sniper/internal/store"
	"github.com/spf13/cobra"
)

func newCredsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage the portal credentials the worker logs in with",
	}
	cmd.AddCommand(newCredsSetCmd())
	return cmd
}

func newCredsSetCmd() *cobra.Command {
	var email, password string

	c := &cobra.Command{
		Use:   "set",
		Short: "Store the portal login (password encrypted at rest)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			aead, err := crypto.New(cfg.CredEncKey)
			if err != nil {
				return err
			}
			if err := store.NewCredRepo(d, aead).Set(ctx, email, password); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "portal credentials stored for %s\n", email)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "portal login email")
	c.Flags().StringVar(&password, "password", "", "portal login password")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}
