package main

import (
	"context"
	"fmt"
	"os"

	"github.com/monocle-dev/tracker/db"
	"github.com/monocle-dev/tracker/internal/config"
	"github.com/monocle-dev/tracker/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app holds what every subcommand needs once the configuration is loaded.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Issue tracker with configurable workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(cfg.LogLevel, cfg.LogPretty, os.Stdout)
			return nil
		},
	}

	root.AddCommand(a.serveCmd(), a.migrateCmd(), a.userCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) openDB(ctx context.Context) (*gorm.DB, error) {
	return db.Open(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseURL, a.log)
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			if err := db.Migrate(conn); err != nil {
				return err
			}
			a.log.Info().Msg("database schema is up to date")
			return nil
		},
	}
}
