package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/lmscore/internal/config"
	"github.com/nikhilbhutani/lmscore/internal/database"
)

var (
	databaseURL string
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lmsctl",
		Short: "Maintenance commands for the LMS core",
		Long:  "Bootstraps platform identities, seeds tenants and mints development credentials",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(
		bootstrapCmd(),
		seedTenantCmd(),
		tokenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if databaseURL != "" {
		cfg.Database.URL = databaseURL
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url required: set DATABASE_URL or --database-url")
	}
	return database.NewPool(ctx, cfg.Database)
}
