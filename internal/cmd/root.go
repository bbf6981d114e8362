// Package cmd implements storectl, the operator CLI for the storefront database.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/davidsmithrojas/storefront/internal/config"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

var connectRetries int

var rootCmd = &cobra.Command{
	Use:   "storectl",
	Short: "Operator tools for the storefront database",
	Long: `storectl applies the storefront schema and audits the inventory ledger.

Connection settings are read from the same DB_* environment variables as the API server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&connectRetries, "retries", 1, "Connection attempts before giving up")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect loads configuration from the environment and opens a pool.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), connectRetries)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}
