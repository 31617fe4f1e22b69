// Package commands implements the cryovault command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/themadjocker/cryo-vault-backend-api/internal/config"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

var (
	cfg    = config.New()
	logger log.Logger = log.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "cryovault",
	Short: "CryoVault - ultra-cold storage slot allocation service",
	Long: `CryoVault allocates ultra-cold freezer slots to vaccine shipments.

Slots are held for a short window, confirmed into bookings, and every
confirmed allocation and critical temperature excursion is recorded in a
tamper-evident hash-chained ledger.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Load(cmd.Flags()); err != nil {
			return err
		}
		if err := errors.Join(cfg.Log.Validate()...); err != nil {
			return err
		}
		l, err := log.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	cfg.AddFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newLedgerCmd())
}

// Execute runs the command tree and prints any error to stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func SetVersionInfo(version, commit string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := errors.Join(cfg.Database.Validate()...); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}
