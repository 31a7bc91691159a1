// Package cli implements the reconciler command line tool used by operators
// to inspect and restore failed payments outside the web back office.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/madhatv/payment-recovery/internal/config"
	"github.com/madhatv/payment-recovery/internal/database"
	"github.com/madhatv/payment-recovery/internal/logging"
	"github.com/madhatv/payment-recovery/internal/middleware"
)

// runtime is what the data commands need.  close releases it.
// invalidate drops the API's cached recovery history and may be nil.
type runtime struct {
	db         *sql.DB
	rdb        *redis.Client
	log        *zap.Logger
	invalidate func(ctx context.Context) error
	close      func()
}

// afterRestore runs once a command has restored at least one record.
func (rt *runtime) afterRestore(ctx context.Context) {
	if rt.invalidate == nil {
		return
	}
	if err := rt.invalidate(ctx); err != nil {
		rt.log.Warn("invalidate recovery history cache", zap.Error(err))
	}
}

// connect builds the runtime from the environment.  Tests replace it.
var connect = func(cmd *cobra.Command) (*runtime, error) {
	cfg := config.Load()
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	prefix := config.LoadCacheConfig().Prefix
	return &runtime{
		db:  db,
		rdb: rdb,
		log: log,
		invalidate: func(ctx context.Context) error {
			return middleware.InvalidateCache(ctx, rdb, prefix)
		},
		close: func() {
			if rdb != nil {
				_ = rdb.Close()
			}
			_ = db.Close()
			_ = log.Sync()
		},
	}, nil
}

// NewRootCommand returns the reconciler command tree.
func NewRootCommand() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:   "reconciler",
		Short: "Restore payments whose booking or order was never created",
		Long: `reconciler lists failed payment records and restores them as service
bookings or book orders.  Restores are idempotent: running one twice never
creates a second set of bookings or orders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Load environment variables from this file")

	root.AddCommand(newListCmd())
	root.AddCommand(newRestoreCmd())
	root.AddCommand(newRestorePendingCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	root := NewRootCommand()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
