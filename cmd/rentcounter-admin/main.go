package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/admin"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration
	workers    int

	logger *zap.Logger
)

// rootCmd is the operator entry point.
var rootCmd = &cobra.Command{
	Use:   "rentcounter-admin",
	Short: "Rent Counter maintenance commands",
	Long: `Operator commands that run against the Rent Counter database directly.

Configuration is read from --config (YAML, same keys as the server) with
RENTCOUNTER_* environment variables taking precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", admin.DefaultWorkers, "Concurrent invoice generations")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(circulationCmd)
	rootCmd.AddCommand(reportsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withRunner loads config, connects, runs fn and disconnects. The context
// is cancelled on SIGINT/SIGTERM or after --timeout.
func withRunner(ensureSchema bool, fn func(ctx context.Context, r *admin.Runner) error) error {
	appCfg, err := bootstrap.LoadFile(configPath)
	if err != nil {
		return err
	}
	if err := bootstrap.ValidateConfig(nil, appCfg, logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	deps, err := bootstrap.ConnectDB(ctx, nil, appCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = bootstrap.Shutdown(shutdownCtx, nil, appCfg, deps, logger)
	}()

	if ensureSchema {
		if err := bootstrap.EnsureSchema(ctx, nil, appCfg, deps, logger); err != nil {
			return err
		}
	}

	r := admin.New(appCfg, deps, logger)
	r.Workers = workers
	return fn(ctx, r)
}
