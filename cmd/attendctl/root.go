package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/app"
	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/observability"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "Operate the face attendance service from the command line",
	Long: `attendctl talks to the same database, object store and models as the
attendance API. Use it to bulk-enroll people, run recognition on a file,
and inspect the attendance log.`,
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// openApp loads the config and opens the backends a command needs.
func openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	observability.SetupLogger(logLevel, "text")

	a, err := app.Open(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return a, nil
}
