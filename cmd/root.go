package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ellavondegurechaff/materialpool/materialpool"
	"github.com/ellavondegurechaff/materialpool/materialpool/logger"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "materialpool",
	Short:         "Shared pool of reusable materials with exclusive claiming",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config")
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.LogError("Command failed", err)
		os.Exit(1)
	}
}

// loadConfig reads --config and installs the configured logger.
func loadConfig() (*materialpool.Config, error) {
	cfg, err := materialpool.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(logger.New("MatPool", cfg.Log.Format, cfg.Log.Level, cfg.Log.AddSource)))
	return cfg, nil
}
