package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"macrocopilot/src/config"
	"macrocopilot/src/version"
)

func main() {
	initializeLogging()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd(ctx).Execute(); err != nil {
		slog.Error("macrocopilot failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "macrocopilot",
		Short:         "Macro regime classifier and allocation backtester",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(ctx))
	root.AddCommand(versionCmd())
	return root
}

func runCmd(ctx context.Context) *cobra.Command {
	var (
		configPath string
		serve      bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build features, train the regime classifier and backtest the allocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			copilotConfig, err := config.Load(configPath)
			if err != nil {
				return err
			}
			slog.Info("Ramping up macro copilot", "version", version.Version)
			return runCopilot(ctx, copilotConfig, serve)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config (default $CONFIG_PATH, then config.local.yaml)")
	cmd.Flags().BoolVar(&serve, "serve", false, "keep the report server running after the run")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func initializeLogging() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})))
	case "warn":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelWarn})))
	default:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	}
}
