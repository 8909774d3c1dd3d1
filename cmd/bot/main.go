package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"registration-bot/internal/config"
)

var (
	cfg    config.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:          "bot",
		Short:        "Discord registration verification bot",
		Long:         "Verifies event registrations against Airtable and manages each event year's Discord roles and channels.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			c, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = c
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(logger)
			return nil
		},
	}
)

func init() {
	rootCmd.RunE = runServe
	rootCmd.AddCommand(serveCmd, registerCmd, checkAccessCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
