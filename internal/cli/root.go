// Package cli implements the lumina command line.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/katakuxiko/luminarag/internal/app"
	"github.com/katakuxiko/luminarag/internal/config"
	"github.com/katakuxiko/luminarag/internal/logger"
)

var (
	configPath string
	verbose    bool

	// newApp builds the pipeline for a command; tests replace it.
	newApp = app.Build

	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "lumina",
	Short: "Ask questions about your PDF documents",
	Long: `lumina indexes PDF documents into a local vector store and answers
questions from them with an LLM, falling back to a web search when the
documents have nothing relevant.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	// finalizers run even when RunE fails, unlike PersistentPostRunE
	cobra.OnFinalize(teardown)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	l := logger.Setup(level, os.Stderr)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx, l)
	cmd.SetContext(ctx)

	application, err = newApp(ctx, cfg)
	return err
}

func teardown() {
	if application == nil {
		return
	}
	if err := application.Close(); err != nil {
		slog.Error("close index", "err", err)
	}
	application = nil
}
