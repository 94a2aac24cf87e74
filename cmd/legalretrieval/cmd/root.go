// Package cmd provides the CLI commands for the legal retrieval service.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/refrain2333/legal-retrieval/internal/logging"
	"github.com/refrain2333/legal-retrieval/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the legal-retrieval CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legal-retrieval",
		Short: "Chinese criminal-law retrieval service",
		Long: `legal-retrieval runs the five-stage classification, extraction,
routing, multi-strategy retrieval, and fusion pipeline over a corpus of
criminal law articles and cases.

Transport, ingestion, and the vector-file build step are out of scope for
this binary; it wires the retrieval core and exposes it as a Go Service for
an embedding application to drive.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("legal-retrieval version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.legal-retrieval/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
