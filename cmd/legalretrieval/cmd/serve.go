package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/refrain2333/legal-retrieval/internal/config"
	"github.com/refrain2333/legal-retrieval/internal/document"
	"github.com/refrain2333/legal-retrieval/internal/orchestrator"
)

// newServeCmd creates the serve command. It wires configuration, the
// corpus, and the orchestrator's Service, then blocks until interrupted.
// It does not open an HTTP or WebSocket listener: per SPEC_FULL.md §6 that
// transport layer is an external collaborator, the same carve-out the
// teacher draws around its own MCP transport.
func newServeCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Wire the retrieval pipeline and block until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			corpus, err := document.LoadCorpus(cfg.Paths.DataDir)
			if err != nil {
				return fmt.Errorf("load corpus: %w", err)
			}

			svc, err := orchestrator.New(cmd.Context(), cfg, corpus)
			if err != nil {
				return fmt.Errorf("wire retrieval service: %w", err)
			}
			if err := svc.Health(cmd.Context()); err != nil {
				return fmt.Errorf("readiness check failed: %w", err)
			}

			slog.Info("retrieval service ready",
				slog.Int("articles", len(corpus.Articles)),
				slog.Int("cases", len(corpus.Cases)))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			slog.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", ".", "Directory to load legal-retrieval.yaml from")
	return cmd
}
