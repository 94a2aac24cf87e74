package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refrain2333/legal-retrieval/internal/config"
	"github.com/refrain2333/legal-retrieval/internal/document"
	"github.com/refrain2333/legal-retrieval/internal/orchestrator"
)

// newHealthCmd creates the health command: a readiness probe equivalent to
// the teacher's index/consistency.go QuickCheck, generalized from chunks to
// documents.
func newHealthCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run a readiness probe against the configured corpus",
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
				return fmt.Errorf("not ready: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d articles, %d cases\n", len(corpus.Articles), len(corpus.Cases))
			return err
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", ".", "Directory to load legal-retrieval.yaml from")
	return cmd
}
