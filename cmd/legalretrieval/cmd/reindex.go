package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReindexCmd creates the reindex command. Building the vector store and
// BM25 index from the corpus is an ingestion-pipeline concern external to
// this repo (SPEC_FULL.md §6 Non-goals), matching the teacher's own
// "not part of core" carve-out for its offline index builder. This command
// is a documented stub pointing at that boundary.
func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Stub: rebuilding the vector/BM25 index is out of scope for this binary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(),
				"reindex is not implemented: building the vector store and BM25 index "+
					"from the corpus is an external ingestion-pipeline step")
			return err
		},
	}
}
