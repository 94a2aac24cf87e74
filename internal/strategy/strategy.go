// Package strategy implements the six retrieval strategies (C8, §4.8)
// behind one Strategy interface, each scoring candidate articles/cases in
// [0,1] and returning at most top_k=20 of each. The Orchestrator fans these
// out concurrently in Stage 4 and feeds their results to Fusion.
package strategy

import (
	"context"

	"github.com/refrain2333/legal-retrieval/internal/kg"
	"github.com/refrain2333/legal-retrieval/internal/query"
	"github.com/refrain2333/legal-retrieval/internal/store"
)

// TopK is the default result cap per partition (§4.8).
const TopK = 20

// ScoredDoc is one ranked candidate, score in [0,1].
type ScoredDoc struct {
	DocID string
	Score float64
	Debug string
}

// Status mirrors the strategy-level outcome the trace records (§4.8,
// §4.10): success, or error when the strategy could not run at all.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is one strategy's output for a single request (§4.8).
type Result struct {
	Articles     []ScoredDoc
	Cases        []ScoredDoc
	Status       Status
	ErrorMessage string
}

// errorResult builds the empty, status=error Result every strategy returns
// when it cannot run at all (§4.8's failure semantics), so the Orchestrator
// never has to special-case a strategy panic or unmet precondition.
func errorResult(message string) *Result {
	return &Result{Status: StatusError, ErrorMessage: message}
}

// Embedder is the subset of internal/embed.Embedder strategies depend on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BM25Searcher is the subset of internal/store.BleveBM25Index the
// bm25_hybrid strategy depends on.
type BM25Searcher interface {
	Search(terms []string, k int, partition store.Partition) ([]store.BM25Result, error)
}

// Generator is the subset of internal/llm.Client the llm_enhanced strategy
// depends on.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// RunContext carries every dependency and per-request datum a strategy may
// need; strategies read from it but never mutate it, so Stage 4's
// concurrent fan-out requires no synchronization around it (§5).
type RunContext struct {
	Embedder Embedder
	Vectors  store.VectorStore
	BM25     BM25Searcher
	Graph    *kg.Graph

	LLM Generator

	Classification query.Classification
	Extraction     query.Extraction
}

// Strategy is the uniform contract all six retrieval paths implement
// (§4.8).
type Strategy interface {
	// Name identifies the strategy for routing, tracing, and fusion source
	// annotation.
	Name() string
	Execute(ctx context.Context, queryText string, rc *RunContext) *Result
}

// normalizeScores min-max normalizes a slice of ScoredDoc scores to [0,1]
// in place, the same per-source normalization §4.8's bm25_hybrid and
// Fusion's RRF score term rely on.
func normalizeScores(docs []ScoredDoc) {
	if len(docs) == 0 {
		return
	}
	min, max := docs[0].Score, docs[0].Score
	for _, d := range docs {
		if d.Score < min {
			min = d.Score
		}
		if d.Score > max {
			max = d.Score
		}
	}
	spread := max - min
	if spread == 0 {
		for i := range docs {
			docs[i].Score = 1
		}
		return
	}
	for i := range docs {
		docs[i].Score = (docs[i].Score - min) / spread
	}
}

// truncateTopK trims a ScoredDoc slice to TopK entries after sorting by
// score desc (callers sort before calling).
func truncateTopK(docs []ScoredDoc) []ScoredDoc {
	if len(docs) > TopK {
		return docs[:TopK]
	}
	return docs
}
