package strategy

import (
	"context"
	"sort"

	"github.com/refrain2333/legal-retrieval/internal/store"
)

// denseWeight/bm25Weight implement §4.8's bm25_hybrid combination:
// 0.6*dense + 0.4*bm25, applied after per-source min-max normalization.
const (
	denseWeight = 0.6
	bm25Weight  = 0.4
)

// BM25Hybrid runs lexical search on the extracted BM25 keywords and dense
// search on the original query, combining per-document scores (§4.8).
// Requires non-empty BM25Keywords; the Router only selects this strategy
// when that holds.
type BM25Hybrid struct{}

func (BM25Hybrid) Name() string { return "bm25_hybrid" }

func (BM25Hybrid) Execute(ctx context.Context, queryText string, rc *RunContext) *Result {
	if len(rc.Extraction.BM25Keywords) == 0 {
		return errorResult("bm25_keywords unavailable")
	}

	vec, err := rc.Embedder.Embed(ctx, queryText)
	if err != nil {
		return errorResult("embed query: " + err.Error())
	}

	terms := make([]string, len(rc.Extraction.BM25Keywords))
	for i, kw := range rc.Extraction.BM25Keywords {
		terms[i] = kw.Keyword
	}

	articles, err := combinePartition(rc, vec, terms, store.PartitionArticle)
	if err != nil {
		return errorResult("combine article partition: " + err.Error())
	}
	cases, err := combinePartition(rc, vec, terms, store.PartitionCase)
	if err != nil {
		return errorResult("combine case partition: " + err.Error())
	}

	return &Result{Articles: articles, Cases: cases, Status: StatusSuccess}
}

func combinePartition(rc *RunContext, vec []float32, terms []string, partition store.Partition) ([]ScoredDoc, error) {
	dense, err := searchPartition(rc.Vectors, vec, partition, nil)
	if err != nil {
		return nil, err
	}
	bm25Hits, err := rc.BM25.Search(terms, TopK*2, partition)
	if err != nil {
		return nil, err
	}
	bm25Docs := make([]ScoredDoc, len(bm25Hits))
	for i, h := range bm25Hits {
		bm25Docs[i] = ScoredDoc{DocID: h.ID, Score: h.Score}
	}

	normalizeScores(dense)
	normalizeScores(bm25Docs)

	combined := make(map[string]float64, len(dense)+len(bm25Docs))
	for _, d := range dense {
		combined[d.DocID] += d.Score * denseWeight
	}
	for _, d := range bm25Docs {
		combined[d.DocID] += d.Score * bm25Weight
	}

	out := make([]ScoredDoc, 0, len(combined))
	for id, score := range combined {
		out = append(out, ScoredDoc{DocID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	return truncateTopK(out), nil
}
