package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refrain2333/legal-retrieval/internal/query"
	"github.com/refrain2333/legal-retrieval/internal/store"
)

// fakeBM25 is a minimal BM25Searcher double keyed by partition.
type fakeBM25 struct {
	hits map[store.Partition][]store.BM25Result
	err  error
}

func (f *fakeBM25) Search(terms []string, k int, partition store.Partition) ([]store.BM25Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[partition], nil
}

func TestBM25Hybrid_RequiresKeywords(t *testing.T) {
	rc := &RunContext{Extraction: query.Extraction{}}
	result := BM25Hybrid{}.Execute(context.Background(), "q", rc)
	assert.Equal(t, StatusError, result.Status)
}

func TestBM25Hybrid_CombinesDenseAndLexicalScores(t *testing.T) {
	vs := newFakeVectorStore(2)
	vs.put(store.PartitionArticle, "article_264", []float32{1, 0})
	vs.put(store.PartitionArticle, "article_133", []float32{0, 1})

	bm25 := &fakeBM25{hits: map[store.Partition][]store.BM25Result{
		store.PartitionArticle: {
			{ID: "article_264", Score: 5},
			{ID: "article_133", Score: 1},
		},
	}}

	rc := &RunContext{
		Embedder: &fakeEmbedder{vectors: map[string][]float32{"盗窃案": {1, 0}}},
		Vectors:  vs,
		BM25:     bm25,
		Extraction: query.Extraction{
			BM25Keywords: []query.WeightedKeyword{{Keyword: "盗窃", Weight: 1}},
		},
	}

	result := BM25Hybrid{}.Execute(context.Background(), "盗窃案", rc)

	require.Equal(t, StatusSuccess, result.Status)
	require.NotEmpty(t, result.Articles)
	assert.Equal(t, "article_264", result.Articles[0].DocID)
}

func TestBM25Hybrid_PropagatesSearchError(t *testing.T) {
	rc := &RunContext{
		Embedder: &fakeEmbedder{},
		Vectors:  newFakeVectorStore(2),
		BM25:     &fakeBM25{err: errors.New("bm25 backend unavailable")},
		Extraction: query.Extraction{
			BM25Keywords: []query.WeightedKeyword{{Keyword: "盗窃", Weight: 1}},
		},
	}

	result := BM25Hybrid{}.Execute(context.Background(), "盗窃", rc)

	assert.Equal(t, StatusError, result.Status)
}
