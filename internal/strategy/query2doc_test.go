package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/refrain2333/legal-retrieval/internal/query"
	"github.com/refrain2333/legal-retrieval/internal/store"
)

func TestQuery2docEnhanced_RequiresNonEmptyText(t *testing.T) {
	rc := &RunContext{Extraction: query.Extraction{}}
	result := Query2docEnhanced{}.Execute(context.Background(), "q", rc)
	assert.Equal(t, StatusError, result.Status)
}

func TestQuery2docEnhanced_EmbedsConcatenatedText(t *testing.T) {
	vs := newFakeVectorStore(2)
	vs.put(store.PartitionArticle, "article_264", []float32{0, 1})
	combined := "盗窃" + querySeparator + "构成盗窃罪的法律要件"

	rc := &RunContext{
		Embedder:   &fakeEmbedder{vectors: map[string][]float32{combined: {0, 1}}},
		Vectors:    vs,
		Extraction: query.Extraction{Query2docEnhanced: "构成盗窃罪的法律要件"},
	}

	result := Query2docEnhanced{}.Execute(context.Background(), "盗窃", rc)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "article_264", result.Articles[0].DocID)
}

func TestHydeEnhanced_RequiresNonEmptyHypothetical(t *testing.T) {
	rc := &RunContext{Extraction: query.Extraction{}}
	result := HydeEnhanced{}.Execute(context.Background(), "q", rc)
	assert.Equal(t, StatusError, result.Status)
}

func TestHydeEnhanced_EmbedsHypotheticalDirectly(t *testing.T) {
	vs := newFakeVectorStore(2)
	vs.put(store.PartitionArticle, "article_133", []float32{1, 0})
	hypo := "被告人违反交通运输管理法规，发生重大事故"

	rc := &RunContext{
		Embedder:   &fakeEmbedder{vectors: map[string][]float32{hypo: {1, 0}}},
		Vectors:    vs,
		Extraction: query.Extraction{HydeHypothetical: hypo},
	}

	result := HydeEnhanced{}.Execute(context.Background(), "交通肇事", rc)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "article_133", result.Articles[0].DocID)
}
