package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refrain2333/legal-retrieval/internal/store"
)

type fakeLLM struct {
	text string
	err  error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestLLMEnhanced_RequiresLLM(t *testing.T) {
	rc := &RunContext{}
	result := LLMEnhanced{}.Execute(context.Background(), "q", rc)
	assert.Equal(t, StatusError, result.Status)
}

func TestLLMEnhanced_ErrorsWhenGenerationFails(t *testing.T) {
	rc := &RunContext{
		LLM:      &fakeLLM{err: errors.New("provider down")},
		Embedder: &fakeEmbedder{},
		Vectors:  newFakeVectorStore(2),
	}
	result := LLMEnhanced{}.Execute(context.Background(), "盗窃", rc)
	assert.Equal(t, StatusError, result.Status)
}

func TestLLMEnhanced_TakesMaxScoreAcrossPhrasings(t *testing.T) {
	vs := newFakeVectorStore(2)
	vs.put(store.PartitionArticle, "article_264", []float32{1, 0})

	rc := &RunContext{
		LLM: &fakeLLM{text: "盗窃如何定罪\n盗窃罪的量刑标准\n"},
		Embedder: &fakeEmbedder{vectors: map[string][]float32{
			"盗窃如何定罪":   {1, 0},
			"盗窃罪的量刑标准": {0, 1},
		}},
		Vectors: vs,
	}

	result := LLMEnhanced{}.Execute(context.Background(), "盗窃", rc)

	require.Equal(t, StatusSuccess, result.Status)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "article_264", result.Articles[0].DocID)
	assert.InDelta(t, 1.0, result.Articles[0].Score, 1e-9)
}

func TestParsePhrasings_FallsBackToOriginalQuery(t *testing.T) {
	phrasings := parsePhrasings("   \n  \n", "盗窃")
	require.Equal(t, []string{"盗窃"}, phrasings)
}

func TestParsePhrasings_CapsAtThreeLines(t *testing.T) {
	phrasings := parsePhrasings("a\nb\nc\nd\ne", "fallback")
	assert.Len(t, phrasings, 3)
}
