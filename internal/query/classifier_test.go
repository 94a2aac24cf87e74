package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refrain2333/legal-retrieval/internal/kg"
)

func testGraph(t *testing.T) *kg.Graph {
	t.Helper()
	g, err := kg.Build([]kg.MappingRow{
		{CaseID: "case_1", ArticleNumber: 264, Crime: "盗窃罪", Confidence: 0.9, IsPrimary: true},
		{CaseID: "case_2", ArticleNumber: 133, Crime: "交通肇事罪", Confidence: 0.85, IsPrimary: true},
	})
	require.NoError(t, err)
	return g
}

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestClassify_RuleFallback_NoEntities(t *testing.T) {
	c := NewClassifier(nil, testGraph(t))
	result := c.Classify(context.Background(), "今天天气怎么样")

	assert.False(t, result.IsCriminalLaw)
	assert.InDelta(t, 0.4, result.Confidence, 1e-9)
}

func TestClassify_RuleFallback_OneEntityMatch(t *testing.T) {
	c := NewClassifier(nil, testGraph(t))
	result := c.Classify(context.Background(), "我朋友犯了盗窃罪怎么办")

	assert.True(t, result.IsCriminalLaw)
	assert.InDelta(t, 0.6, result.Confidence, 1e-9)
}

func TestClassify_RuleFallback_ConfidenceCapsAtOne(t *testing.T) {
	c := NewClassifier(nil, testGraph(t))
	result := c.Classify(context.Background(), "盗窃罪和交通肇事罪还有第264条第133条")

	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestClassify_UsesLLMResponseWhenParseable(t *testing.T) {
	gen := &fakeGenerator{text: `{"is_criminal_law": true, "confidence": 0.95, "reasoning": "criminal matter"}`}
	c := NewClassifier(gen, testGraph(t))

	result := c.Classify(context.Background(), "盗窃罪量刑标准")
	assert.True(t, result.IsCriminalLaw)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.Equal(t, "criminal matter", result.Reasoning)
}

func TestClassify_FallsBackOnLLMError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("llm down")}
	c := NewClassifier(gen, testGraph(t))

	result := c.Classify(context.Background(), "盗窃罪量刑标准")
	assert.True(t, result.IsCriminalLaw)
}

func TestClassify_FallsBackOnUnparseableLLMResponse(t *testing.T) {
	gen := &fakeGenerator{text: "I'm not sure about this query."}
	c := NewClassifier(gen, testGraph(t))

	result := c.Classify(context.Background(), "盗窃罪量刑标准")
	assert.True(t, result.IsCriminalLaw)
}

func TestDetectEntities_MatchesArticleReference(t *testing.T) {
	entities := detectEntities("根据第264条规定", testGraph(t))
	require.Len(t, entities.Articles, 1)
	assert.Equal(t, 264, entities.Articles[0])
}
