package fusion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refrain2333/legal-retrieval/internal/config"
	"github.com/refrain2333/legal-retrieval/internal/document"
	"github.com/refrain2333/legal-retrieval/internal/strategy"
)

func testConfig() config.FusionConfig {
	return config.FusionConfig{RRFConstant: 60, ScoreWeight: 0.3, TopN: 10}
}

func TestFuse_RanksDocumentAgreedOnByMoreStrategiesHigher(t *testing.T) {
	f := New(testConfig(), nil)

	sources := []SourceResult{
		{Strategy: "basic_semantic", Weight: 0.5, Docs: []strategy.ScoredDoc{
			{DocID: "article_264", Score: 0.9},
			{DocID: "article_133", Score: 0.8},
		}},
		{Strategy: "bm25_hybrid", Weight: 0.5, Docs: []strategy.ScoredDoc{
			{DocID: "article_264", Score: 0.7},
		}},
	}

	fused := f.Fuse(sources, 2)

	require.Len(t, fused, 2)
	assert.Equal(t, "article_264", fused[0].DocID)
	assert.Equal(t, 2, fused[0].SourceCount)
	assert.Equal(t, 1.0, fused[0].Confidence)
	assert.Equal(t, 1, fused[1].SourceCount)
}

func TestFuse_TieBreaksByDocIDAscending(t *testing.T) {
	f := New(testConfig(), nil)

	sources := []SourceResult{
		{Strategy: "basic_semantic", Weight: 1, Docs: []strategy.ScoredDoc{
			{DocID: "article_999", Score: 0.5},
			{DocID: "article_001", Score: 0.5},
		}},
	}

	fused := f.Fuse(sources, 1)

	require.Len(t, fused, 2)
	assert.Equal(t, "article_001", fused[0].DocID)
	assert.Equal(t, "article_999", fused[1].DocID)
}

func TestFuse_RespectsTopN(t *testing.T) {
	cfg := testConfig()
	cfg.TopN = 1
	f := New(cfg, nil)

	sources := []SourceResult{
		{Strategy: "basic_semantic", Weight: 1, Docs: []strategy.ScoredDoc{
			{DocID: "a", Score: 0.9},
			{DocID: "b", Score: 0.1},
		}},
	}

	fused := f.Fuse(sources, 1)

	assert.Len(t, fused, 1)
	assert.Equal(t, "a", fused[0].DocID)
}

func TestBuildGrounding_CapsToFiveEach(t *testing.T) {
	var articles []Fused
	for i := 0; i < 8; i++ {
		articles = append(articles, Fused{DocID: "article_" + string(rune('a'+i))})
	}
	lookup := func(id string) (*document.Document, bool) {
		return &document.Document{ID: id, Title: id}, true
	}

	bundle := BuildGrounding(articles, nil, lookup)

	assert.Len(t, bundle.Articles, groundingArticles)
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

func TestAnswer_UsesLLMWhenAvailable(t *testing.T) {
	f := New(testConfig(), &fakeGenerator{text: "这是生成的回答"})
	answer := f.Answer(context.Background(), "盗窃如何定罪", GroundingBundle{})
	assert.Equal(t, "这是生成的回答", answer)
}

func TestAnswer_FallsBackToTemplateOnLLMError(t *testing.T) {
	f := New(testConfig(), &fakeGenerator{err: errors.New("llm down")})
	bundle := GroundingBundle{Articles: []*document.Document{{Title: "中华人民共和国刑法第二百六十四条"}}}
	answer := f.Answer(context.Background(), "盗窃如何定罪", bundle)
	assert.Contains(t, answer, "第二百六十四条")
}

func TestAnswer_FallsBackToTemplateWithoutLLM(t *testing.T) {
	f := New(testConfig(), nil)
	answer := f.Answer(context.Background(), "盗窃如何定罪", GroundingBundle{})
	assert.Equal(t, "未找到相关法条或案例依据。", answer)
}
