package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refrain2333/legal-retrieval/internal/config"
	"github.com/refrain2333/legal-retrieval/internal/kg"
	"github.com/refrain2333/legal-retrieval/internal/query"
)

func testConfig() config.RouterConfig {
	return config.RouterConfig{
		DefaultWeights:                 []float64{0.25, 0.20, 0.20, 0.15, 0.15, 0.05},
		NonCriminalConfidenceThreshold: 0.8,
	}
}

func TestSelect_EarlyExitsOnConfidentNonCriminal(t *testing.T) {
	r := New(testConfig())
	sel := r.Select(query.Classification{IsCriminalLaw: false, Confidence: 0.85}, query.Extraction{}, true)

	assert.True(t, sel.EarlyExit)
	assert.Equal(t, []string{BasicSemantic}, sel.Strategies)
	assert.InDelta(t, 1.0, sel.Weights[BasicSemantic], 1e-9)
}

func TestSelect_DoesNotEarlyExitBelowThreshold(t *testing.T) {
	r := New(testConfig())
	sel := r.Select(query.Classification{IsCriminalLaw: false, Confidence: 0.5}, query.Extraction{}, true)

	assert.False(t, sel.EarlyExit)
	assert.Contains(t, sel.Strategies, BasicSemantic)
}

func TestSelect_BM25HybridRequiresKeywords(t *testing.T) {
	r := New(testConfig())
	withKeywords := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.9},
		query.Extraction{BM25Keywords: []query.WeightedKeyword{{Keyword: "盗窃", Weight: 1}}}, true)
	assert.Contains(t, withKeywords.Strategies, BM25Hybrid)

	without := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.9}, query.Extraction{}, true)
	assert.NotContains(t, without.Strategies, BM25Hybrid)
}

func TestSelect_Query2docAndHydeRequireNonEmptyText(t *testing.T) {
	r := New(testConfig())
	sel := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.9},
		query.Extraction{Query2docEnhanced: "text", HydeHypothetical: "text"}, true)

	assert.Contains(t, sel.Strategies, Query2docEnhanced)
	assert.Contains(t, sel.Strategies, HydeEnhanced)
}

func TestSelect_KnowledgeGraphRequiresEntity(t *testing.T) {
	r := New(testConfig())
	sel := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.9, Entities: kg.Entities{Crimes: []string{"盗窃罪"}}},
		query.Extraction{}, true)

	assert.Contains(t, sel.Strategies, KnowledgeGraph)
}

func TestSelect_LLMEnhancedRequiresHealthAndConfidence(t *testing.T) {
	r := New(testConfig())

	unhealthy := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.9}, query.Extraction{}, false)
	assert.NotContains(t, unhealthy.Strategies, LLMEnhanced)

	lowConfidence := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.5}, query.Extraction{}, true)
	assert.NotContains(t, lowConfidence.Strategies, LLMEnhanced)

	eligible := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.9}, query.Extraction{}, true)
	assert.Contains(t, eligible.Strategies, LLMEnhanced)
}

func TestSelect_WeightsSumToOne(t *testing.T) {
	r := New(testConfig())
	sel := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.9, Entities: kg.Entities{Crimes: []string{"盗窃罪"}}},
		query.Extraction{
			BM25Keywords:      []query.WeightedKeyword{{Keyword: "盗窃", Weight: 1}},
			Query2docEnhanced: "a",
			HydeHypothetical:  "b",
		}, true)

	var total float64
	for _, w := range sel.Weights {
		total += w
	}
	require.Len(t, sel.Strategies, 6)
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestSelect_PreservesCanonicalOrder(t *testing.T) {
	r := New(testConfig())
	sel := r.Select(query.Classification{IsCriminalLaw: true, Confidence: 0.9},
		query.Extraction{BM25Keywords: []query.WeightedKeyword{{Keyword: "x", Weight: 1}}}, true)

	assert.Equal(t, []string{BasicSemantic, BM25Hybrid, LLMEnhanced}, sel.Strategies)
}
