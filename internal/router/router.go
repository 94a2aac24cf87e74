// Package router implements the Router (C7, §4.7): selects an ordered
// subset of the six retrieval strategies for a query and assigns each a
// renormalized weight, from the classification/extraction outputs of
// internal/query and the LLM Client's health.
package router

import (
	"github.com/refrain2333/legal-retrieval/internal/config"
	"github.com/refrain2333/legal-retrieval/internal/query"
)

// Strategy names, in the canonical order the default weight vector assumes
// (§4.7).
const (
	BasicSemantic      = "basic_semantic"
	BM25Hybrid         = "bm25_hybrid"
	Query2docEnhanced  = "query2doc_enhanced"
	HydeEnhanced       = "hyde_enhanced"
	KnowledgeGraph     = "knowledge_graph"
	LLMEnhanced        = "llm_enhanced"
)

// canonicalOrder is the strategy ordering the default weight vector indexes
// into; Select always evaluates (and, if chosen, orders) strategies in this
// sequence.
var canonicalOrder = []string{BasicSemantic, BM25Hybrid, Query2docEnhanced, HydeEnhanced, KnowledgeGraph, LLMEnhanced}

// Selection is the Router's output: the ordered strategy subset and each
// one's renormalized weight.
type Selection struct {
	Strategies []string
	Weights    map[string]float64
	// EarlyExit records whether the non-criminal-law early exit fired
	// (§4.7), informing the orchestrator's trace annotation.
	EarlyExit bool
}

// Router applies the rule table from §4.7.
type Router struct {
	cfg config.RouterConfig
}

// New builds a Router from its configuration.
func New(cfg config.RouterConfig) *Router {
	return &Router{cfg: cfg}
}

// Select applies the rule table to a classification and extraction result,
// plus whether the LLM is currently healthy (gating llm_enhanced).
func (r *Router) Select(classification query.Classification, extraction query.Extraction, llmHealthy bool) Selection {
	if !classification.IsCriminalLaw && classification.Confidence >= r.cfg.NonCriminalConfidenceThreshold {
		return Selection{
			Strategies: []string{BasicSemantic},
			Weights:    map[string]float64{BasicSemantic: 1.0},
			EarlyExit:  true,
		}
	}

	eligible := map[string]bool{
		BasicSemantic:     true,
		BM25Hybrid:        len(extraction.BM25Keywords) > 0,
		Query2docEnhanced: extraction.Query2docEnhanced != "",
		HydeEnhanced:      extraction.HydeHypothetical != "",
		KnowledgeGraph:    len(classification.Entities.Crimes) > 0 || len(classification.Entities.Articles) > 0,
		LLMEnhanced:       llmHealthy && classification.Confidence >= 0.6,
	}

	var selected []string
	for _, name := range canonicalOrder {
		if eligible[name] {
			selected = append(selected, name)
		}
	}

	return Selection{
		Strategies: selected,
		Weights:    renormalize(selected, r.cfg.DefaultWeights),
	}
}

// renormalize scales the default weight vector down to the selected subset
// so weights sum to 1 (§4.7).
func renormalize(selected []string, defaults []float64) map[string]float64 {
	weights := make(map[string]float64, len(selected))
	var total float64
	for _, name := range selected {
		w := defaultWeight(name, defaults)
		weights[name] = w
		total += w
	}
	if total <= 0 {
		return weights
	}
	for name, w := range weights {
		weights[name] = w / total
	}
	return weights
}

func defaultWeight(name string, defaults []float64) float64 {
	for i, n := range canonicalOrder {
		if n == name && i < len(defaults) {
			return defaults[i]
		}
	}
	return 0
}
