package strategy

import "context"

// querySeparator joins the original query and the LLM-generated pseudo
// document before encoding (§4.8).
const querySeparator = "\n[SEP]\n"

// Query2docEnhanced encodes `original || SEP || pseudo_doc` and searches
// both partitions by cosine similarity (§4.8). Requires a non-empty
// Query2docEnhanced text from Extraction; the Router only selects this
// strategy when that holds.
type Query2docEnhanced struct{}

func (Query2docEnhanced) Name() string { return "query2doc_enhanced" }

func (Query2docEnhanced) Execute(ctx context.Context, queryText string, rc *RunContext) *Result {
	if rc.Extraction.Query2docEnhanced == "" {
		return errorResult("query2doc_enhanced text unavailable")
	}
	vec, err := rc.Embedder.Embed(ctx, queryText+querySeparator+rc.Extraction.Query2docEnhanced)
	if err != nil {
		return errorResult("embed query2doc text: " + err.Error())
	}
	return searchBothPartitions(rc, vec, nil)
}

// HydeEnhanced encodes the LLM-generated hypothetical answer and searches
// both partitions by cosine similarity (§4.8).
type HydeEnhanced struct{}

func (HydeEnhanced) Name() string { return "hyde_enhanced" }

func (HydeEnhanced) Execute(ctx context.Context, queryText string, rc *RunContext) *Result {
	if rc.Extraction.HydeHypothetical == "" {
		return errorResult("hyde_hypothetical text unavailable")
	}
	vec, err := rc.Embedder.Embed(ctx, rc.Extraction.HydeHypothetical)
	if err != nil {
		return errorResult("embed hyde text: " + err.Error())
	}
	return searchBothPartitions(rc, vec, nil)
}
