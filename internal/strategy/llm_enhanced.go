package strategy

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/refrain2333/legal-retrieval/internal/store"
)

// maxLLMPhrasings caps the number of alternative phrasings llm_enhanced
// generates and searches, per §4.8.
const maxLLMPhrasings = 3

const llmEnhancedPrompt = `你是一名中国刑法检索助手。请将下面的用户问题改写为最多三种不同的法律检索表述，
每种表述另起一行，不要编号，不要附加任何解释。

用户问题：%s`

// LLMEnhanced asks the LLM for up to three alternative legal phrasings of
// the query, embeds and searches each, and keeps each document's maximum
// score across phrasings (§4.8). Requires a healthy LLM and
// classification confidence >= 0.6; the Router only selects this strategy
// when that holds.
type LLMEnhanced struct{}

func (LLMEnhanced) Name() string { return "llm_enhanced" }

func (LLMEnhanced) Execute(ctx context.Context, queryText string, rc *RunContext) *Result {
	if rc.LLM == nil {
		return errorResult("llm unavailable")
	}

	text, err := rc.LLM.Generate(ctx, fmt.Sprintf(llmEnhancedPrompt, queryText), 256, 0.7)
	if err != nil {
		return errorResult("generate phrasings: " + err.Error())
	}
	phrasings := parsePhrasings(text, queryText)
	if len(phrasings) == 0 {
		return errorResult("no usable phrasings generated")
	}

	articleBest := make(map[string]float64)
	caseBest := make(map[string]float64)

	for _, phrasing := range phrasings {
		vec, err := rc.Embedder.Embed(ctx, phrasing)
		if err != nil {
			continue
		}
		articles, err := searchPartition(rc.Vectors, vec, store.PartitionArticle, nil)
		if err == nil {
			keepMax(articleBest, articles)
		}
		cases, err := searchPartition(rc.Vectors, vec, store.PartitionCase, nil)
		if err == nil {
			keepMax(caseBest, cases)
		}
	}

	if len(articleBest) == 0 && len(caseBest) == 0 {
		return errorResult("embedding failed for all phrasings")
	}

	articles := toScoredDocs(articleBest)
	cases := toScoredDocs(caseBest)
	sortByScoreDescIDAsc(articles)
	sortByScoreDescIDAsc(cases)

	return &Result{
		Articles: truncateTopK(articles),
		Cases:    truncateTopK(cases),
		Status:   StatusSuccess,
	}
}

func keepMax(best map[string]float64, docs []ScoredDoc) {
	for _, d := range docs {
		if d.Score > best[d.DocID] {
			best[d.DocID] = d.Score
		}
	}
}

func toScoredDocs(best map[string]float64) []ScoredDoc {
	out := make([]ScoredDoc, 0, len(best))
	for id, score := range best {
		out = append(out, ScoredDoc{DocID: id, Score: score})
	}
	return out
}

// parsePhrasings splits the LLM's newline-separated response into at most
// maxLLMPhrasings non-empty phrasings, falling back to the original query
// text when the response is empty or whitespace-only.
func parsePhrasings(text, fallback string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() && len(out) < maxLLMPhrasings {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 && strings.TrimSpace(fallback) != "" {
		out = append(out, fallback)
	}
	return out
}
