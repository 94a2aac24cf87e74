// Package fusion implements weighted Reciprocal Rank Fusion (C9, §4.9):
// combining each selected strategy's ranked results into one ordered list
// per partition, annotated with contributing sources and a confidence
// score, then building the grounding bundle and natural-language answer
// handed back to the caller.
package fusion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/refrain2333/legal-retrieval/internal/config"
	"github.com/refrain2333/legal-retrieval/internal/document"
	"github.com/refrain2333/legal-retrieval/internal/strategy"
)

// groundingArticles/groundingCases bound the grounding bundle handed to the
// answer generator (§4.9: "top 5 articles + top 5 cases").
const (
	groundingArticles = 5
	groundingCases    = 5
)

// SourceResult is one strategy's contribution for one partition, the input
// Fuse combines (§4.9).
type SourceResult struct {
	Strategy string
	Weight   float64
	Docs     []strategy.ScoredDoc
}

// Fused is one document's fused ranking (§4.9): the RRF+score blend, the
// strategies that surfaced it, and a confidence derived from how many of
// the selected strategies agreed.
type Fused struct {
	DocID       string
	Score       float64
	Sources     []string
	SourceCount int
	Confidence  float64
}

// Generator is the subset of internal/llm.Client the answer stage depends
// on.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Fuser combines per-strategy ScoredDoc lists into one ranked list per
// partition (§4.9's weighted RRF formula) and builds the grounding
// bundle + answer text handed back to the caller.
type Fuser struct {
	cfg config.FusionConfig
	llm Generator
}

// New builds a Fuser from the fusion configuration and an optional answer
// generator (nil is valid: Answer then falls back to a deterministic
// template, §4.9's degradation rule).
func New(cfg config.FusionConfig, llm Generator) *Fuser {
	return &Fuser{cfg: cfg, llm: llm}
}

// Fuse runs weighted RRF over one partition's per-strategy results (§4.9):
//
//	fusion_score(doc) = sum_s w_s * 1/(rank_s(doc)+k) + lambda*avg_normalized_score(doc)
//
// Ties break by (a) contributing-strategy count desc, (b) avg normalized
// score desc, (c) doc_id asc, the deterministic order §8's idempotence
// property requires.
func (f *Fuser) Fuse(sources []SourceResult, totalSelected int) []Fused {
	type acc struct {
		rrfSum     float64
		scoreSum   float64
		strategies map[string]struct{}
	}
	docs := make(map[string]*acc)

	k := float64(f.cfg.RRFConstant)
	lambda := f.cfg.ScoreWeight

	for _, src := range sources {
		ranked := make([]strategy.ScoredDoc, len(src.Docs))
		copy(ranked, src.Docs)
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].Score != ranked[j].Score {
				return ranked[i].Score > ranked[j].Score
			}
			return ranked[i].DocID < ranked[j].DocID
		})

		for rank, d := range ranked {
			a, ok := docs[d.DocID]
			if !ok {
				a = &acc{strategies: make(map[string]struct{})}
				docs[d.DocID] = a
			}
			a.rrfSum += src.Weight * (1 / (float64(rank+1) + k))
			a.scoreSum += d.Score
			a.strategies[src.Strategy] = struct{}{}
		}
	}

	out := make([]Fused, 0, len(docs))
	avgByDoc := make(map[string]float64, len(docs))
	for docID, a := range docs {
		avgScore := a.scoreSum / float64(len(a.strategies))
		avgByDoc[docID] = avgScore
		sourceCount := len(a.strategies)
		confidence := 1.0
		if totalSelected > 0 {
			confidence = float64(sourceCount) / float64(totalSelected)
			if confidence > 1 {
				confidence = 1
			}
		}
		contributors := make([]string, 0, sourceCount)
		for s := range a.strategies {
			contributors = append(contributors, s)
		}
		sort.Strings(contributors)

		out = append(out, Fused{
			DocID:       docID,
			Score:       a.rrfSum + lambda*avgScore,
			Sources:     contributors,
			SourceCount: sourceCount,
			Confidence:  confidence,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].SourceCount != out[j].SourceCount {
			return out[i].SourceCount > out[j].SourceCount
		}
		if avgByDoc[out[i].DocID] != avgByDoc[out[j].DocID] {
			return avgByDoc[out[i].DocID] > avgByDoc[out[j].DocID]
		}
		return out[i].DocID < out[j].DocID
	})

	if f.cfg.TopN > 0 && len(out) > f.cfg.TopN {
		out = out[:f.cfg.TopN]
	}
	return out
}

// GroundingBundle is the top articles/cases handed to answer generation
// (§4.9).
type GroundingBundle struct {
	Articles []*document.Document
	Cases    []*document.Document
}

// BuildGrounding resolves the top fused article/case IDs into documents via
// the corpus, capped to groundingArticles/groundingCases (§4.9).
func BuildGrounding(articles, cases []Fused, lookup func(id string) (*document.Document, bool)) GroundingBundle {
	bundle := GroundingBundle{}
	for i, f := range articles {
		if i >= groundingArticles {
			break
		}
		if doc, ok := lookup(f.DocID); ok {
			bundle.Articles = append(bundle.Articles, doc)
		}
	}
	for i, f := range cases {
		if i >= groundingCases {
			break
		}
		if doc, ok := lookup(f.DocID); ok {
			bundle.Cases = append(bundle.Cases, doc)
		}
	}
	return bundle
}

const answerPrompt = `你是一名中国刑法检索助手。请根据以下法条和案例依据，针对用户问题给出一段简明的中文回答，
不要编造依据中不存在的信息。

用户问题：%s

法条依据：
%s

案例依据：
%s`

// Answer generates the natural-language answer for a query from its
// grounding bundle (§4.9). Falls back to a deterministic template when no
// LLM is configured or generation fails, rather than returning an error:
// an unreferenced answer is not the pipeline's contract to fail on.
func (f *Fuser) Answer(ctx context.Context, queryText string, bundle GroundingBundle) string {
	if f.llm == nil {
		return templateAnswer(bundle)
	}

	prompt := fmt.Sprintf(answerPrompt, queryText, summarizeDocs(bundle.Articles), summarizeDocs(bundle.Cases))
	text, err := f.llm.Generate(ctx, prompt, 512, 0.3)
	if err != nil || strings.TrimSpace(text) == "" {
		return templateAnswer(bundle)
	}
	return text
}

func summarizeDocs(docs []*document.Document) string {
	if len(docs) == 0 {
		return "（无）"
	}
	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "- %s：%s\n", d.Title, document.ContentPreview(d.Content, 120))
	}
	return sb.String()
}

// templateAnswer builds a deterministic, LLM-free answer directly from the
// grounding bundle, the degradation path §4.9 requires when the LLM is
// unavailable.
func templateAnswer(bundle GroundingBundle) string {
	if len(bundle.Articles) == 0 && len(bundle.Cases) == 0 {
		return "未找到相关法条或案例依据。"
	}
	var sb strings.Builder
	sb.WriteString("根据检索到的法条与案例：\n")
	for _, a := range bundle.Articles {
		fmt.Fprintf(&sb, "%s\n", a.Title)
	}
	for _, c := range bundle.Cases {
		fmt.Fprintf(&sb, "参考案例：%s\n", c.Title)
	}
	return sb.String()
}
