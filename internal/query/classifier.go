// Package query implements Query Understanding (C6, §4.6): classification
// of whether a query concerns criminal law, and extraction of crime/article
// entities, BM25 keywords, and LLM-generated query2doc/HyDE text. Every
// sub-operation degrades to a rule-based or empty fallback when the LLM is
// unavailable, the way the teacher's ContextGenerator interface (see
// internal/index/contextual.go) always carries a FallbackOnly mode rather
// than propagating an LLM outage to the caller.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/refrain2333/legal-retrieval/internal/kg"
)

// Generator is the subset of internal/llm.Client's contract Query
// Understanding depends on, kept as a local interface so Classifier and
// Extractor can be tested without a real provider.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Classification is Classifier's output (§4.6).
type Classification struct {
	IsCriminalLaw bool
	Confidence    float64
	Reasoning     string
	Entities      kg.Entities
}

// Classifier decides whether a query concerns criminal law.
type Classifier struct {
	llmClient Generator
	graph     *kg.Graph
}

// NewClassifier builds a Classifier. llmClient may be nil to force the rule
// fallback unconditionally (e.g. when the service is started with LLM
// disabled).
func NewClassifier(llmClient Generator, graph *kg.Graph) *Classifier {
	return &Classifier{llmClient: llmClient, graph: graph}
}

const classificationPrompt = `你是中国刑法检索系统的查询分类器。判断下面的用户问题是否与刑事法律相关。
只输出 JSON，格式为 {"is_criminal_law": true/false, "confidence": 0到1之间的小数, "reasoning": "一句话说明"}。

用户问题：%s`

// Classify decides is_criminal_law via an LLM prompt, falling back to a
// rule scanning the query for KG crime/article entities when the LLM is
// unavailable or returns an unparseable response (§4.6).
func (c *Classifier) Classify(ctx context.Context, queryText string) Classification {
	entities := detectEntities(queryText, c.graph)

	if c.llmClient != nil {
		if text, err := c.llmClient.Generate(ctx, fmt.Sprintf(classificationPrompt, queryText), 200, 0.0); err == nil {
			if cl, ok := parseClassificationResponse(text); ok {
				cl.Entities = entities
				return cl
			}
		}
	}

	return ruleBasedClassification(entities)
}

// ruleBasedClassification implements the exact fallback formula from §4.6:
// is_criminal_law = (match_count > 0), confidence = min(1, 0.4 + 0.2*match_count).
func ruleBasedClassification(entities kg.Entities) Classification {
	matchCount := len(entities.Crimes) + len(entities.Articles)
	confidence := 0.4 + 0.2*float64(matchCount)
	if confidence > 1 {
		confidence = 1
	}
	reasoning := "rule fallback: no crime or article entity detected"
	if matchCount > 0 {
		reasoning = "rule fallback: matched crime/article entities in knowledge graph"
	}
	return Classification{
		IsCriminalLaw: matchCount > 0,
		Confidence:    confidence,
		Reasoning:     reasoning,
		Entities:      entities,
	}
}

type classificationJSON struct {
	IsCriminalLaw bool    `json:"is_criminal_law"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

func parseClassificationResponse(text string) (Classification, bool) {
	var parsed classificationJSON
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		return Classification{}, false
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return Classification{
		IsCriminalLaw: parsed.IsCriminalLaw,
		Confidence:    parsed.Confidence,
		Reasoning:     parsed.Reasoning,
	}, true
}

// extractJSONObject trims any leading/trailing prose a chat model tends to
// wrap its JSON answer in, returning the first balanced {...} span.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

// crimeArticlePattern matches a bare statute reference like "第264条" or
// "刑法第133条", used by detectEntities alongside the KG's crime-name gazetteer.
var crimeArticlePattern = regexp.MustCompile(`第\s*([0-9]+)\s*条`)

// detectEntities scans queryText for KG crime names and article references,
// the shared gazetteer both Classification's rule fallback and Extraction
// use (§4.6, §4.7's knowledge_graph gating rule).
func detectEntities(queryText string, graph *kg.Graph) kg.Entities {
	var entities kg.Entities
	if graph == nil {
		return entities
	}

	seenCrimes := make(map[string]bool)
	for _, crime := range graph.CrimeNames() {
		if crime != "" && strings.Contains(queryText, crime) && !seenCrimes[crime] {
			seenCrimes[crime] = true
			entities.Crimes = append(entities.Crimes, crime)
		}
	}

	seenArticles := make(map[int]bool)
	for _, m := range crimeArticlePattern.FindAllStringSubmatch(queryText, -1) {
		n := atoiSafe(m[1])
		if n > 0 && !seenArticles[n] {
			seenArticles[n] = true
			entities.Articles = append(entities.Articles, n)
		}
	}
	return entities
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
