package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/refrain2333/legal-retrieval/internal/kg"
)

// IdentifiedCrime is one crime entity Extraction detected, carrying the
// confidence/reasoning triple §4.6 specifies.
type IdentifiedCrime struct {
	Name       string
	Confidence float64
	Reasoning  string
}

// WeightedKeyword is one BM25 keyword weighted by TF-IDF against the
// corpus's term statistics.
type WeightedKeyword struct {
	Keyword string
	Weight  float64
}

// Extraction is Extractor's output (§4.6).
type Extraction struct {
	IdentifiedCrimes  []IdentifiedCrime
	BM25Keywords      []WeightedKeyword
	Query2docEnhanced string
	HydeHypothetical  string
}

// maxBM25Keywords bounds the extracted keyword list (§4.6).
const maxBM25Keywords = 10

// CorpusStats carries the term-document statistics the extractor scores
// BM25 keywords against: document frequency per term and total document
// count, computed once at startup over the loaded corpus.
type CorpusStats struct {
	DocFreq  map[string]int
	NumDocs  int
}

// ComputeCorpusStats builds document-frequency statistics over a corpus's
// tokenized texts (title+content per document), the one-time startup
// computation NewExtractor's CorpusStats argument needs.
func ComputeCorpusStats(texts []string) CorpusStats {
	docFreq := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, term := range tokenize(text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}
	return CorpusStats{DocFreq: docFreq, NumDocs: len(texts)}
}

// Extractor produces identified crimes, BM25 keywords, and LLM-generated
// query2doc/HyDE text for a query (§4.6).
type Extractor struct {
	llmClient Generator
	graph     *kg.Graph
	stats     CorpusStats
}

// NewExtractor builds an Extractor. llmClient may be nil to force
// query2doc/HyDE to degrade to empty strings unconditionally.
func NewExtractor(llmClient Generator, graph *kg.Graph, stats CorpusStats) *Extractor {
	return &Extractor{llmClient: llmClient, graph: graph, stats: stats}
}

const query2docPrompt = `你是中国刑法检索系统的查询扩展器。针对下面的用户问题，写一段50到100字的虚构法律文书片段（可以是类似判决书摘要的文字），
使其在语义上尽可能贴近能够回答该问题的正式法律文本。只输出该文本本身，不要添加任何解释。

用户问题：%s`

const hydePrompt = `你是中国刑法检索系统的假设答案生成器。针对下面的用户问题，写一段100到200字的假设性法律答复，
就像这个问题已经被权威解答过一样。只输出该答复本身，不要添加任何解释。

用户问题：%s`

// Extract runs crime/article detection, BM25 keyword scoring, and (if an
// LLM is available) query2doc/HyDE generation (§4.6).
func (e *Extractor) Extract(ctx context.Context, queryText string) Extraction {
	entities := detectEntities(queryText, e.graph)

	extraction := Extraction{
		IdentifiedCrimes: identifiedCrimesFromEntities(entities, e.graph),
		BM25Keywords:     e.topKeywords(queryText),
	}

	if e.llmClient != nil {
		if text, err := e.llmClient.Generate(ctx, fmt.Sprintf(query2docPrompt, queryText), 150, 0.7); err == nil {
			extraction.Query2docEnhanced = strings.TrimSpace(text)
		}
		if text, err := e.llmClient.Generate(ctx, fmt.Sprintf(hydePrompt, queryText), 300, 0.7); err == nil {
			extraction.HydeHypothetical = strings.TrimSpace(text)
		}
	}

	return extraction
}

// identifiedCrimesFromEntities converts detected crime names into
// IdentifiedCrime records, using the KG's strongest article confidence for
// that crime as a stand-in confidence score.
func identifiedCrimesFromEntities(entities kg.Entities, graph *kg.Graph) []IdentifiedCrime {
	var out []IdentifiedCrime
	for _, crime := range entities.Crimes {
		confidence := 0.5
		if graph != nil {
			if related := graph.RelatedArticles(crime, 1); len(related) > 0 {
				confidence = related[0].Confidence
			}
		}
		out = append(out, IdentifiedCrime{
			Name:       crime,
			Confidence: confidence,
			Reasoning:  "matched against knowledge graph gazetteer",
		})
	}
	return out
}

// topKeywords tokenizes queryText into CJK bigrams and Latin words, scores
// each by TF-IDF against the corpus's document-frequency statistics, and
// returns the top maxBM25Keywords terms, weight-normalized to [0,1].
func (e *Extractor) topKeywords(queryText string) []WeightedKeyword {
	terms := tokenize(queryText)
	if len(terms) == 0 {
		return nil
	}

	tf := make(map[string]int)
	for _, t := range terms {
		tf[t]++
	}

	numDocs := e.stats.NumDocs
	if numDocs <= 0 {
		numDocs = 1
	}

	type scored struct {
		term  string
		score float64
	}
	var candidates []scored
	for term, freq := range tf {
		df := e.stats.DocFreq[term]
		idf := math.Log(float64(numDocs+1) / float64(df+1))
		if idf < 0 {
			idf = 0
		}
		candidates = append(candidates, scored{term: term, score: float64(freq) * (idf + 1)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].term < candidates[j].term
	})
	if len(candidates) > maxBM25Keywords {
		candidates = candidates[:maxBM25Keywords]
	}

	maxScore := candidates[0].score
	if maxScore <= 0 {
		maxScore = 1
	}
	out := make([]WeightedKeyword, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, WeightedKeyword{Keyword: c.term, Weight: c.score / maxScore})
	}
	return out
}

// tokenize splits text into CJK character bigrams (matching the BM25
// index's cjk bigram analyzer, §4.3) plus whitespace-delimited Latin/digit
// runs, lowercased.
func tokenize(text string) []string {
	runes := []rune(text)
	var terms []string
	var latin []rune

	flushLatin := func() {
		if len(latin) > 0 {
			terms = append(terms, strings.ToLower(string(latin)))
			latin = latin[:0]
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.Is(unicode.Han, r):
			flushLatin()
			if i+1 < len(runes) && unicode.Is(unicode.Han, runes[i+1]) {
				terms = append(terms, string(runes[i:i+2]))
			} else {
				terms = append(terms, string(r))
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			latin = append(latin, r)
		default:
			flushLatin()
		}
	}
	flushLatin()
	return terms
}
