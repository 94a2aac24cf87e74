package strategy

import (
	"context"
	"sort"

	"github.com/refrain2333/legal-retrieval/internal/document"
	"github.com/refrain2333/legal-retrieval/internal/store"
)

// edgeConfidenceWeight/cosineWeight implement §4.8's knowledge_graph
// combination: 0.7*edge_confidence + 0.3*cosine.
const (
	edgeConfidenceWeight = 0.7
	cosineWeight         = 0.3

	maxRelatedArticlesPerCrime = 50
	maxCasePairs               = 10
	maxCasesPerPair            = 10
)

// KnowledgeGraph expands the detected crime/article entities into
// neighboring articles and cited cases, scoring each candidate as
// 0.7*edge_confidence + 0.3*cosine(query, candidate) (§4.8). Requires at
// least one detected entity; the Router only selects this strategy when
// that holds.
type KnowledgeGraph struct{}

func (KnowledgeGraph) Name() string { return "knowledge_graph" }

func (KnowledgeGraph) Execute(ctx context.Context, queryText string, rc *RunContext) *Result {
	entities := rc.Classification.Entities
	if len(entities.Crimes) == 0 && len(entities.Articles) == 0 {
		return errorResult("no crime/article entities detected")
	}

	vec, err := rc.Embedder.Embed(ctx, queryText)
	if err != nil {
		return errorResult("embed query: " + err.Error())
	}

	type pair struct {
		crime      string
		article    int
		confidence float64
	}
	var pairs []pair
	articleConfidence := make(map[int]float64)

	for _, crime := range entities.Crimes {
		for _, rel := range rc.Graph.RelatedArticles(crime, maxRelatedArticlesPerCrime) {
			pairs = append(pairs, pair{crime: rel.Crime, article: rel.Article, confidence: rel.Confidence})
			if rel.Confidence > articleConfidence[rel.Article] {
				articleConfidence[rel.Article] = rel.Confidence
			}
		}
	}
	for _, article := range entities.Articles {
		for _, rel := range rc.Graph.RelatedCrimes(article, maxRelatedArticlesPerCrime) {
			pairs = append(pairs, pair{crime: rel.Crime, article: rel.Article, confidence: rel.Confidence})
			if rel.Confidence > articleConfidence[rel.Article] {
				articleConfidence[rel.Article] = rel.Confidence
			}
		}
	}

	articles := make([]ScoredDoc, 0, len(articleConfidence))
	for articleNum, confidence := range articleConfidence {
		docID := document.ArticleID(articleNum)
		cosine, ok := rc.Vectors.CosineTo(store.PartitionArticle, docID, vec)
		if !ok {
			continue
		}
		score := confidence*edgeConfidenceWeight + cosine*cosineWeight
		articles = append(articles, ScoredDoc{DocID: docID, Score: score})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].confidence != pairs[j].confidence {
			return pairs[i].confidence > pairs[j].confidence
		}
		if pairs[i].crime != pairs[j].crime {
			return pairs[i].crime < pairs[j].crime
		}
		return pairs[i].article < pairs[j].article
	})
	if len(pairs) > maxCasePairs {
		pairs = pairs[:maxCasePairs]
	}

	caseConfidence := make(map[string]float64)
	for _, p := range pairs {
		for _, caseID := range rc.Graph.CasesFor(p.crime, p.article, maxCasesPerPair) {
			if p.confidence > caseConfidence[caseID] {
				caseConfidence[caseID] = p.confidence
			}
		}
	}

	cases := make([]ScoredDoc, 0, len(caseConfidence))
	for caseID, confidence := range caseConfidence {
		docID := document.CaseDocID(caseID)
		cosine, ok := rc.Vectors.CosineTo(store.PartitionCase, docID, vec)
		if !ok {
			continue
		}
		score := confidence*edgeConfidenceWeight + cosine*cosineWeight
		cases = append(cases, ScoredDoc{DocID: docID, Score: score})
	}

	sortByScoreDescIDAsc(articles)
	sortByScoreDescIDAsc(cases)

	return &Result{
		Articles: truncateTopK(articles),
		Cases:    truncateTopK(cases),
		Status:   StatusSuccess,
	}
}

func sortByScoreDescIDAsc(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}
