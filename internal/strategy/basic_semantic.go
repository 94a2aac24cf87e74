package strategy

import (
	"context"
	"sort"

	"github.com/refrain2333/legal-retrieval/internal/store"
)

// BasicSemantic encodes the raw query and searches both partitions by
// cosine similarity (§4.8).
type BasicSemantic struct{}

func (BasicSemantic) Name() string { return "basic_semantic" }

func (BasicSemantic) Execute(ctx context.Context, queryText string, rc *RunContext) *Result {
	vec, err := rc.Embedder.Embed(ctx, queryText)
	if err != nil {
		return errorResult("embed query: " + err.Error())
	}
	return searchBothPartitions(rc, vec, nil)
}

// searchBothPartitions runs a VectorStore search (optionally filtered to
// ids) over both article and case partitions and assembles a Result;
// shared by basic_semantic, query2doc_enhanced, and hyde_enhanced, which
// differ only in how they build the query vector.
func searchBothPartitions(rc *RunContext, vec []float32, ids map[string]struct{}) *Result {
	var result Result

	articles, err := searchPartition(rc.Vectors, vec, store.PartitionArticle, ids)
	if err != nil {
		return errorResult("search article partition: " + err.Error())
	}
	cases, err := searchPartition(rc.Vectors, vec, store.PartitionCase, ids)
	if err != nil {
		return errorResult("search case partition: " + err.Error())
	}

	result.Articles = articles
	result.Cases = cases
	result.Status = StatusSuccess
	return &result
}

func searchPartition(vs store.VectorStore, vec []float32, partition store.Partition, ids map[string]struct{}) ([]ScoredDoc, error) {
	var (
		hits []store.VectorResult
		err  error
	)
	if ids != nil {
		hits, err = vs.SearchWithIDs(vec, TopK, partition, ids)
	} else {
		hits, err = vs.Search(vec, TopK, partition)
	}
	if err != nil {
		return nil, err
	}

	docs := make([]ScoredDoc, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, ScoredDoc{DocID: h.ID, Score: float64(h.Score)})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
	return docs, nil
}
