package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/cjk"
	"github.com/blevesearch/bleve/v2/mapping"

	apperrors "github.com/refrain2333/legal-retrieval/internal/errors"
)

// BM25Result is one scored hit from a BM25 search, min-max normalized to
// [0,1] per query as required by §4.3.
type BM25Result struct {
	ID    string
	Score float64
}

// bm25Document is the indexed field shape: title and content are combined
// for scoring per §4.3 ("tokenized form of title + content").
type bm25Document struct {
	Text string `json:"text"`
}

// BleveBM25Index wraps Bleve v2, using its bundled CJK analyzer (bigram
// segmentation over Chinese text, the "character n-gram fallback" §4.3
// calls for) in place of the teacher's code-identifier tokenizer
// (internal/store/bm25.go's code_tokenizer/code_stop registrations, grounded
// on source-symbol splitting, have no meaning for legal prose).
type BleveBM25Index struct {
	mu         sync.RWMutex
	partitions map[Partition]bleve.Index
}

// NewBleveBM25Index builds two in-memory Bleve indexes, one per partition,
// mirroring the vector store's article/case split so both stores cover the
// same ID set within a partition (§8 invariant).
func NewBleveBM25Index() (*BleveBM25Index, error) {
	idx := &BleveBM25Index{partitions: make(map[Partition]bleve.Index, 2)}
	for _, p := range []Partition{PartitionArticle, PartitionCase} {
		m, err := buildIndexMapping()
		if err != nil {
			return nil, apperrors.Internal("build bm25 index mapping", err)
		}
		bi, err := bleve.NewMemOnly(m)
		if err != nil {
			return nil, apperrors.Internal("create bm25 index", err)
		}
		idx.partitions[p] = bi
	}
	return idx, nil
}

func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = cjk.AnalyzerName

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", textField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = docMapping
	m.DefaultAnalyzer = cjk.AnalyzerName
	return m, nil
}

// Index adds or replaces documents in a partition, keyed by doc_id.
func (b *BleveBM25Index) Index(partition Partition, id, title, content string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bi, ok := b.partitions[partition]
	if !ok {
		return apperrors.Internal(fmt.Sprintf("unknown partition %q", partition), nil)
	}
	doc := bm25Document{Text: title + "\n" + content}
	if err := bi.Index(id, doc); err != nil {
		return apperrors.Internal(fmt.Sprintf("index document %q", id), err)
	}
	return nil
}

// Search runs a BM25 query over a partition and min-max normalizes scores
// to [0,1]. An empty term list yields an empty result, not an error (§4.3).
func (b *BleveBM25Index) Search(terms []string, k int, partition Partition) ([]BM25Result, error) {
	if len(terms) == 0 {
		return []BM25Result{}, nil
	}
	b.mu.RLock()
	bi, ok := b.partitions[partition]
	b.mu.RUnlock()
	if !ok {
		return nil, apperrors.Internal(fmt.Sprintf("unknown partition %q", partition), nil)
	}

	queryStr := joinTerms(terms)
	q := bleve.NewMatchQuery(queryStr)
	q.SetField("text")
	req := bleve.NewSearchRequestOptions(q, k, 0, false)

	result, err := bi.Search(req)
	if err != nil {
		return nil, apperrors.Internal("bm25 search", err)
	}

	out := make([]BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, BM25Result{ID: hit.ID, Score: hit.Score})
	}
	normalizeScores(out)
	sortBM25(out)
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// IDs returns every document ID held in a partition, for startup
// consistency checks (§8 invariant).
func (b *BleveBM25Index) IDs(partition Partition) ([]string, error) {
	b.mu.RLock()
	bi, ok := b.partitions[partition]
	b.mu.RUnlock()
	if !ok {
		return nil, apperrors.Internal(fmt.Sprintf("unknown partition %q", partition), nil)
	}

	count, err := bi.DocCount()
	if err != nil {
		return nil, apperrors.Internal("count bm25 documents", err)
	}
	if count == 0 {
		return []string{}, nil
	}

	matchAll := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequestOptions(matchAll, int(count), 0, false)
	result, err := bi.Search(req)
	if err != nil {
		return nil, apperrors.Internal("list bm25 documents", err)
	}
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func joinTerms(terms []string) string {
	out := terms[0]
	for _, t := range terms[1:] {
		out += " " + t
	}
	return out
}

func normalizeScores(results []BM25Result) {
	if len(results) == 0 {
		return
	}
	min, max := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}
	if max == min {
		for i := range results {
			results[i].Score = 1
		}
		return
	}
	for i := range results {
		results[i].Score = (results[i].Score - min) / (max - min)
	}
}

func sortBM25(results []BM25Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}
