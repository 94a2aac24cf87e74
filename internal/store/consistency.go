package store

import (
	"fmt"
	"sort"
)

// InconsistencyType names the kind of ID-set mismatch QuickCheck found,
// generalizing the teacher's orphan/missing chunk check
// (internal/index/consistency.go) from a single chunk index to the
// vector-store/BM25-index pair over two corpus partitions.
type InconsistencyType string

const (
	// OrphanVector: an ID present in the vector store but not the corpus.
	OrphanVector InconsistencyType = "orphan_vector"
	// OrphanBM25: an ID present in the BM25 index but not the corpus.
	OrphanBM25 InconsistencyType = "orphan_bm25"
	// MissingVector: a corpus ID absent from the vector store.
	MissingVector InconsistencyType = "missing_vector"
	// MissingBM25: a corpus ID absent from the BM25 index.
	MissingBM25 InconsistencyType = "missing_bm25"
)

// Inconsistency records one mismatched document ID.
type Inconsistency struct {
	Type    InconsistencyType
	DocID   string
	Details string
}

// CheckResult is QuickCheck's report: the corpus is ready to serve iff
// Inconsistencies is empty.
type CheckResult struct {
	Checked         int
	Inconsistencies []Inconsistency
}

// QuickCheck compares the corpus ID set against the vector store and BM25
// index, partition by partition, implementing the §8 invariant "vector
// store and BM25 index cover the same ID set; sizes must match at startup
// or the service refuses to become ready."
func QuickCheck(corpusIDs map[Partition][]string, vs *FlatVectorStore, bm *BleveBM25Index) (CheckResult, error) {
	result := CheckResult{}

	for _, partition := range []Partition{PartitionArticle, PartitionCase} {
		corpusSet := toSet(corpusIDs[partition])
		vectorSet := toSet(vs.IDs(partition))
		bm25IDs, err := bm.IDs(partition)
		if err != nil {
			return result, err
		}
		bm25Set := toSet(bm25IDs)

		result.Checked += len(corpusSet)

		for id := range corpusSet {
			if _, ok := vectorSet[id]; !ok {
				result.Inconsistencies = append(result.Inconsistencies, Inconsistency{
					Type: MissingVector, DocID: id,
					Details: fmt.Sprintf("partition %s: corpus id missing from vector store", partition),
				})
			}
			if _, ok := bm25Set[id]; !ok {
				result.Inconsistencies = append(result.Inconsistencies, Inconsistency{
					Type: MissingBM25, DocID: id,
					Details: fmt.Sprintf("partition %s: corpus id missing from bm25 index", partition),
				})
			}
		}
		for id := range vectorSet {
			if _, ok := corpusSet[id]; !ok {
				result.Inconsistencies = append(result.Inconsistencies, Inconsistency{
					Type: OrphanVector, DocID: id,
					Details: fmt.Sprintf("partition %s: vector store id not in corpus", partition),
				})
			}
		}
		for id := range bm25Set {
			if _, ok := corpusSet[id]; !ok {
				result.Inconsistencies = append(result.Inconsistencies, Inconsistency{
					Type: OrphanBM25, DocID: id,
					Details: fmt.Sprintf("partition %s: bm25 index id not in corpus", partition),
				})
			}
		}
	}

	sort.Slice(result.Inconsistencies, func(i, j int) bool {
		return result.Inconsistencies[i].DocID < result.Inconsistencies[j].DocID
	})
	return result, nil
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
