package strategy

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/refrain2333/legal-retrieval/internal/store"
)

func TestNormalizeScores_MinMaxToUnitRange(t *testing.T) {
	docs := []ScoredDoc{{DocID: "a", Score: 2}, {DocID: "b", Score: 4}, {DocID: "c", Score: 6}}
	normalizeScores(docs)
	assert.Equal(t, 0.0, docs[0].Score)
	assert.Equal(t, 0.5, docs[1].Score)
	assert.Equal(t, 1.0, docs[2].Score)
}

func TestNormalizeScores_ConstantScoresBecomeOne(t *testing.T) {
	docs := []ScoredDoc{{DocID: "a", Score: 3}, {DocID: "b", Score: 3}}
	normalizeScores(docs)
	assert.Equal(t, 1.0, docs[0].Score)
	assert.Equal(t, 1.0, docs[1].Score)
}

func TestNormalizeScores_EmptyIsNoop(t *testing.T) {
	var docs []ScoredDoc
	assert.NotPanics(t, func() { normalizeScores(docs) })
}

func TestTruncateTopK_BoundsToTopK(t *testing.T) {
	docs := make([]ScoredDoc, TopK+5)
	for i := range docs {
		docs[i] = ScoredDoc{DocID: string(rune('a' + i))}
	}
	assert.Len(t, truncateTopK(docs), TopK)
}

func TestTruncateTopK_LeavesShorterSliceUnchanged(t *testing.T) {
	docs := []ScoredDoc{{DocID: "a"}, {DocID: "b"}}
	assert.Len(t, truncateTopK(docs), 2)
}

// fakeVectorStore is a minimal store.VectorStore double for strategy tests.
type fakeVectorStore struct {
	article map[string][]float32
	case_   map[string][]float32
	dim     int
}

func newFakeVectorStore(dim int) *fakeVectorStore {
	return &fakeVectorStore{article: map[string][]float32{}, case_: map[string][]float32{}, dim: dim}
}

func (f *fakeVectorStore) put(partition store.Partition, id string, vec []float32) {
	if partition == store.PartitionArticle {
		f.article[id] = vec
	} else {
		f.case_[id] = vec
	}
}

func (f *fakeVectorStore) table(partition store.Partition) map[string][]float32 {
	if partition == store.PartitionArticle {
		return f.article
	}
	return f.case_
}

func (f *fakeVectorStore) Dimensions() int { return f.dim }

func (f *fakeVectorStore) Search(queryVec []float32, k int, partition store.Partition) ([]store.VectorResult, error) {
	return f.SearchWithIDs(queryVec, k, partition, nil)
}

func (f *fakeVectorStore) SearchWithIDs(queryVec []float32, k int, partition store.Partition, ids map[string]struct{}) ([]store.VectorResult, error) {
	var out []store.VectorResult
	for id, vec := range f.table(partition) {
		if ids != nil {
			if _, ok := ids[id]; !ok {
				continue
			}
		}
		out = append(out, store.VectorResult{ID: id, Score: float32(cosine(queryVec, vec))})
	}
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeVectorStore) CosineTo(partition store.Partition, id string, queryVec []float32) (float64, bool) {
	vec, ok := f.table(partition)[id]
	if !ok {
		return 0, false
	}
	return cosine(queryVec, vec), true
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// fakeEmbedder returns a fixed vector for a given text, or an error when
// the text is in errTexts.
type fakeEmbedder struct {
	vectors  map[string][]float32
	errTexts map[string]bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.errTexts[text] {
		return nil, errors.New("embed failed")
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0}, nil
}
