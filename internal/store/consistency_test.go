package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildConsistentStores(t *testing.T) (*FlatVectorStore, *BleveBM25Index) {
	t.Helper()
	vs := NewFlatVectorStore(2)
	require.NoError(t, vs.Add(PartitionArticle, "article_1", []float32{1, 0}))
	require.NoError(t, vs.Add(PartitionCase, "case_1", []float32{0, 1}))

	bm, err := NewBleveBM25Index()
	require.NoError(t, err)
	require.NoError(t, bm.Index(PartitionArticle, "article_1", "t", "c"))
	require.NoError(t, bm.Index(PartitionCase, "case_1", "t", "c"))

	return vs, bm
}

func TestQuickCheck_NoInconsistenciesWhenSetsMatch(t *testing.T) {
	vs, bm := buildConsistentStores(t)
	corpusIDs := map[Partition][]string{
		PartitionArticle: {"article_1"},
		PartitionCase:    {"case_1"},
	}

	result, err := QuickCheck(corpusIDs, vs, bm)
	require.NoError(t, err)
	assert.Empty(t, result.Inconsistencies)
	assert.Equal(t, 2, result.Checked)
}

func TestQuickCheck_DetectsMissingVectorEntry(t *testing.T) {
	vs, bm := buildConsistentStores(t)
	corpusIDs := map[Partition][]string{
		PartitionArticle: {"article_1", "article_2"},
		PartitionCase:    {"case_1"},
	}

	result, err := QuickCheck(corpusIDs, vs, bm)
	require.NoError(t, err)
	require.NotEmpty(t, result.Inconsistencies)
	found := false
	for _, inc := range result.Inconsistencies {
		if inc.Type == MissingVector && inc.DocID == "article_2" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestQuickCheck_DetectsOrphanVectorEntry(t *testing.T) {
	vs, bm := buildConsistentStores(t)
	corpusIDs := map[Partition][]string{
		PartitionArticle: {},
		PartitionCase:    {"case_1"},
	}

	result, err := QuickCheck(corpusIDs, vs, bm)
	require.NoError(t, err)
	found := false
	for _, inc := range result.Inconsistencies {
		if inc.Type == OrphanVector && inc.DocID == "article_1" {
			found = true
		}
	}
	assert.True(t, found)
}
