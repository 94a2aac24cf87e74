// Package store holds the two indexes the retrieval strategies read from: a
// brute-force dense vector store loaded from on-disk partitions (this file)
// and an in-memory BM25 lexical index (bm25.go), both partitioned by document type
// (article/case) the way the corpus itself is partitioned.
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	apperrors "github.com/refrain2333/legal-retrieval/internal/errors"
)

// Partition selects which half of the corpus a vector search runs over.
type Partition string

const (
	PartitionArticle Partition = "article"
	PartitionCase    Partition = "case"
)

// VectorResult is one scored hit from a vector search, score clamped to
// [0,1] per the cosine-similarity contract in SPEC_FULL.md §4.2.
type VectorResult struct {
	ID    string
	Score float32
}

// VectorStore is the contract the retrieval strategies depend on. A flat,
// exact implementation (FlatVectorStore) is the only one in this repo:
// SPEC_FULL.md §4.2 requires deterministic, reproducible top-k scoring,
// which an approximate index cannot guarantee across runs.
type VectorStore interface {
	Search(queryVec []float32, k int, partition Partition) ([]VectorResult, error)
	SearchWithIDs(queryVec []float32, k int, partition Partition, ids map[string]struct{}) ([]VectorResult, error)
	CosineTo(partition Partition, id string, queryVec []float32) (float64, bool)
	Dimensions() int
}

// partitionMatrix holds one partition's vectors as parallel slices: row i of
// vectors is the embedding for ids[i]. Vectors are stored pre-normalized so
// that cosine similarity reduces to a dot product.
type partitionMatrix struct {
	ids     []string
	vectors [][]float64
}

// FlatVectorStore computes exact cosine similarity by brute-force dot
// product over pre-normalized vectors (gonum/floats), rather than the
// teacher's approximate HNSW index: SPEC_FULL.md §9 REDESIGN note requires
// exact, deterministic scoring with lexicographic doc_id tie-breaking for
// the idempotence law in §8, which an ANN index cannot promise run to run.
type FlatVectorStore struct {
	dim        int
	partitions map[Partition]*partitionMatrix
}

// NewFlatVectorStore builds an empty store for the given embedding
// dimension; call LoadPartition or Add to populate partitions.
func NewFlatVectorStore(dim int) *FlatVectorStore {
	return &FlatVectorStore{
		dim: dim,
		partitions: map[Partition]*partitionMatrix{
			PartitionArticle: {},
			PartitionCase:    {},
		},
	}
}

// Dimensions returns the embedding dimension all vectors in the store share.
func (s *FlatVectorStore) Dimensions() int {
	return s.dim
}

// Add inserts or replaces a document's vector in the given partition.
// Vectors are normalized to unit length on insertion so Search's dot
// product is exactly cosine similarity.
func (s *FlatVectorStore) Add(partition Partition, id string, vec []float32) error {
	if len(vec) != s.dim {
		return apperrors.ArtifactCorruption(
			fmt.Sprintf("vector for %q has dimension %d, store expects %d", id, len(vec), s.dim), nil)
	}
	pm, ok := s.partitions[partition]
	if !ok {
		return apperrors.Internal(fmt.Sprintf("unknown partition %q", partition), nil)
	}
	normalized := normalize(vec)
	for i, existing := range pm.ids {
		if existing == id {
			pm.vectors[i] = normalized
			return nil
		}
	}
	pm.ids = append(pm.ids, id)
	pm.vectors = append(pm.vectors, normalized)
	return nil
}

// IDs returns every document ID held in a partition, for startup
// consistency checks against the corpus (§8 invariant: vector store and
// BM25 index cover the same ID set).
func (s *FlatVectorStore) IDs(partition Partition) []string {
	pm, ok := s.partitions[partition]
	if !ok {
		return nil
	}
	out := make([]string, len(pm.ids))
	copy(out, pm.ids)
	return out
}

// Search returns the top-k (doc_id, cosine score) pairs in a partition,
// ties broken by doc_id ascending (§4.2).
func (s *FlatVectorStore) Search(queryVec []float32, k int, partition Partition) ([]VectorResult, error) {
	return s.SearchWithIDs(queryVec, k, partition, nil)
}

// SearchWithIDs restricts Search to a supplied ID set (used by the
// knowledge_graph strategy to pre-filter candidates). A non-nil but empty
// set returns an empty list, not an error, per §4.2's edge case.
func (s *FlatVectorStore) SearchWithIDs(queryVec []float32, k int, partition Partition, ids map[string]struct{}) ([]VectorResult, error) {
	if len(queryVec) != s.dim {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("query vector has dimension %d, store expects %d", len(queryVec), s.dim), nil)
	}
	pm, ok := s.partitions[partition]
	if !ok {
		return nil, apperrors.Internal(fmt.Sprintf("unknown partition %q", partition), nil)
	}
	if ids != nil && len(ids) == 0 {
		return []VectorResult{}, nil
	}

	q := normalize(queryVec)

	results := make([]VectorResult, 0, len(pm.ids))
	for i, id := range pm.ids {
		if ids != nil {
			if _, ok := ids[id]; !ok {
				continue
			}
		}
		dot := floats.Dot(q, pm.vectors[i])
		score := clamp01(dot)
		results = append(results, VectorResult{ID: id, Score: float32(score)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// CosineTo returns the cosine similarity between queryVec and a single
// stored document's vector, used by the knowledge_graph strategy to score
// KG-derived candidates without a full partition scan (§4.8).
func (s *FlatVectorStore) CosineTo(partition Partition, id string, queryVec []float32) (float64, bool) {
	pm, ok := s.partitions[partition]
	if !ok || len(queryVec) != s.dim {
		return 0, false
	}
	for i, existing := range pm.ids {
		if existing == id {
			q := normalize(queryVec)
			return clamp01(floats.Dot(q, pm.vectors[i])), true
		}
	}
	return 0, false
}

// vectorFileHeader mirrors the persisted-state layout in §6: a fixed-size
// header followed by packed count*dim float32 values.
type vectorFileHeader struct {
	Count uint32
	Dim   uint32
	Dtype string
}

// vectorSidecar is the JSON metadata file alongside a .bin vector file,
// giving the doc_id for every row in load order.
type vectorSidecar struct {
	IDs []string `json:"ids"`
}

// LoadPartition reads a persisted partition (e.g. vectors/articles.bin +
// its JSON sidecar) into the store, per §6's header{count,dim,dtype} +
// packed floats + sidecar format.
func (s *FlatVectorStore) LoadPartition(partition Partition, binPath, sidecarPath string) error {
	sidecarData, err := os.ReadFile(sidecarPath)
	if err != nil {
		return apperrors.ArtifactCorruption(fmt.Sprintf("read vector sidecar %s", sidecarPath), err)
	}
	var sidecar vectorSidecar
	if err := json.Unmarshal(sidecarData, &sidecar); err != nil {
		return apperrors.ArtifactCorruption(fmt.Sprintf("decode vector sidecar %s", sidecarPath), err)
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		return apperrors.ArtifactCorruption(fmt.Sprintf("read vector file %s", binPath), err)
	}

	const headerBytes = 4 + 4 + 16 // count u32, dim u32, dtype fixed 16-byte field
	if len(data) < headerBytes {
		return apperrors.ArtifactCorruption(fmt.Sprintf("vector file %s shorter than header", binPath), nil)
	}
	count := le32(data[0:4])
	dim := le32(data[4:8])
	dtype := trimNulls(data[8:headerBytes])
	if dtype != "f32" {
		return apperrors.ArtifactCorruption(fmt.Sprintf("vector file %s has unsupported dtype %q", binPath, dtype), nil)
	}
	if int(dim) != s.dim {
		return apperrors.ArtifactCorruption(
			fmt.Sprintf("vector file %s has dim %d, store expects %d", binPath, dim, s.dim), nil)
	}
	if int(count) != len(sidecar.IDs) {
		return apperrors.ArtifactCorruption(
			fmt.Sprintf("vector file %s has %d rows but sidecar has %d ids", binPath, count, len(sidecar.IDs)), nil)
	}

	body := data[headerBytes:]
	expected := int(count) * int(dim) * 4
	if len(body) < expected {
		return apperrors.ArtifactCorruption(fmt.Sprintf("vector file %s truncated", binPath), nil)
	}

	for i, id := range sidecar.IDs {
		row := make([]float32, dim)
		base := i * int(dim) * 4
		for j := 0; j < int(dim); j++ {
			row[j] = le32Float(body[base+j*4 : base+j*4+4])
		}
		if err := s.Add(partition, id, row); err != nil {
			return err
		}
	}
	return nil
}

// normalize converts a float32 vector to a unit-length float64 vector so
// Search's dot product is exactly cosine similarity.
func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	norm := floats.Norm(out, 2)
	if norm == 0 {
		return out
	}
	floats.Scale(1/norm, out)
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func le32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func le32Float(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func trimNulls(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
