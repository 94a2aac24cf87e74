// Package kg implements the crime<->article knowledge graph (§3, §4.4): a
// weighted bipartite graph built once at startup from a curated mapping
// table, queried read-only for the rest of the process lifetime. Grounded
// on the hashicorp go-memdb/go-immutable-radix in-memory indexed-table
// stack, the way a Go service that needs fast multi-index lookups over an
// immutable snapshot typically reaches for it rather than hand-rolled maps.
package kg

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hashicorp/go-memdb"

	apperrors "github.com/refrain2333/legal-retrieval/internal/errors"
)

// rareCrimeConfidenceFloor is the confidence an edge receives when
// rare_crime=true and no stronger evidence exists (§4.4).
const rareCrimeConfidenceFloor = 0.7

// rareCrimeCaseThreshold is the case_count below which an edge is
// considered rare_crime, per the Open Question decision in DESIGN.md
// (spec §9: "case_count < 20 -> rare_crime=true").
const rareCrimeCaseThreshold = 20

const (
	tableCrime    = "crime"
	tableEdge     = "edge"
	tableCaseLink = "case_link"
)

// Edge is the Crime-Article adjacency record (§3 "KG Nodes/Edges").
type Edge struct {
	Crime      string
	Article    int
	CaseCount  int
	Confidence float64
	RareCrime  bool
}

// id is the composite primary key memdb indexes edges by.
func (e *Edge) id() string {
	return edgeID(e.Crime, e.Article)
}

func edgeID(crime string, article int) string {
	return crime + "\x00" + strconv.Itoa(article)
}

// caseLink is one case's citation of a (crime, article) pair.
type caseLink struct {
	Crime   string
	Article int
	CaseID  string
}

func (c *caseLink) id() string {
	return c.Crime + "\x00" + strconv.Itoa(c.Article) + "\x00" + c.CaseID
}

// crimeNode is the primary-index row for the crime table; memdb requires a
// table even for a single-field node so `related_crimes`/`expand` can list
// distinct crime names without scanning edges twice.
type crimeNode struct {
	Name string
}

// MappingRow mirrors one row of kg/mapping.csv (§6): `(case_id,
// article_number, crime, confidence, is_primary)`.
type MappingRow struct {
	CaseID        string
	ArticleNumber int
	Crime         string
	Confidence    float64
	IsPrimary     bool
}

// Related is one scored neighbor returned by related_articles/related_crimes.
type Related struct {
	Crime      string
	Article    int
	Confidence float64
	CaseCount  int
}

// Graph is the read-only knowledge graph: built once from mapping rows at
// startup, queried concurrently by every request thereafter. memdb's
// immutable-radix snapshots make concurrent readers lock-free after Build
// returns.
type Graph struct {
	db *memdb.MemDB
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableCrime: {
				Name: tableCrime,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			tableEdge: {
				Name: tableEdge,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "Crime"},
							&memdb.IntFieldIndex{Field: "Article"},
						}},
					},
					"crime": {
						Name:    "crime",
						Indexer: &memdb.StringFieldIndex{Field: "Crime"},
					},
					"article": {
						Name:    "article",
						Indexer: &memdb.IntFieldIndex{Field: "Article"},
					},
				},
			},
			tableCaseLink: {
				Name: tableCaseLink,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "Crime"},
							&memdb.IntFieldIndex{Field: "Article"},
							&memdb.StringFieldIndex{Field: "CaseID"},
						}},
					},
					"crime_article": {
						Name: "crime_article",
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "Crime"},
							&memdb.IntFieldIndex{Field: "Article"},
						}},
					},
				},
			},
		},
	}
}

// Build constructs a Graph from mapping rows, aggregating per-(crime,
// article) case counts and confidence, applying the rare-crime confidence
// floor once at build time so queries stay allocation-light (§4.4).
func Build(rows []MappingRow) (*Graph, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, apperrors.Internal("create knowledge graph store", err)
	}

	type agg struct {
		confidenceSum float64
		count         int
		sawPrimary    bool
	}
	edges := make(map[string]*agg)
	crimes := make(map[string]struct{})

	txn := db.Txn(true)
	for _, row := range rows {
		if row.Crime == "" {
			txn.Abort()
			return nil, apperrors.ArtifactCorruption("kg mapping row has empty crime name", nil)
		}
		crimes[row.Crime] = struct{}{}

		key := edgeID(row.Crime, row.ArticleNumber)
		a, ok := edges[key]
		if !ok {
			a = &agg{}
			edges[key] = a
		}
		a.confidenceSum += row.Confidence
		a.count++
		if row.IsPrimary {
			a.sawPrimary = true
		}

		cl := &caseLink{Crime: row.Crime, Article: row.ArticleNumber, CaseID: row.CaseID}
		if err := txn.Insert(tableCaseLink, cl); err != nil {
			txn.Abort()
			return nil, apperrors.Internal("insert case link", err)
		}
	}

	for name := range crimes {
		if err := txn.Insert(tableCrime, &crimeNode{Name: name}); err != nil {
			txn.Abort()
			return nil, apperrors.Internal("insert crime node", err)
		}
	}

	for key, a := range edges {
		crime, article, err := splitEdgeID(key)
		if err != nil {
			txn.Abort()
			return nil, err
		}
		confidence := a.confidenceSum / float64(a.count)
		rare := a.count < rareCrimeCaseThreshold
		if rare && confidence < rareCrimeConfidenceFloor {
			confidence = rareCrimeConfidenceFloor
		}
		edge := &Edge{Crime: crime, Article: article, CaseCount: a.count, Confidence: confidence, RareCrime: rare}
		if err := txn.Insert(tableEdge, edge); err != nil {
			txn.Abort()
			return nil, apperrors.Internal("insert edge", err)
		}
	}
	txn.Commit()

	return &Graph{db: db}, nil
}

func splitEdgeID(key string) (string, int, error) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == 0 {
			n, err := strconv.Atoi(key[i+1:])
			if err != nil {
				return "", 0, apperrors.Internal(fmt.Sprintf("malformed edge id %q", key), err)
			}
			return key[:i], n, nil
		}
	}
	return "", 0, apperrors.Internal(fmt.Sprintf("malformed edge id %q", key), nil)
}

// RelatedArticles returns articles linked to a crime, ordered by
// confidence desc, then case_count desc (§4.4).
func (g *Graph) RelatedArticles(crime string, limit int) []Related {
	txn := g.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableEdge, "crime", crime)
	if err != nil {
		return nil
	}
	var out []Related
	for raw := it.Next(); raw != nil; raw = it.Next() {
		e := raw.(*Edge)
		out = append(out, Related{Crime: e.Crime, Article: e.Article, Confidence: e.Confidence, CaseCount: e.CaseCount})
	}
	sortRelated(out)
	return truncate(out, limit)
}

// RelatedCrimes returns crimes linked to an article, symmetric to
// RelatedArticles (§4.4).
func (g *Graph) RelatedCrimes(article int, limit int) []Related {
	txn := g.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableEdge, "article", article)
	if err != nil {
		return nil
	}
	var out []Related
	for raw := it.Next(); raw != nil; raw = it.Next() {
		e := raw.(*Edge)
		out = append(out, Related{Crime: e.Crime, Article: e.Article, Confidence: e.Confidence, CaseCount: e.CaseCount})
	}
	sortRelated(out)
	return truncate(out, limit)
}

// CasesFor returns the case_id list cited for a (crime, article) pair.
func (g *Graph) CasesFor(crime string, article int, limit int) []string {
	txn := g.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableCaseLink, "crime_article", crime, article)
	if err != nil {
		return nil
	}
	var out []string
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*caseLink).CaseID)
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Entities is the set of crime/article entities Extraction detected in a
// query, the input to Expand.
type Entities struct {
	Crimes   []string
	Articles []int
}

// WeightedKeyword is one term in Expand's output keyword set, weighted by
// the confidence of the edge that produced it (§4.4).
type WeightedKeyword struct {
	Keyword string
	Weight  float64
}

// ExpandResult is Expand's output: the union of neighbors across all
// detected entities, plus a weighted keyword set for query augmentation.
type ExpandResult struct {
	Articles []Related
	Crimes   []Related
	Keywords []WeightedKeyword
}

// Expand produces the union of neighbors for a set of detected
// crimes/articles and a weighted keyword set (concatenation of crime names
// and article titles with weights = edge confidence), per §4.4.
func (g *Graph) Expand(entities Entities, articleTitle func(int) string) ExpandResult {
	seenArticles := make(map[int]Related)
	seenCrimes := make(map[string]Related)
	keywordWeight := make(map[string]float64)

	for _, crime := range entities.Crimes {
		for _, rel := range g.RelatedArticles(crime, 50) {
			if existing, ok := seenArticles[rel.Article]; !ok || rel.Confidence > existing.Confidence {
				seenArticles[rel.Article] = rel
			}
			if rel.Confidence > keywordWeight[crime] {
				keywordWeight[crime] = rel.Confidence
			}
			if articleTitle != nil {
				if title := articleTitle(rel.Article); title != "" && rel.Confidence > keywordWeight[title] {
					keywordWeight[title] = rel.Confidence
				}
			}
		}
	}
	for _, article := range entities.Articles {
		for _, rel := range g.RelatedCrimes(article, 50) {
			if existing, ok := seenCrimes[rel.Crime]; !ok || rel.Confidence > existing.Confidence {
				seenCrimes[rel.Crime] = rel
			}
			if rel.Confidence > keywordWeight[rel.Crime] {
				keywordWeight[rel.Crime] = rel.Confidence
			}
		}
	}

	result := ExpandResult{}
	for _, rel := range seenArticles {
		result.Articles = append(result.Articles, rel)
	}
	for _, rel := range seenCrimes {
		result.Crimes = append(result.Crimes, rel)
	}
	for kw, w := range keywordWeight {
		result.Keywords = append(result.Keywords, WeightedKeyword{Keyword: kw, Weight: w})
	}
	sortRelated(result.Articles)
	sortRelated(result.Crimes)
	sort.Slice(result.Keywords, func(i, j int) bool {
		if result.Keywords[i].Weight != result.Keywords[j].Weight {
			return result.Keywords[i].Weight > result.Keywords[j].Weight
		}
		return result.Keywords[i].Keyword < result.Keywords[j].Keyword
	})
	return result
}

// CrimeNames returns every distinct crime name in the graph, the gazetteer
// the Classifier's rule fallback and the Extractor scan queries against.
func (g *Graph) CrimeNames() []string {
	txn := g.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableCrime, "id")
	if err != nil {
		return nil
	}
	var names []string
	for raw := it.Next(); raw != nil; raw = it.Next() {
		names = append(names, raw.(*crimeNode).Name)
	}
	return names
}

// HasEntity reports whether the query's extracted entities include at least
// one crime name or article number; it does not look them up in the graph.
// Used by the Classifier's rule fallback and the Router's knowledge_graph
// selection rule.
func (g *Graph) HasEntity(entities Entities) bool {
	return len(entities.Crimes) > 0 || len(entities.Articles) > 0
}

func sortRelated(rel []Related) {
	sort.Slice(rel, func(i, j int) bool {
		if rel[i].Confidence != rel[j].Confidence {
			return rel[i].Confidence > rel[j].Confidence
		}
		return rel[i].CaseCount > rel[j].CaseCount
	})
}

func truncate(rel []Related, limit int) []Related {
	if limit > 0 && len(rel) > limit {
		return rel[:limit]
	}
	return rel
}
