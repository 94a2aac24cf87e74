package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/refrain2333/legal-retrieval/internal/errors"
)

// Corpus is the fully loaded, validated in-memory corpus: every article and
// case the service can retrieve, plus a lookup index by document ID.
type Corpus struct {
	Articles []*Article
	Cases    []*Case

	byID map[string]*Document
}

// ByID looks up a document (article or case) by its canonical ID.
func (c *Corpus) ByID(id string) (*Document, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// IDs returns the full set of document IDs in the corpus, in load order
// (articles first, then cases). Used by startup consistency checks that
// compare this set against the vector store and BM25 index.
func (c *Corpus) IDs() []string {
	ids := make([]string, 0, len(c.Articles)+len(c.Cases))
	for _, a := range c.Articles {
		ids = append(ids, a.ID)
	}
	for _, cs := range c.Cases {
		ids = append(ids, cs.ID)
	}
	return ids
}

// articleRecord mirrors the on-disk JSON shape for an article.
type articleRecord struct {
	ArticleNumber int    `json:"article_number"`
	Chapter       string `json:"chapter"`
	Title         string `json:"title"`
	Content       string `json:"content"`
}

// caseRecord mirrors the on-disk JSON shape for a case.
type caseRecord struct {
	CaseID           string   `json:"case_id"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Accusations      []string `json:"accusations"`
	RelevantArticles []int    `json:"relevant_articles"`
	Sentence         Sentence `json:"sentence"`
}

// LoadCorpus reads articles.json and cases.json from dataDir (per the
// persisted-state layout in §6) and validates the ID-uniqueness and
// type-derivation invariants from §3.
func LoadCorpus(dataDir string) (*Corpus, error) {
	articles, err := loadArticles(filepath.Join(dataDir, "articles.json"))
	if err != nil {
		return nil, err
	}
	cases, err := loadCases(filepath.Join(dataDir, "cases.json"))
	if err != nil {
		return nil, err
	}

	corpus := &Corpus{
		Articles: articles,
		Cases:    cases,
		byID:     make(map[string]*Document, len(articles)+len(cases)),
	}

	for _, a := range articles {
		if err := validateID(a.ID, TypeArticle); err != nil {
			return nil, err
		}
		if _, dup := corpus.byID[a.ID]; dup {
			return nil, apperrors.ArtifactCorruption(fmt.Sprintf("duplicate document id %q", a.ID), nil)
		}
		corpus.byID[a.ID] = a.Doc()
	}
	for _, c := range cases {
		if err := validateID(c.ID, TypeCase); err != nil {
			return nil, err
		}
		if _, dup := corpus.byID[c.ID]; dup {
			return nil, apperrors.ArtifactCorruption(fmt.Sprintf("duplicate document id %q", c.ID), nil)
		}
		corpus.byID[c.ID] = c.Doc()
	}

	return corpus, nil
}

func validateID(id string, want Type) error {
	got, err := TypeFromID(id)
	if err != nil {
		return apperrors.ArtifactCorruption(err.Error(), err)
	}
	if got != want {
		return apperrors.ArtifactCorruption(
			fmt.Sprintf("document id %q has prefix for type %q but was loaded as %q", id, got, want), nil)
	}
	return nil
}

func loadArticles(path string) ([]*Article, error) {
	var records []articleRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}

	out := make([]*Article, 0, len(records))
	for _, r := range records {
		out = append(out, &Article{
			ID:            ArticleID(r.ArticleNumber),
			ArticleNumber: r.ArticleNumber,
			Chapter:       r.Chapter,
			Title:         r.Title,
			Content:       r.Content,
		})
	}
	return out, nil
}

func loadCases(path string) ([]*Case, error) {
	var records []caseRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}

	out := make([]*Case, 0, len(records))
	for _, r := range records {
		out = append(out, &Case{
			ID:               CaseDocID(r.CaseID),
			CaseID:           r.CaseID,
			Title:            r.Title,
			Content:          r.Content,
			Accusations:      r.Accusations,
			RelevantArticles: r.RelevantArticles,
			Sentence:         r.Sentence,
		})
	}
	return out, nil
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.ArtifactCorruption(fmt.Sprintf("open corpus file %s", path), err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(v); err != nil {
		return apperrors.ArtifactCorruption(fmt.Sprintf("decode corpus file %s", path), err)
	}
	return nil
}
