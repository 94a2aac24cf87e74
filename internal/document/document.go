// Package document defines the corpus data model (statute articles and
// judicial cases) and loads it from the on-disk artifacts described in the
// persisted-state layout: articles.json and cases.json under DATA_DIR.
// Only the JSON form is read; CSV corpora are not supported.
package document

import (
	"fmt"
	"strings"
)

// Type distinguishes the two document variants that share a common record.
type Type string

const (
	// TypeArticle is a numbered statute clause of criminal law.
	TypeArticle Type = "article"
	// TypeCase is a judicial case record with facts, charges, and sentencing.
	TypeCase Type = "case"
)

const (
	articlePrefix = "article_"
	casePrefix    = "case_"
)

// Sentence carries the sentencing outcome of a case.
type Sentence struct {
	Months       int  `json:"months"`
	FineAmount   int  `json:"fine_amount"`
	DeathPenalty bool `json:"death_penalty"`
	Life         bool `json:"life"`
}

// Summarize renders the sentence as the human-readable string used in the
// Search RPC response's sentence_summary field.
func (s Sentence) Summarize() string {
	if s.DeathPenalty {
		return "死刑"
	}
	if s.Life {
		return "无期徒刑"
	}

	var sb strings.Builder
	if s.Months > 0 {
		years := s.Months / 12
		months := s.Months % 12
		switch {
		case years > 0 && months > 0:
			fmt.Fprintf(&sb, "有期徒刑%d年%d个月", years, months)
		case years > 0:
			fmt.Fprintf(&sb, "有期徒刑%d年", years)
		default:
			fmt.Fprintf(&sb, "有期徒刑%d个月", months)
		}
	} else {
		sb.WriteString("无实刑")
	}

	if s.FineAmount > 0 {
		fmt.Fprintf(&sb, "，罚金%d元", s.FineAmount)
	}

	return sb.String()
}

// Document is the common record shared by both article and case variants.
// Exactly one of the type-specific field groups below is populated,
// selected by Type (and mirrored by the ID prefix invariant).
type Document struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`

	// Article-only fields.
	ArticleNumber int    `json:"article_number,omitempty"`
	Chapter       string `json:"chapter,omitempty"`

	// Case-only fields.
	CaseID           string   `json:"case_id,omitempty"`
	Accusations      []string `json:"accusations,omitempty"`
	RelevantArticles []int    `json:"relevant_articles,omitempty"`
	Sentence         Sentence `json:"sentence,omitempty"`
}

// Article is the typed view used by loaders and stores that only care about
// statute clauses.
type Article struct {
	ID            string
	ArticleNumber int
	Chapter       string
	Title         string
	Content       string
}

// Doc converts an Article into the common Document record.
func (a *Article) Doc() *Document {
	return &Document{
		ID:            a.ID,
		Type:          TypeArticle,
		Title:         a.Title,
		Content:       a.Content,
		ArticleNumber: a.ArticleNumber,
		Chapter:       a.Chapter,
	}
}

// Case is the typed view used by loaders and stores that only care about
// judicial case records.
type Case struct {
	ID               string
	CaseID           string
	Title            string
	Content          string
	Accusations      []string
	RelevantArticles []int
	Sentence         Sentence
}

// Doc converts a Case into the common Document record.
func (c *Case) Doc() *Document {
	return &Document{
		ID:               c.ID,
		Type:             TypeCase,
		Title:            c.Title,
		Content:          c.Content,
		CaseID:           c.CaseID,
		Accusations:      c.Accusations,
		RelevantArticles: c.RelevantArticles,
		Sentence:         c.Sentence,
	}
}

// TypeFromID derives the Type from an ID's prefix, enforcing the invariant
// that type is always derivable from the ID. Returns an error if the ID
// carries neither the article_ nor case_ prefix.
func TypeFromID(id string) (Type, error) {
	switch {
	case strings.HasPrefix(id, articlePrefix):
		return TypeArticle, nil
	case strings.HasPrefix(id, casePrefix):
		return TypeCase, nil
	default:
		return "", fmt.Errorf("document: id %q has neither %q nor %q prefix", id, articlePrefix, casePrefix)
	}
}

// ArticleID formats the canonical document ID for a statute article number.
func ArticleID(number int) string {
	return fmt.Sprintf("%s%d", articlePrefix, number)
}

// CaseDocID formats the canonical document ID for a case record.
func CaseDocID(caseID string) string {
	return fmt.Sprintf("%s%s", casePrefix, caseID)
}

// ContentPreview truncates content to at most n runes, appending an
// ellipsis when truncated. Used for the Search RPC's content_preview field.
func ContentPreview(content string, n int) string {
	r := []rune(content)
	if len(r) <= n {
		return content
	}
	return string(r[:n]) + "…"
}
