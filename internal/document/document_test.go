package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeFromID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    Type
		wantErr bool
	}{
		{"article prefix", "article_264", TypeArticle, false},
		{"case prefix", "case_2019川01刑终123号", TypeCase, false},
		{"unknown prefix", "doc_1", "", true},
		{"empty id", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeFromID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArticleID_And_CaseDocID(t *testing.T) {
	assert.Equal(t, "article_264", ArticleID(264))
	assert.Equal(t, "case_abc123", CaseDocID("abc123"))
}

func TestSentence_Summarize(t *testing.T) {
	tests := []struct {
		name     string
		s        Sentence
		contains string
	}{
		{"death penalty", Sentence{DeathPenalty: true}, "死刑"},
		{"life sentence", Sentence{Life: true}, "无期徒刑"},
		{"years and months", Sentence{Months: 14}, "1年2个月"},
		{"months only", Sentence{Months: 6}, "6个月"},
		{"with fine", Sentence{Months: 12, FineAmount: 5000}, "罚金5000元"},
		{"no custodial sentence", Sentence{}, "无实刑"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.s.Summarize(), tt.contains)
		})
	}
}

func TestArticle_Doc_PreservesFields(t *testing.T) {
	a := &Article{ID: "article_264", ArticleNumber: 264, Chapter: "侵犯财产罪", Title: "盗窃罪", Content: "盗窃公私财物..."}

	doc := a.Doc()

	assert.Equal(t, TypeArticle, doc.Type)
	assert.Equal(t, 264, doc.ArticleNumber)
	assert.Equal(t, "侵犯财产罪", doc.Chapter)
}

func TestCase_Doc_PreservesFields(t *testing.T) {
	c := &Case{
		ID:               "case_001",
		CaseID:           "001",
		Accusations:      []string{"盗窃"},
		RelevantArticles: []int{264},
		Sentence:         Sentence{Months: 12},
	}

	doc := c.Doc()

	assert.Equal(t, TypeCase, doc.Type)
	assert.Equal(t, []string{"盗窃"}, doc.Accusations)
	assert.Equal(t, []int{264}, doc.RelevantArticles)
}

func TestContentPreview(t *testing.T) {
	short := "盗窃罪"
	assert.Equal(t, short, ContentPreview(short, 10))

	long := "盗窃公私财物，数额较大的，处三年以下有期徒刑、拘役或者管制，并处或者单处罚金"
	preview := ContentPreview(long, 5)
	assert.Equal(t, []rune("盗窃公私财")[0:5], []rune(preview)[0:5])
	assert.Contains(t, preview, "…")
}
