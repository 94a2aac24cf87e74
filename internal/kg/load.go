package kg

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	apperrors "github.com/refrain2333/legal-retrieval/internal/errors"
)

// LoadMapping reads kg/mapping.csv (§6: rows of case_id, article_number,
// crime, confidence, is_primary) and builds the Graph.
func LoadMapping(path string) (*Graph, error) {
	rows, err := readMappingCSV(path)
	if err != nil {
		return nil, err
	}
	return Build(rows)
}

func readMappingCSV(path string) ([]MappingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.ArtifactCorruption(fmt.Sprintf("open kg mapping file %s", path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, apperrors.ArtifactCorruption(fmt.Sprintf("read kg mapping header %s", path), err)
	}
	col := columnIndex(header)
	for _, want := range []string{"case_id", "article_number", "crime", "confidence", "is_primary"} {
		if _, ok := col[want]; !ok {
			return nil, apperrors.ArtifactCorruption(fmt.Sprintf("kg mapping file %s missing column %q", path, want), nil)
		}
	}

	var rows []MappingRow
	lineNo := 1
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, apperrors.ArtifactCorruption(fmt.Sprintf("read kg mapping row %d in %s", lineNo, path), err)
		}
		lineNo++

		article, err := strconv.Atoi(record[col["article_number"]])
		if err != nil {
			return nil, apperrors.ArtifactCorruption(fmt.Sprintf("kg mapping row %d: invalid article_number %q", lineNo, record[col["article_number"]]), err)
		}
		confidence, err := strconv.ParseFloat(record[col["confidence"]], 64)
		if err != nil {
			return nil, apperrors.ArtifactCorruption(fmt.Sprintf("kg mapping row %d: invalid confidence %q", lineNo, record[col["confidence"]]), err)
		}
		isPrimary, err := strconv.ParseBool(record[col["is_primary"]])
		if err != nil {
			return nil, apperrors.ArtifactCorruption(fmt.Sprintf("kg mapping row %d: invalid is_primary %q", lineNo, record[col["is_primary"]]), err)
		}

		rows = append(rows, MappingRow{
			CaseID:        record[col["case_id"]],
			ArticleNumber: article,
			Crime:         record[col["crime"]],
			Confidence:    confidence,
			IsPrimary:     isPrimary,
		})
	}
	return rows, nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}
