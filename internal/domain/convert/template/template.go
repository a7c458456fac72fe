// Package template extracts the output schema from an uploaded purchase
// order template. Extraction is strictly read-only: header strings are
// returned character-for-character and the template file is never modified
// or re-persisted.
package template

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/autoorder/autoorder/internal/domain/convert/fields"
)

// HeaderNotFoundError means the template yielded no row scoring above the
// minimum header threshold. Fatal for the whole conversion: without template
// headers there is no output schema.
type HeaderNotFoundError struct {
	BestScore int
	Threshold int
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("no usable header row in template (best score %d, threshold %d)", e.BestScore, e.Threshold)
}

// Extractor locates template header rows.
type Extractor struct {
	minScore int
	maxScan  int
}

// NewExtractor creates an extractor. minScore and maxScan follow the same
// calibration as the source-file header detection (reference values 10, 10).
func NewExtractor(minScore, maxScan int) *Extractor {
	if minScore <= 0 {
		minScore = 10
	}
	if maxScan <= 0 {
		maxScan = 10
	}
	return &Extractor{minScore: minScore, maxScan: maxScan}
}

// ExtractHeaders parses the template workbook's first sheet and returns the
// highest-scoring candidate header row within the first maxScan rows, with
// empty cells dropped and the rest untouched.
func (e *Extractor) ExtractHeaders(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("template has no worksheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read template sheet: %w", err)
	}

	bestIdx, bestScore := -1, 0
	limit := len(rows)
	if limit > e.maxScan {
		limit = e.maxScan
	}
	for i := 0; i < limit; i++ {
		if score := fields.RowScore(rows[i]); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < e.minScore {
		return nil, &HeaderNotFoundError{BestScore: bestScore, Threshold: e.minScore}
	}

	var headers []string
	for _, cell := range rows[bestIdx] {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		headers = append(headers, name)
	}
	return headers, nil
}
