package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/autoorder/autoorder/internal/domain/convert/fields"
)

// parseXLSX reads a ZIP-framed workbook, scores every worksheet and parses
// the winner. Sheets named like summaries or pivots lose to data sheets.
func (r *Reader) parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	grid, err := bestSheetGrid(f)
	if err != nil {
		return nil, err
	}
	return r.buildTable(grid)
}

func bestSheetGrid(f *excelize.File) ([][]string, error) {
	var best [][]string
	bestScore := 0.0

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		score := fields.SheetScore(name, len(rows), maxWidth(rows))
		if score > bestScore {
			bestScore = score
			best = rows
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no worksheet with data")
	}
	return best, nil
}

func maxWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}
