package parser

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"

	"github.com/autoorder/autoorder/internal/domain/convert/fields"
)

// parseXLS reads a BIFF8 (.xls) workbook. EUC-KR is tried first because
// most legacy Korean order exports carry codepage 949 text; plain UTF-8 is
// the fallback. BIFF2-BIFF5 never reaches here; the sniffer rejects it.
func (r *Reader) parseXLS(data []byte) (*Table, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "euc-kr")
	if err != nil {
		wb, err = xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls workbook: %w", err)
		}
	}

	var best [][]string
	bestScore := 0.0
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		grid := sheetGrid(sheet, r.cfg.MaxRows+r.cfg.MaxHeaderScan)
		score := fields.SheetScore(sheet.Name, len(grid), maxWidth(grid))
		if score > bestScore {
			bestScore = score
			best = grid
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no worksheet with data")
	}
	return r.buildTable(best)
}

func sheetGrid(sheet *xls.WorkSheet, maxRows int) [][]string {
	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow) && len(grid) < maxRows; i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		grid = append(grid, cells)
	}
	return grid
}
