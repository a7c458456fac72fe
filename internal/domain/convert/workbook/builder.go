// Package workbook composes the output purchase-order file. The builder
// always starts from a brand-new workbook and reproduces the template
// headers verbatim; it never edits the uploaded template in place, which
// would let a spreadsheet library silently rewrite header cells.
package workbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/autoorder/autoorder/internal/domain/convert/coerce"
	"github.com/autoorder/autoorder/internal/domain/convert/fields"
	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
)

const (
	sheetName = "발주서"
	titleText = "발주서"

	titleRow  = 1
	headerRow = 2
	dataStart = 3
)

// RowCoercionError records one data row that could not be coerced or
// written. The row is skipped; the batch continues.
type RowCoercionError struct {
	RowIndex int    `json:"row"`
	Message  string `json:"message"`
}

func (e *RowCoercionError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowIndex, e.Message)
}

// Result is the outcome of building one output workbook. A result with
// ProcessedRowCount < TotalRowCount and a non-empty PerRowErrors is a
// degraded success, not a failure.
type Result struct {
	OutputBytes       []byte
	FileName          string
	DisplayName       string
	ProcessedRowCount int
	TotalRowCount     int
	PerRowErrors      []RowCoercionError
}

// Builder writes purchase-order workbooks.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a builder. The clock is injectable for tests.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// WithClock overrides the timestamp source used for output file names.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build writes the template headers and transformed rows into a fresh
// workbook, appends the totals row and serializes to bytes. Transformed
// fields outside the template schema are dropped; template columns absent
// from a row render blank.
func (b *Builder) Build(templateHeaders []string, rows []mapping.TransformedRow) (*Result, error) {
	if len(templateHeaders) == 0 {
		return nil, fmt.Errorf("no template headers to build output from")
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), sheetName)

	if err := b.writeTitle(f, len(templateHeaders)); err != nil {
		return nil, err
	}
	if err := b.writeHeaders(f, templateHeaders); err != nil {
		return nil, err
	}

	result := &Result{TotalRowCount: len(rows)}
	written := make([]mapping.TransformedRow, 0, len(rows))

	for i, row := range rows {
		if err := b.writeRow(f, templateHeaders, row, dataStart+len(written)); err != nil {
			result.PerRowErrors = append(result.PerRowErrors, RowCoercionError{
				RowIndex: i + 1,
				Message:  err.Error(),
			})
			continue
		}
		written = append(written, row)
	}
	result.ProcessedRowCount = len(written)

	if len(written) > 0 {
		if err := b.writeTotals(f, templateHeaders, written, dataStart+len(written)); err != nil {
			return nil, err
		}
	}

	b.sizeColumns(f, templateHeaders)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	result.OutputBytes = buf.Bytes()

	stamp := b.now().Format("2006-01-02T15-04-05")
	result.FileName = fmt.Sprintf("purchase_order_%s.xlsx", stamp)
	result.DisplayName = fmt.Sprintf("발주서_%s.xlsx", b.now().Format("20060102"))
	return result, nil
}

func (b *Builder) writeTitle(f *excelize.File, columns int) error {
	if err := f.SetCellValue(sheetName, "A1", titleText); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", style); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(columns, titleRow)
	if err != nil {
		return err
	}
	return f.MergeCell(sheetName, "A1", end)
}

func (b *Builder) writeHeaders(f *excelize.File, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
		Border: []excelize.Border{
			{Type: "top", Style: 1, Color: "000000"},
			{Type: "left", Style: 1, Color: "000000"},
			{Type: "bottom", Style: 1, Color: "000000"},
			{Type: "right", Style: 1, Color: "000000"},
		},
	})
	if err != nil {
		return err
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) writeRow(f *excelize.File, headers []string, row mapping.TransformedRow, rowNum int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		value, ok := row[header]
		if !ok {
			continue // omitted target field renders blank
		}
		if err := f.SetCellValue(sheetName, cell, flatten(value)); err != nil {
			return fmt.Errorf("column %q: %w", header, err)
		}
	}
	return nil
}

// writeTotals appends the aggregate row: a label in the first product-like
// column and decimal-accurate sums for quantity- and amount-like columns.
func (b *Builder) writeTotals(f *excelize.File, headers []string, rows []mapping.TransformedRow, rowNum int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	labeled := false
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}

		switch {
		case !labeled && fields.IsProduct(header):
			if err := f.SetCellValue(sheetName, cell, "합계"); err != nil {
				return err
			}
			labeled = true
		case fields.IsQuantity(header):
			if err := f.SetCellValue(sheetName, cell, sumColumnInt(rows, header)); err != nil {
				return err
			}
		case fields.IsAmount(header):
			total, _ := sumColumn(rows, header).Float64()
			if err := f.SetCellValue(sheetName, cell, total); err != nil {
				return err
			}
		default:
			continue
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

// sizeColumns widens each column proportionally to its header text.
func (b *Builder) sizeColumns(f *excelize.File, headers []string) {
	for i, header := range headers {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		width := float64(len([]rune(header))) * 1.5
		if width < 10 {
			width = 10
		}
		_ = f.SetColWidth(sheetName, name, name, width)
	}
}

// sumColumn totals one column across rows; missing and unparsable cells
// contribute zero.
func sumColumn(rows []mapping.TransformedRow, header string) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		switch v := row[header].(type) {
		case int64:
			total = total.Add(decimal.NewFromInt(v))
		case float64:
			total = total.Add(decimal.NewFromFloat(v))
		case string:
			if f, ok := coerce.Float(v); ok {
				total = total.Add(decimal.NewFromFloat(f))
			}
		}
	}
	return total
}

func sumColumnInt(rows []mapping.TransformedRow, header string) int64 {
	return sumColumn(rows, header).IntPart()
}

// flatten renders non-scalar values to plain text so a structured cell never
// reaches the spreadsheet writer.
func flatten(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case string, int64, float64, int, bool:
		return v
	case []string:
		out := ""
		for i, s := range v {
			if i > 0 {
				out += ", "
			}
			out += s
		}
		return out
	case time.Time:
		return coerce.RenderTime(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
