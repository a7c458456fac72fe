// Package parser turns uploaded spreadsheet bytes into a uniform in-memory
// table. It tries an ordered list of format strategies (XLSX, legacy XLS,
// CSV) chosen from the sniffed container kind, locates the most plausible
// worksheet and header row by keyword scoring, and keeps date-named columns
// in their original textual form.
package parser

import (
	"fmt"
	"strings"

	"github.com/autoorder/autoorder/internal/domain/convert/coerce"
	"github.com/autoorder/autoorder/internal/domain/convert/fields"
	"github.com/autoorder/autoorder/internal/domain/convert/sniffer"
)

// Row maps a header name to the cell value of one data row. Keys are always
// a subset of the owning Table's Headers.
type Row map[string]string

// Table is the uniform parse result: ordered headers plus one record per
// retained data row.
type Table struct {
	Headers []string
	Rows    []Row
}

// Config bounds the parse and externalizes the header-score threshold.
type Config struct {
	MinHeaderScore int
	MaxHeaderScan  int
	MaxRows        int
	MaxColumns     int
}

// DefaultConfig returns the calibrated defaults. The threshold of 10 was
// tuned against representative order files; override via configuration when
// recalibrating.
func DefaultConfig() Config {
	return Config{
		MinHeaderScore: 10,
		MaxHeaderScan:  10,
		MaxRows:        5000,
		MaxColumns:     50,
	}
}

// UnreadableFormatError means no strategy could produce a table at all.
// Fatal for the file; Guidance carries user-facing remediation text.
type UnreadableFormatError struct {
	Format   string
	Guidance string
	Err      error
}

func (e *UnreadableFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable %s file: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("unreadable %s file", e.Format)
}

func (e *UnreadableFormatError) Unwrap() error { return e.Err }

// NoHeaderFoundError means a table-like structure was parsed but no row
// scored above the minimum header threshold.
type NoHeaderFoundError struct {
	BestScore int
	Threshold int
}

func (e *NoHeaderFoundError) Error() string {
	return fmt.Sprintf("no header row found (best score %d, threshold %d)", e.BestScore, e.Threshold)
}

// Reader reads heterogeneous order files into Tables.
type Reader struct {
	cfg Config
}

// NewReader creates a reader with the given bounds.
func NewReader(cfg Config) *Reader {
	if cfg.MinHeaderScore <= 0 {
		cfg = DefaultConfig()
	}
	return &Reader{cfg: cfg}
}

type strategy struct {
	name  string
	parse func(data []byte) (*Table, error)
}

// Read parses the file bytes. ext is the declared file extension ("csv",
// "xls", "xlsx", with or without the dot), used only to order fallbacks when
// the container kind is ambiguous. Legacy BIFF2-BIFF5 files fail fast
// without a parse attempt.
func (r *Reader) Read(data []byte, ext string) (*Table, error) {
	if len(data) == 0 {
		return nil, &UnreadableFormatError{Format: "empty", Guidance: "파일이 비어있습니다."}
	}

	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	kind := sniffer.Classify(head)
	if kind.Rejected() {
		return nil, &UnreadableFormatError{Format: kind.String(), Guidance: kind.Guidance()}
	}

	var lastErr error
	for _, s := range r.strategiesFor(kind, strings.TrimPrefix(strings.ToLower(ext), ".")) {
		table, err := s.parse(data)
		if err == nil {
			return table, nil
		}
		// A parsed-but-headerless table is a different failure class:
		// retrying other formats cannot fix it.
		if hdrErr, ok := err.(*NoHeaderFoundError); ok {
			return nil, hdrErr
		}
		lastErr = fmt.Errorf("%s: %w", s.name, err)
	}

	return nil, &UnreadableFormatError{
		Format:   kind.String(),
		Guidance: "파일을 .xlsx 또는 CSV 형식으로 다시 저장한 뒤 업로드해주세요.",
		Err:      lastErr,
	}
}

func (r *Reader) strategiesFor(kind sniffer.Kind, ext string) []strategy {
	xlsx := strategy{"xlsx", r.parseXLSX}
	xls := strategy{"xls", r.parseXLS}
	csv := strategy{"csv", r.parseCSV}

	switch kind {
	case sniffer.KindZIPContainer:
		return []strategy{xlsx}
	case sniffer.KindOLE2:
		return []strategy{xls}
	case sniffer.KindDelimitedText:
		return []strategy{csv}
	}

	switch ext {
	case "csv":
		return []strategy{csv}
	case "xls":
		return []strategy{xls, xlsx}
	default:
		return []strategy{xlsx, xls, csv}
	}
}

// buildTable converts a raw cell grid into a Table: locate the header row by
// score, keep only non-placeholder header columns, and retain data rows with
// at least one non-empty cell. Cells under date-named headers keep their
// original text (numeric serials are rendered, never left as raw numbers).
func (r *Reader) buildTable(grid [][]string) (*Table, error) {
	headerIdx, bestScore := r.findHeaderRow(grid)
	if bestScore < r.cfg.MinHeaderScore {
		return nil, &NoHeaderFoundError{BestScore: bestScore, Threshold: r.cfg.MinHeaderScore}
	}
	return r.tableFrom(grid, headerIdx), nil
}

func (r *Reader) findHeaderRow(grid [][]string) (int, int) {
	bestIdx, bestScore := 0, 0
	limit := len(grid)
	if limit > r.cfg.MaxHeaderScan {
		limit = r.cfg.MaxHeaderScan
	}
	for i := 0; i < limit; i++ {
		if score := fields.RowScore(grid[i]); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx, bestScore
}

// tableFrom extracts headers and data below the given header row without
// scoring. Used directly by the CSV path where the header line position is
// already known.
func (r *Reader) tableFrom(grid [][]string, headerIdx int) *Table {
	headers, indices := cleanHeaders(grid[headerIdx], r.cfg.MaxColumns)

	table := &Table{Headers: headers}
	for i := headerIdx + 1; i < len(grid); i++ {
		if len(table.Rows) >= r.cfg.MaxRows {
			break
		}
		row := make(Row, len(headers))
		empty := true
		for pos, col := range indices {
			header := headers[pos]
			var value string
			if col < len(grid[i]) {
				value = strings.TrimSpace(grid[i][col])
			}
			if value != "" {
				empty = false
			}
			if fields.IsDateTime(header) {
				value = coerce.DateString(value)
			}
			row[header] = value
		}
		if empty {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// cleanHeaders drops empty or placeholder header cells and returns the
// retained names with their original column indices, so data cells stay
// aligned even when blank columns sit in the middle of the sheet.
func cleanHeaders(raw []string, maxColumns int) ([]string, []int) {
	var headers []string
	var indices []int
	for i, cell := range raw {
		if len(headers) >= maxColumns {
			break
		}
		name := strings.TrimSpace(cell)
		if name == "" || name == "undefined" || name == "null" {
			continue
		}
		headers = append(headers, name)
		indices = append(indices, i)
	}
	return headers, indices
}
