package parser

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

// Candidate encodings for CSV exports. Korean commerce platforms still ship
// EUC-KR/CP949 files without a BOM; Shift-JIS covers the occasional Japanese
// marketplace export.
var csvEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8", unicode.UTF8},
	{"euc-kr", korean.EUCKR},
	{"shift-jis", japanese.ShiftJIS},
}

// parseCSV decodes the byte buffer under each candidate encoding, keeps the
// best-scoring decoding, and parses single-line records with a quote-aware
// splitter. The first non-empty line is the header line.
func (r *Reader) parseCSV(data []byte) (*Table, error) {
	text, _ := decodeText(data)

	var grid [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		grid = append(grid, splitCSVLine(line))
		if len(grid) > r.cfg.MaxRows+1 {
			break
		}
	}
	if len(grid) == 0 {
		return nil, &UnreadableFormatError{Format: "csv", Guidance: "CSV 파일이 비어있습니다."}
	}

	return r.tableFrom(grid, 0), nil
}

// decodeText picks the decoding that yields the most Hangul with the fewest
// replacement characters: score = hangul - 10*replacements. A UTF-8 BOM
// short-circuits detection.
func decodeText(data []byte) (string, string) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return string(data[3:]), "utf-8"
	}

	bestText := string(data)
	bestName := "utf-8"
	bestScore := scoreDecoding(bestText)

	for _, candidate := range csvEncodings[1:] {
		decoded, err := candidate.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(decoded)
		if score := scoreDecoding(text); score > bestScore {
			bestScore = score
			bestText = text
			bestName = candidate.name
		}
	}
	return bestText, bestName
}

func scoreDecoding(text string) int {
	hangul, invalid := 0, 0
	for _, r := range text {
		switch {
		case r >= '가' && r <= '힣':
			hangul++
		case r == utf8.RuneError:
			invalid++
		}
	}
	return hangul - 10*invalid
}

// splitCSVLine splits one record on commas outside double quotes. A doubled
// quote inside a quoted field is an escaped literal quote. Newlines inside
// quotes are not supported; records are single lines.
func splitCSVLine(line string) []string {
	var result []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	result = append(result, strings.TrimSpace(current.String()))
	return result
}
