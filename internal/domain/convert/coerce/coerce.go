// Package coerce applies field-aware value conversion: integers for
// quantity-like fields, floats for price/amount-like fields, and
// format-preserving passthrough for date/time fields. Conversion never
// fails; unparsable numerics become empty strings so a single bad cell
// cannot abort a batch.
package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/autoorder/autoorder/internal/domain/convert/fields"
)

// serialEpoch is the spreadsheet date epoch (1899-12-30): serial N is N days
// after it. Writing dates back through a spreadsheet library would reformat
// them to locale defaults, so serials are rendered to text here instead.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Value converts a raw cell string for the given target field. The result is
// string, int64 or float64.
func Value(raw string, targetField string) any {
	raw = strings.TrimSpace(raw)
	switch {
	case fields.IsQuantity(targetField):
		n, ok := Int(raw)
		if !ok {
			return ""
		}
		return n
	case fields.IsPrice(targetField) || fields.IsAmount(targetField):
		f, ok := Float(raw)
		if !ok {
			return ""
		}
		return f
	case fields.IsDateTime(targetField):
		return DateString(raw)
	default:
		return raw
	}
}

// Int parses a quantity cell. Thousands separators are tolerated.
func Int(raw string) (int64, bool) {
	raw = cleanNumber(raw)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, true
	}
	// "3.0" style cells still count as integers.
	if d, err := decimal.NewFromString(raw); err == nil && d.IsInteger() {
		return d.IntPart(), true
	}
	return 0, false
}

// Float parses a price/amount cell through decimal to avoid binary float
// artifacts on currency values.
func Float(raw string) (float64, bool) {
	raw = cleanNumber(raw)
	if raw == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// DateString preserves the original representation of a date/time cell.
// Textual dates pass through untouched. A bare numeric cell is assumed to be
// a spreadsheet serial and rendered as yyyy-MM-dd, with a time-of-day suffix
// only when the serial carries a fractional day.
func DateString(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 || serial > 2958465 { // 9999-12-31
		return raw
	}
	return RenderSerial(serial)
}

// RenderSerial converts a spreadsheet date serial to text.
func RenderSerial(serial float64) string {
	days := math.Floor(serial)
	frac := serial - days
	t := serialEpoch.AddDate(0, 0, int(days))
	if frac == 0 {
		return t.Format("2006-01-02")
	}
	t = t.Add(time.Duration(math.Round(frac * 86400)) * time.Second)
	return t.Format("2006-01-02 15:04:05")
}

// RenderTime formats an in-memory time the same way a preserved cell would
// read: date only when the clock is midnight, otherwise date and time.
func RenderTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

func cleanNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.TrimSuffix(raw, "원")
	return strings.TrimSpace(raw)
}
