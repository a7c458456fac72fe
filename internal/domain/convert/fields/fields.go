// Package fields holds the order-document field vocabulary shared by header
// detection, mapping resolution and workbook generation. Source files come
// from Korean commerce platforms, so every class carries Korean and English
// keywords.
package fields

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Class is a semantic grouping of column names.
type Class int

const (
	ClassProduct Class = iota
	ClassQuantity
	ClassPrice
	ClassAmount
	ClassCustomer
	ClassContact
	ClassAddress
	ClassEmail
	ClassDateTime
)

// keywords are matched case-insensitively by containment. The lists are
// tuned empirically against sample order files; treat them as starting
// points, not constants (see pkg/config for the score threshold).
var classKeywords = map[Class][]string{
	ClassProduct:  {"상품", "제품", "품목", "품명", "아이템", "product", "item"},
	ClassQuantity: {"수량", "개수", "갯수", "qty", "quantity"},
	ClassPrice:    {"단가", "가격", "price", "unit_price"},
	ClassAmount:   {"금액", "공급가액", "총액", "합계", "amount", "total", "sum"},
	ClassCustomer: {"고객", "주문자", "구매자", "받는분", "받는사람", "이름", "성명", "customer", "name"},
	ClassContact:  {"연락", "전화", "휴대폰", "핸드폰", "phone", "tel"},
	ClassAddress:  {"주소", "배송", "수령지", "address"},
	ClassEmail:    {"이메일", "email"},
	ClassDateTime: {
		"날짜", "시간", "일시", "시각", "접수일", "주문일", "발주일", "배송일",
		"등록일", "수정일", "완료일", "처리일", "입력일",
		"date", "time", "datetime", "timestamp", "created", "updated", "registered",
	},
}

// Cell score contribution per class, mirroring the weights the header
// heuristic was calibrated with: core commerce columns weigh most.
var classWeights = map[Class]int{
	ClassProduct:  10,
	ClassQuantity: 10,
	ClassPrice:    10,
	ClassCustomer: 8,
	ClassContact:  8,
	ClassAddress:  8,
	ClassEmail:    5,
}

var classMatchers map[Class]*ahocorasick.Matcher

// matcherMu serializes automaton access: Matcher.Match mutates internal
// visit counters and is not safe for concurrent use.
var matcherMu sync.Mutex

func init() {
	classMatchers = make(map[Class]*ahocorasick.Matcher, len(classKeywords))
	for class, words := range classKeywords {
		classMatchers[class] = ahocorasick.NewStringMatcher(words)
	}
}

func matchClass(class Class, lowered string) bool {
	matcherMu.Lock()
	defer matcherMu.Unlock()
	return len(classMatchers[class].Match([]byte(lowered))) > 0
}

// Matches reports whether the field name contains any keyword of the class.
func Matches(class Class, fieldName string) bool {
	name := strings.ToLower(strings.TrimSpace(fieldName))
	if name == "" {
		return false
	}
	return matchClass(class, name)
}

// IsDateTime reports whether the field name looks like a date/time column.
// Date columns get format-preserving treatment end to end.
func IsDateTime(fieldName string) bool { return Matches(ClassDateTime, fieldName) }

// IsQuantity reports whether the field name looks like a count column.
func IsQuantity(fieldName string) bool { return Matches(ClassQuantity, fieldName) }

// IsPrice reports whether the field name looks like a unit-price column.
func IsPrice(fieldName string) bool { return Matches(ClassPrice, fieldName) }

// IsAmount reports whether the field name looks like a total/amount column.
func IsAmount(fieldName string) bool { return Matches(ClassAmount, fieldName) }

// IsProduct reports whether the field name looks like an item-name column.
func IsProduct(fieldName string) bool { return Matches(ClassProduct, fieldName) }

// CellScore returns the header-likelihood contribution of a single cell:
// the summed weights of every matching class, plus 1 for any short non-empty
// cell (real headers are terse).
func CellScore(cell string) int {
	value := strings.ToLower(strings.TrimSpace(cell))
	if value == "" {
		return 0
	}
	score := 0
	for class, weight := range classWeights {
		if matchClass(class, value) {
			score += weight
		}
	}
	if len([]rune(value)) <= 10 {
		score++
	}
	return score
}

// RowScore scores a candidate header row: per-cell keyword scores plus the
// count of non-empty cells. Rows with fewer than two non-empty cells score 0.
func RowScore(cells []string) int {
	nonEmpty := 0
	score := 0
	for _, cell := range cells {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		nonEmpty++
		score += CellScore(cell)
	}
	if nonEmpty < 2 {
		return 0
	}
	return score + nonEmpty
}

// SheetScore scores a worksheet by name and shape. Data-bearing sheets win;
// summary and pivot sheets are penalized.
func SheetScore(name string, rowCount, colCount int) float64 {
	if rowCount < 2 || colCount < 1 {
		return 0
	}
	var score float64
	lower := strings.ToLower(name)
	if strings.Contains(lower, "sheet") || strings.Contains(lower, "데이터") || strings.Contains(lower, "주문") {
		score += 10
	}
	if strings.Contains(lower, "요약") || strings.Contains(lower, "피벗") {
		score -= 20
	}
	score += min(float64(rowCount)/10, 20)
	score += min(float64(colCount), 10)
	return score
}
