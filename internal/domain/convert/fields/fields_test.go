package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		class Class
		field string
		want  bool
	}{
		{"korean product", ClassProduct, "상품명", true},
		{"english product", ClassProduct, "Product Name", true},
		{"korean quantity", ClassQuantity, "주문수량", true},
		{"english quantity", ClassQuantity, "Qty", true},
		{"korean price", ClassPrice, "단가", true},
		{"price inside longer name", ClassPrice, "UnitPrice", true},
		{"korean amount", ClassAmount, "공급가액", true},
		{"date column", ClassDateTime, "주문일자", true},
		{"english timestamp", ClassDateTime, "created_at", true},
		{"unrelated field", ClassProduct, "비고", false},
		{"empty", ClassProduct, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.class, tt.field))
		})
	}
}

func TestCellScore(t *testing.T) {
	// 상품명: product keyword (+10), short cell (+1)
	assert.Equal(t, 11, CellScore("상품명"))
	// 수량: quantity (+10), short (+1)
	assert.Equal(t, 11, CellScore("수량"))
	// 이메일: email (+5), short (+1)
	assert.Equal(t, 6, CellScore("이메일"))
	// terse but meaningless still counts as header-ish
	assert.Equal(t, 1, CellScore("비고"))
	assert.Equal(t, 0, CellScore(""))
	assert.Equal(t, 0, CellScore("   "))
}

func TestRowScore(t *testing.T) {
	t.Run("order header row scores high", func(t *testing.T) {
		// 3 keyword cells (11 each) + 3 non-empty
		assert.Equal(t, 36, RowScore([]string{"상품명", "수량", "단가"}))
	})

	t.Run("data row scores low", func(t *testing.T) {
		score := RowScore([]string{"Widget", "3", "1500"})
		assert.Less(t, score, 10)
	})

	t.Run("single cell row scores zero", func(t *testing.T) {
		assert.Equal(t, 0, RowScore([]string{"발주서", "", ""}))
	})

	t.Run("empty row scores zero", func(t *testing.T) {
		assert.Equal(t, 0, RowScore([]string{"", "", ""}))
	})
}

func TestSheetScore(t *testing.T) {
	t.Run("data sheet name bonus", func(t *testing.T) {
		named := SheetScore("주문데이터", 100, 5)
		plain := SheetScore("기타", 100, 5)
		assert.Equal(t, named, plain+10)
	})

	t.Run("summary sheet penalized", func(t *testing.T) {
		summary := SheetScore("요약", 100, 5)
		plain := SheetScore("기타", 100, 5)
		assert.Equal(t, summary, plain-20)
	})

	t.Run("row contribution capped", func(t *testing.T) {
		assert.Equal(t, SheetScore("a", 200, 1), SheetScore("a", 100000, 1))
	})

	t.Run("column contribution capped at ten", func(t *testing.T) {
		assert.Equal(t, SheetScore("a", 50, 10), SheetScore("a", 50, 40))
	})

	t.Run("too small to be data", func(t *testing.T) {
		assert.Zero(t, SheetScore("Sheet1", 1, 5))
		assert.Zero(t, SheetScore("Sheet1", 10, 0))
	})
}
