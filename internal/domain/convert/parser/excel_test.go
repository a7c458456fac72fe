package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			for j, cell := range row {
				ref, err := excelize.CoordinatesToCellName(j+1, i+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, ref, cell))
			}
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	r := NewReader(DefaultConfig())

	t.Run("header below a title row", func(t *testing.T) {
		data := buildXLSX(t, map[string][][]string{
			"주문데이터": {
				{"6월 발주 내역"},
				{},
				{"상품명", "수량", "단가"},
				{"위젯", "3", "1500"},
			},
		})

		table, err := r.Read(data, "xlsx")
		require.NoError(t, err)
		assert.Equal(t, []string{"상품명", "수량", "단가"}, table.Headers)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "3", table.Rows[0]["수량"])
	})

	t.Run("data sheet beats summary sheet", func(t *testing.T) {
		orderRows := [][]string{{"상품명", "수량", "단가"}}
		for i := 0; i < 30; i++ {
			orderRows = append(orderRows, []string{fmt.Sprintf("item-%d", i), "1", "100"})
		}
		data := buildXLSX(t, map[string][][]string{
			"요약":   {{"총계"}, {"999"}},
			"주문데이터": orderRows,
		})

		table, err := r.Read(data, "xlsx")
		require.NoError(t, err)
		assert.Len(t, table.Rows, 30)
	})

	t.Run("no header row above threshold", func(t *testing.T) {
		data := buildXLSX(t, map[string][][]string{
			"Sheet1": {
				{"1", "2"},
				{"3", "4"},
				{"5", "6"},
			},
		})

		_, err := r.Read(data, "xlsx")
		var nhe *NoHeaderFoundError
		require.ErrorAs(t, err, &nhe)
		assert.Equal(t, 10, nhe.Threshold)
	})

	t.Run("date column keeps original text", func(t *testing.T) {
		data := buildXLSX(t, map[string][][]string{
			"Sheet1": {
				{"상품명", "수량", "주문일자"},
				{"위젯", "3", "2024-03-15"},
			},
		})

		table, err := r.Read(data, "xlsx")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", table.Rows[0]["주문일자"])
	})
}

func TestReadRejectsLegacyBinary(t *testing.T) {
	r := NewReader(DefaultConfig())

	// BIFF2 BOF record. No parser should ever be attempted.
	data := []byte{0x09, 0x00, 0x04, 0x00, 0x00, 0x00, 0x10, 0x00}
	_, err := r.Read(data, "xls")

	var ufe *UnreadableFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "legacy-binary", ufe.Format)
	assert.NotEmpty(t, ufe.Guidance)
	assert.Nil(t, ufe.Err, "rejection happens before any parse attempt")
}

func TestReadEmptyInput(t *testing.T) {
	r := NewReader(DefaultConfig())
	_, err := r.Read(nil, "xlsx")
	var ufe *UnreadableFormatError
	require.ErrorAs(t, err, &ufe)
}

func TestCleanHeaders(t *testing.T) {
	headers, indices := cleanHeaders([]string{"a", "", "undefined", "b", "null", "c"}, 50)
	assert.Equal(t, []string{"a", "b", "c"}, headers)
	assert.Equal(t, []int{0, 3, 5}, indices)

	headers, _ = cleanHeaders([]string{"a", "b", "c"}, 2)
	assert.Equal(t, []string{"a", "b"}, headers)
}
