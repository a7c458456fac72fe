package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want Kind
	}{
		{"xlsx zip container", []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00}, KindZIPContainer},
		{"empty zip", []byte{0x50, 0x4B, 0x05, 0x06}, KindZIPContainer},
		{"biff2 worksheet", []byte{0x09, 0x00, 0x04, 0x00}, KindLegacyBinary},
		{"biff3 worksheet", []byte{0x09, 0x02, 0x06, 0x00}, KindLegacyBinary},
		{"biff4 worksheet", []byte{0x09, 0x04, 0x06, 0x00}, KindLegacyBinary},
		{"biff5 workbook", []byte{0x05, 0x08, 0x10, 0x00}, KindLegacyBinary},
		{"ole2 compound file", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, KindOLE2},
		{"plain ascii csv", []byte("name,qty,price\nWidget,3,1500\n"), KindDelimitedText},
		{"utf8 bom csv", []byte{0xEF, 0xBB, 0xBF, 'a', ',', 'b'}, KindDelimitedText},
		{"euc-kr bytes", []byte{0xBB, 0xF3, 0xC7, 0xB0, ',', '1'}, KindUnknown},
		{"empty input", []byte{}, KindUnknown},
		{"single byte", []byte{0x50}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.head))
		})
	}
}

// Legacy BIFF files must be refused before any parse attempt; everything
// else, including bytes we cannot classify, stays accepted.
func TestRejected(t *testing.T) {
	assert.True(t, KindLegacyBinary.Rejected())

	for _, kind := range []Kind{KindZIPContainer, KindOLE2, KindDelimitedText, KindUnknown} {
		assert.False(t, kind.Rejected(), kind.String())
	}
}

func TestGuidance(t *testing.T) {
	assert.NotEmpty(t, KindLegacyBinary.Guidance())
	assert.Empty(t, KindZIPContainer.Guidance())
}

// A BIFF signature word past offset zero must not trigger the legacy
// check; only the leading bytes count.
func TestClassifyChecksLeadingBytesOnly(t *testing.T) {
	head := []byte("col1\tcol2\n\x09\x09value")
	assert.Equal(t, KindDelimitedText, Classify(head))
}
