// Package sniffer classifies uploaded spreadsheet bytes by container format.
// It exists to reject the very old binary workbook sub-versions no parser
// reads reliably, and to accept everything else, even when uncertain.
package sniffer

import "unicode"

// Kind is the detected container format of an uploaded file.
type Kind int

const (
	// KindUnknown is any byte pattern the sniffer does not recognize.
	// Unknown files are accepted and handed to the parser fallbacks.
	KindUnknown Kind = iota
	// KindZIPContainer covers OOXML (.xlsx) and ZIP-framed binary
	// workbooks (.xlsb).
	KindZIPContainer
	// KindLegacyBinary is a BIFF2-BIFF5 workbook. This is the only
	// rejected classification.
	KindLegacyBinary
	// KindOLE2 is a compound-file container; BIFF8 workbooks live here
	// and modern Excel still emits them, so they are accepted.
	KindOLE2
	// KindDelimitedText is CSV/TSV-looking plain text.
	KindDelimitedText
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindZIPContainer:
		return "zip-container"
	case KindLegacyBinary:
		return "legacy-binary"
	case KindOLE2:
		return "ole2"
	case KindDelimitedText:
		return "delimited-text"
	default:
		return "unknown"
	}
}

// Rejected reports whether this kind is hard-blocked from further parsing.
func (k Kind) Rejected() bool { return k == KindLegacyBinary }

// Guidance returns user-facing remediation text for rejected kinds and an
// empty string otherwise.
func (k Kind) Guidance() string {
	if k != KindLegacyBinary {
		return ""
	}
	return "이 파일은 매우 구형 Excel(BIFF2-BIFF5) 형식입니다. Excel에서 열어 " +
		".xlsx 형식으로 다시 저장한 뒤 업로드해주세요. " +
		"(re-save the file as .xlsx or CSV and try again)"
}

// BIFF2-BIFF5 BOF record signatures, little-endian. BIFF8 (0x0809) is not
// listed: OLE2-framed BIFF8 still opens in current tools.
var legacyBiffSignatures = map[uint16]bool{
	0x0009: true, // BIFF2
	0x0209: true, // BIFF3
	0x0409: true, // BIFF4
	0x0805: true, // BIFF5 workbook globals
}

var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Classify inspects the first bytes of a file (1 KiB is plenty) and returns
// the detected container kind. Checks run in priority order; the first match
// wins. Ambiguous input is classified KindUnknown and accepted: the only
// failure mode worth hard-blocking is the legacy binary format.
func Classify(head []byte) Kind {
	if isZIP(head) {
		return KindZIPContainer
	}
	if isLegacyBiff(head) {
		return KindLegacyBinary
	}
	if isOLE2(head) {
		return KindOLE2
	}
	if isDelimitedText(head) {
		return KindDelimitedText
	}
	return KindUnknown
}

func isZIP(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	return b[0] == 'P' && b[1] == 'K' &&
		(b[2] == 0x03 || b[2] == 0x05 || b[2] == 0x07) &&
		(b[3] == 0x04 || b[3] == 0x06 || b[3] == 0x08)
}

func isLegacyBiff(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	sig := uint16(b[1])<<8 | uint16(b[0])
	return legacyBiffSignatures[sig]
}

func isOLE2(b []byte) bool {
	if len(b) < len(ole2Magic) {
		return false
	}
	for i, m := range ole2Magic {
		if b[i] != m {
			return false
		}
	}
	return true
}

func isDelimitedText(b []byte) bool {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return true // UTF-8 BOM
	}
	n := len(b)
	if n > 100 {
		n = 100
	}
	if n == 0 {
		return false
	}
	for _, c := range b[:n] {
		if c >= 0x80 {
			// Multi-byte text (EUC-KR, UTF-8 Hangul) classifies as
			// unknown instead, which is accepted anyway.
			return false
		}
		if c < 0x20 && !unicode.IsSpace(rune(c)) {
			return false
		}
	}
	return true
}
