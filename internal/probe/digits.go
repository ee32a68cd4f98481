package probe

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// asciiDigits rewrites every Unicode decimal digit (Arabic-Indic, Extended
// Arabic-Indic and the rest of category Nd) as its ASCII counterpart. Other
// runes pass through unchanged.
func asciiDigits(s string) string {
	i := 0
	for i < len(s) && s[i] < utf8.RuneSelf {
		i++
	}
	if i == len(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:i])
	for _, r := range s[i:] {
		if r >= utf8.RuneSelf && unicode.Is(unicode.Nd, r) {
			b.WriteByte(byte('0' + digitValue(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// digitValue returns the value of an Nd rune. Nd code points come in
// contiguous runs made of whole 0-9 blocks.
func digitValue(r rune) int {
	start := r
	for unicode.Is(unicode.Nd, start-1) {
		start--
	}
	return int(r-start) % 10
}
