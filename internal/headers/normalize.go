// Package headers cleans raw CSV header text and maps it to canonical field
// identifiers.
//
// The source files mix Arabic and English headers and are frequently exported
// with a UTF-8 byte-order mark glued to the first header and with invisible
// directional marks around Arabic text. Clean removes those so that the same
// header written by two different exporters compares equal.
package headers

import "strings"

const bom = '\ufeff'

// isInvisible reports whether r is a zero-width or directional mark that is
// dropped from headers: ZWSP, ZWNJ, ZWJ, LRM, RLM and BOM.
func isInvisible(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u200e', '\u200f', bom:
		return true
	}
	return false
}

// Clean trims surrounding whitespace, strips a leading BOM and removes every
// invisible mark. The result is both the display name and the canonical
// lookup key. Clean never fails; the result may be empty.
func Clean(raw string) string {
	h := strings.TrimSpace(raw)
	h = strings.TrimLeft(h, string(bom))
	return strings.Map(func(r rune) rune {
		if isInvisible(r) {
			return -1
		}
		return r
	}, h)
}

// CleanAll applies Clean to every header, preserving order.
func CleanAll(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		out[i] = Clean(h)
	}
	return out
}
