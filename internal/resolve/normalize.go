// Package resolve canonicalizes advisor codes and client identifiers into
// stable matching keys.
package resolve

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letterFolds maps uppercase letters with no decomposition to their ASCII
// spelling.
var letterFolds = strings.NewReplacer(
	"Ø", "O",
	"Æ", "AE",
	"Œ", "OE",
	"ß", "SS",
	"ẞ", "SS",
	"Ł", "L",
	"Đ", "D",
)

// NormalizeKey standardizes a raw identifier for matching by:
//  1. Trimming whitespace
//  2. Converting to uppercase
//  3. Transliterating accented characters to their ASCII base letter and
//     folding letters such as Ø or ß to their ASCII spelling
//  4. Dropping every rune that is not an ASCII letter or digit
//
// The result may be empty; callers decide whether to reject it.
func NormalizeKey(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.ToUpper(s)
	s = stripMarks(s)
	s = letterFolds.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCode normalizes an advisor code. Spreadsheet cells frequently hold
// codes as floats ("74930.0"), so integral numbers lose their fraction before
// NormalizeKey runs.
func NormalizeCode(raw string) string {
	s := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && f == math.Trunc(f) && strings.Contains(s, ".") {
		s = strconv.FormatFloat(f, 'f', 0, 64)
	}
	return NormalizeKey(s)
}

// stripMarks decomposes s and removes nonspacing marks, so "JOÃO" becomes "JOAO".
// A fresh transformer is built per call because transform chains carry state.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
