package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes runes and drops combining marks, so "Código" and
// "Codigo" normalize to the same bytes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Text lowercases s, removes accent marks and collapses internal whitespace.
// It is used for spreadsheet header matching and product name search, so both
// sides of a comparison must go through it.
func Text(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.Join(strings.Fields(out), " ")
}

// Words splits a free-form query into normalized, non-empty terms.
func Words(query string) []string {
	fields := strings.Fields(query)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := Text(f); w != "" {
			words = append(words, w)
		}
	}
	return words
}
