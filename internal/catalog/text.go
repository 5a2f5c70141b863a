package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics, so "Frein Arrière" folds to "frein arriere".
func Fold(s string) string {
	// transform chains keep internal state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// MatchWords reports whether every word of term occurs in haystack after
// folding. An empty term matches everything.
func MatchWords(term, haystack string) bool {
	words := strings.Fields(Fold(term))
	if len(words) == 0 {
		return true
	}
	h := Fold(haystack)
	for _, w := range words {
		if !strings.Contains(h, w) {
			return false
		}
	}
	return true
}
