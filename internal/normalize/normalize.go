// Package normalize holds the text normalizers applied before training and tokenization.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Func maps raw text to the alphabet a vocabulary is trained on. It must be pure.
type Func func(raw string) string

// inAlphabet is the set of runes Text keeps
var inAlphabet = runes.Predicate(func(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '\'' || r == ' '
})

func spaceOutside(r rune) rune {
	if inAlphabet.Contains(r) {
		return r
	}
	return ' '
}

// stateless, safe to share
var toSpace = runes.Map(spaceOutside)

// Text uppercases raw, replaces every rune outside A-Z, 0-9, apostrophe and space with a space, and
// collapses runs of spaces into one. Leading and trailing spaces are kept.
func Text(raw string) string {
	// cases.Caser and the chain carry state, so they are built per call
	t := transform.Chain(cases.Upper(language.Und), toSpace)
	mapped, _, err := transform.String(t, raw)
	if err != nil {
		mapped = strings.Map(spaceOutside, strings.ToUpper(raw))
	}
	return collapseSpaces(mapped)
}

// Identity returns raw unchanged, for callers that normalize elsewhere.
func Identity(raw string) string {
	return raw
}

func collapseSpaces(s string) string {
	if !strings.Contains(s, "  ") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' && prevSpace {
			continue
		}
		prevSpace = r == ' '
		b.WriteRune(r)
	}
	return b.String()
}
