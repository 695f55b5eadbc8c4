// Package textnorm holds the pure text normalization used by every matching
// stage. Same input always yields the same output; no state, no config.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, removes diacritics, drops punctuation (keeping
// letters, digits, and spaces) and collapses runs of whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits normalized text into words.
func Tokens(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}

// Tight removes everything but letters and digits, for alias variants like
// "fordf150".
func Tight(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "")
}

// ContainsWord reports whether the normalized form of text contains phrase as
// a whole-word (or whole-phrase) occurrence.
func ContainsWord(text, phrase string) bool {
	t := " " + Normalize(text) + " "
	p := Normalize(phrase)
	if p == "" {
		return false
	}
	return strings.Contains(t, " "+p+" ")
}
