// Package tokenizer provides text tokenisation for the search engine.
// It splits on non-word boundaries and lower-cases every word. There is no
// stemming and no stop-word list: "with" and "a" are tokens like any other.
package tokenizer

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize returns a lazy sequence of normalised tokens. A token is a
// maximal run of letters, digits and underscores; everything else is a
// boundary and is dropped. Combining marks extend the current token, so
// decomposed and precomposed spellings split the same way.
func Tokenize(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if isWordRune(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 && unicode.Is(unicode.Mn, r) {
				continue
			}
			if start >= 0 {
				if !yield(Normalize(text[start:i])) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(Normalize(text[start:]))
		}
	}
}

// Normalize applies the token normalisation step to a single word without
// any boundary splitting.
func Normalize(word string) string {
	return strings.ToLower(word)
}

// Distinct returns each token of text once, in first-occurrence order.
func Distinct(text string) []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0, utf8.RuneCountInString(text)/6+1)
	for term := range Tokenize(text) {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
