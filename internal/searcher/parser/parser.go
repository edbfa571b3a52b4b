// Package parser turns HTTP query parameters into the word list the engine
// searches for.
package parser

import (
	"net/url"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

// Query is a parsed conjunctive query.
type Query struct {
	Words []string
	Raw   string
}

// Parse splits a free-text query into words with the same rules used at
// ingestion, so "Example-Document" searches for "example" and "document".
func Parse(raw string) *Query {
	return &Query{Words: tokenizer.Distinct(raw), Raw: raw}
}

// FromValues reads a query from URL values. Repeated "word" parameters are
// taken verbatim (only case-folded later by the engine); otherwise "q" is
// split with Parse. It fails when neither is present or when the query has
// more than maxWords distinct words.
func FromValues(values url.Values, maxWords int) (*Query, error) {
	var q *Query
	switch {
	case len(values["word"]) > 0:
		q = &Query{Words: slices.Clone(values["word"])}
	case values.Has("q"):
		q = Parse(values.Get("q"))
	default:
		return nil, apperrors.Invalid("query parameter 'q' or 'word' is required")
	}
	if maxWords > 0 && len(q.Words) > maxWords {
		return nil, apperrors.Invalid("at most %d words per query, got %d", maxWords, len(q.Words))
	}
	return q, nil
}

// Key returns the words in the form the engine searches for them:
// case-folded, sorted and without duplicates. Equal keys give equal
// results.
func (q *Query) Key() []string {
	key := make([]string, len(q.Words))
	for i, w := range q.Words {
		key[i] = tokenizer.Normalize(w)
	}
	slices.Sort(key)
	return slices.Compact(key)
}
