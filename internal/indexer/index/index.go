// Package index defines the inverted index capability (token -> set of
// document ids) and its bundled backends: an in-memory set map, a roaring
// bitmap variant and a Redis set variant.
package index

import (
	"context"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
)

// InvertedIndex maps a normalised token to the set of documents containing
// it.
//
// Add is idempotent. Get on a token that was never added returns an empty
// result, not an error. GetIntersection returns the ids present in every
// token's postings set; it returns nothing for an empty token list and
// nothing as soon as one token is unknown. The contract makes no ordering
// promise. The bundled backends return ids sorted ascending.
type InvertedIndex interface {
	Add(ctx context.Context, token string, id docstore.DocumentID) error
	Get(ctx context.Context, token string) ([]docstore.DocumentID, error)
	GetIntersection(ctx context.Context, tokens []string) ([]docstore.DocumentID, error)
}

func sortedIDs(set map[docstore.DocumentID]struct{}) []docstore.DocumentID {
	out := make([]docstore.DocumentID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// uniqueTokens drops repeated query tokens so backends do not intersect a
// set with itself.
func uniqueTokens(tokens []string) []string {
	out := slices.Clone(tokens)
	slices.Sort(out)
	return slices.Compact(out)
}
