// Package docstore defines the document storage capability used by the
// search engine. Concrete backends live in the memory, postgres and sqlite
// subpackages.
package docstore

import (
	"context"

	"github.com/google/uuid"
)

// DocumentID is an opaque, store-assigned identifier. Callers must never
// parse or construct one; they only pass back what StoreDocument returned.
type DocumentID string

// Store persists raw document text.
//
// StoreDocument must be atomic: either the document is stored and an id is
// returned, or nothing is observable. GetDocuments returns contents in the
// same order as ids. Every bundled backend fails the whole call with
// errors.ErrDocumentNotFound when an id is unknown. Connection failures are
// reported wrapped in errors.ErrStorageUnavailable and are never retried
// by the store.
type Store interface {
	StoreDocument(ctx context.Context, content string) (DocumentID, error)
	GetDocuments(ctx context.Context, ids []DocumentID) ([]string, error)
}

// NewID returns a fresh time-ordered identifier. Ids generated by one
// process sort lexicographically in creation order.
func NewID() (DocumentID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return DocumentID(id.String()), nil
}

// Strings converts ids to plain strings for drivers and serialisation.
func Strings(ids []DocumentID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
