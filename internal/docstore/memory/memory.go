package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

// Ensure Store implements the interface.
var _ docstore.Store = (*Store)(nil)

// Store is an in-memory implementation of docstore.Store. Each instance
// owns its own map; nothing is shared between instances.
type Store struct {
	mu        sync.RWMutex
	documents map[docstore.DocumentID]string
}

// New creates an empty in-memory document store.
func New() *Store {
	return &Store{
		documents: make(map[docstore.DocumentID]string),
	}
}

// StoreDocument saves content under a fresh id.
func (s *Store) StoreDocument(ctx context.Context, content string) (docstore.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := docstore.NewID()
	if err != nil {
		return "", fmt.Errorf("generating document id: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[id] = content
	return id, nil
}

// GetDocuments returns contents in the order of ids. An unknown id fails the
// whole call.
func (s *Store) GetDocuments(ctx context.Context, ids []docstore.DocumentID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		content, ok := s.documents[id]
		if !ok {
			return nil, fmt.Errorf("document %s: %w", id, apperrors.ErrDocumentNotFound)
		}
		out = append(out, content)
	}
	return out, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}
