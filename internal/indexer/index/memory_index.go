package index

import (
	"context"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
)

var _ InvertedIndex = (*MemoryIndex)(nil)

type MemoryIndex struct {
	mu    sync.RWMutex
	index map[string]map[docstore.DocumentID]struct{}
	pairs int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[docstore.DocumentID]struct{}),
	}
}

func (m *MemoryIndex) Add(ctx context.Context, token string, id docstore.DocumentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, exists := m.index[token]
	if !exists {
		docs = make(map[docstore.DocumentID]struct{})
		m.index[token] = docs
	}
	if _, dup := docs[id]; !dup {
		docs[id] = struct{}{}
		m.pairs++
	}
	return nil
}

func (m *MemoryIndex) Get(ctx context.Context, token string) ([]docstore.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedIDs(m.index[token]), nil
}

// GetIntersection starts from the smallest postings set and filters it
// against the others.
func (m *MemoryIndex) GetIntersection(ctx context.Context, tokens []string) ([]docstore.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens = uniqueTokens(tokens)
	if len(tokens) == 0 {
		return []docstore.DocumentID{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sets := make([]map[docstore.DocumentID]struct{}, 0, len(tokens))
	shortest := 0
	for _, token := range tokens {
		docs, exists := m.index[token]
		if !exists {
			return []docstore.DocumentID{}, nil
		}
		if len(sets) == 0 || len(docs) < len(sets[shortest]) {
			shortest = len(sets)
		}
		sets = append(sets, docs)
	}

	candidates := make(map[docstore.DocumentID]struct{}, len(sets[shortest]))
	for id := range sets[shortest] {
		candidates[id] = struct{}{}
	}
	for i, docs := range sets {
		if i == shortest {
			continue
		}
		for id := range candidates {
			if _, ok := docs[id]; !ok {
				delete(candidates, id)
			}
		}
		if len(candidates) == 0 {
			break
		}
	}
	return sortedIDs(candidates), nil
}

// Terms returns the number of distinct tokens.
func (m *MemoryIndex) Terms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

// Pairs returns the number of distinct (token, document) registrations.
func (m *MemoryIndex) Pairs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pairs
}
