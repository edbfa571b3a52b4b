// Package storage puts circuit breakers in front of network-backed document
// stores and inverted indexes, and builds the backend pair selected in
// configuration.
package storage

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/resilience"
)

// GuardedStore trips its breaker after repeated ErrStorageUnavailable
// failures and then fails fast until the reset timeout elapses.
// ErrDocumentNotFound does not count as a failure.
type GuardedStore struct {
	next docstore.Store
	cb   *resilience.CircuitBreaker
}

func NewGuardedStore(next docstore.Store, cb *resilience.CircuitBreaker) *GuardedStore {
	return &GuardedStore{next: next, cb: cb}
}

func (g *GuardedStore) StoreDocument(ctx context.Context, content string) (docstore.DocumentID, error) {
	var id docstore.DocumentID
	err := g.cb.Execute(func() error {
		var err error
		id, err = g.next.StoreDocument(ctx, content)
		return err
	})
	return id, openAsUnavailable("storing document", err)
}

func (g *GuardedStore) GetDocuments(ctx context.Context, ids []docstore.DocumentID) ([]string, error) {
	var docs []string
	err := g.cb.Execute(func() error {
		var err error
		docs, err = g.next.GetDocuments(ctx, ids)
		return err
	})
	return docs, openAsUnavailable("fetching documents", err)
}

// GuardedIndex is the InvertedIndex counterpart of GuardedStore.
type GuardedIndex struct {
	next index.InvertedIndex
	cb   *resilience.CircuitBreaker
}

func NewGuardedIndex(next index.InvertedIndex, cb *resilience.CircuitBreaker) *GuardedIndex {
	return &GuardedIndex{next: next, cb: cb}
}

func (g *GuardedIndex) Add(ctx context.Context, token string, id docstore.DocumentID) error {
	err := g.cb.Execute(func() error {
		return g.next.Add(ctx, token, id)
	})
	return openAsUnavailable("registering token", err)
}

func (g *GuardedIndex) Get(ctx context.Context, token string) ([]docstore.DocumentID, error) {
	var ids []docstore.DocumentID
	err := g.cb.Execute(func() error {
		var err error
		ids, err = g.next.Get(ctx, token)
		return err
	})
	return ids, openAsUnavailable("reading postings", err)
}

func (g *GuardedIndex) GetIntersection(ctx context.Context, tokens []string) ([]docstore.DocumentID, error) {
	var ids []docstore.DocumentID
	err := g.cb.Execute(func() error {
		var err error
		ids, err = g.next.GetIntersection(ctx, tokens)
		return err
	})
	return ids, openAsUnavailable("intersecting postings", err)
}

// NewBreaker returns a breaker that only counts backend outages, so
// cancelled requests and missing documents never open the circuit.
func NewBreaker(name string, cfg resilience.CircuitBreakerConfig) *resilience.CircuitBreaker {
	cfg.IsFailure = func(err error) bool {
		return errors.Is(err, apperrors.ErrStorageUnavailable)
	}
	return resilience.NewCircuitBreaker(name, cfg)
}

func openAsUnavailable(op string, err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.Unavailable(op, err)
	}
	return err
}
