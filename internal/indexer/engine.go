// Package indexer ties a document store to an inverted index. The Engine
// stores raw texts, registers their tokens, and answers conjunctive word
// queries by intersecting postings.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
)

// Options tunes ingestion fan-out. Zero values mean 1.
type Options struct {
	// RegisterConcurrency bounds concurrent token registrations for one
	// document.
	RegisterConcurrency int
	// BatchConcurrency bounds concurrent documents in AddDocuments. Above 1,
	// ids are no longer assigned in input order.
	BatchConcurrency int
	Metrics          *metrics.Metrics
}

// OptionsFromConfig maps the indexer config section onto Options.
func OptionsFromConfig(cfg config.IndexerConfig, m *metrics.Metrics) Options {
	return Options{
		RegisterConcurrency: cfg.RegisterConcurrency,
		BatchConcurrency:    cfg.BatchConcurrency,
		Metrics:             m,
	}
}

// maxStreamFailures caps the failures one AddDocumentsStream run keeps for
// its BatchError. Later failures are only logged and counted.
const maxStreamFailures = 1000

// StreamStats summarises one AddDocumentsStream run.
type StreamStats struct {
	Pulled  int
	Indexed int
	Failed  int
}

type Engine struct {
	store   docstore.Store
	index   index.InvertedIndex
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEngine(store docstore.Store, idx index.InvertedIndex, opts Options) *Engine {
	opts.RegisterConcurrency = max(opts.RegisterConcurrency, 1)
	opts.BatchConcurrency = max(opts.BatchConcurrency, 1)
	return &Engine{
		store:   store,
		index:   idx,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// AddDocument stores text and registers each of its distinct tokens. It
// returns only after every registration has finished. If any registration
// fails the id is still returned together with an *IndexError.
func (e *Engine) AddDocument(ctx context.Context, text string) (docstore.DocumentID, error) {
	start := time.Now()
	tokens := tokenizer.Distinct(text)

	id, err := e.store.StoreDocument(ctx, text)
	if err != nil {
		e.countFailure("store")
		return "", fmt.Errorf("storing document: %w", err)
	}

	if err := e.register(ctx, id, tokens); err != nil {
		e.countFailure("register")
		e.logger.Warn("document stored but not fully indexed",
			"doc_id", id,
			"tokens", len(tokens),
			"error", err,
		)
		return id, err
	}

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.TokensPerDocument.Observe(float64(len(tokens)))
		e.metrics.IndexLatency.Observe(time.Since(start).Seconds())
	}
	e.logger.Debug("document indexed",
		"doc_id", id,
		"tokens", len(tokens),
		"duration", time.Since(start),
	)
	return id, nil
}

// register adds (token, id) for every token. A failed registration does not
// cancel the others.
func (e *Engine) register(ctx context.Context, id docstore.DocumentID, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	var (
		mu     sync.Mutex
		failed = make(map[string]error)
		g      errgroup.Group
	)
	g.SetLimit(e.opts.RegisterConcurrency)
	for _, token := range tokens {
		g.Go(func() error {
			if err := e.index.Add(ctx, token, id); err != nil {
				mu.Lock()
				failed[token] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if e.metrics != nil {
		e.metrics.TokenRegistrations.Add(float64(len(tokens) - len(failed)))
	}
	if len(failed) == 0 {
		return nil
	}

	idxErr := &IndexError{DocumentID: id}
	errs := make([]error, 0, len(failed))
	for _, token := range tokens {
		if err, ok := failed[token]; ok {
			idxErr.Failed = append(idxErr.Failed, token)
			errs = append(errs, fmt.Errorf("token %q: %w", token, err))
		}
	}
	idxErr.Err = errors.Join(errs...)
	return idxErr
}

// AddDocuments ingests texts, continuing past failures. The returned ids are
// aligned with texts; a document that could not be stored has an empty id.
// Failures are reported together as a *BatchError and nothing is rolled
// back.
func (e *Engine) AddDocuments(ctx context.Context, texts []string) ([]docstore.DocumentID, error) {
	ids := make([]docstore.DocumentID, len(texts))
	errs := make([]error, len(texts))

	var g errgroup.Group
	g.SetLimit(e.opts.BatchConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			ids[i], errs[i] = e.AddDocument(ctx, text)
			return nil
		})
	}
	_ = g.Wait()

	var failures []*IngestError
	for i, err := range errs {
		if err != nil {
			failures = append(failures, &IngestError{Index: i, DocumentID: ids[i], Err: err})
		}
	}
	if len(failures) > 0 {
		e.logger.Warn("batch partially failed",
			"documents", len(texts),
			"failed", len(failures),
		)
		return ids, &BatchError{Attempted: len(texts), Failures: failures}
	}
	e.logger.Info("batch indexed", "documents", len(texts))
	return ids, nil
}

// AddDocumentsStream pulls texts from src one at a time and does not pull
// the next until the current one is stored and fully registered. It keeps
// going past failed documents and stops at io.EOF, a source error, or when
// ctx is done. If src is a source.Acker it is acked after each document,
// except one the store could not take: that ends the stream unacked.
func (e *Engine) AddDocumentsStream(ctx context.Context, src source.Source) (StreamStats, error) {
	var (
		stats    StreamStats
		failures []*IngestError
		omitted  int
		position int
	)
	fail := func(f *IngestError) {
		stats.Failed++
		if len(failures) < maxStreamFailures {
			failures = append(failures, f)
		} else {
			omitted++
		}
	}
	result := func(cause error) (StreamStats, error) {
		if cause == nil && stats.Failed == 0 {
			return stats, nil
		}
		return stats, &BatchError{Attempted: position, Failures: failures, Omitted: omitted, Cause: cause}
	}

	for {
		text, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var itemErr *source.ItemError
			if !errors.As(err, &itemErr) {
				e.logger.Warn("stream stopped", "position", position, "error", err)
				return result(fmt.Errorf("reading source: %w", err))
			}
			e.countFailure("source")
			e.logger.Warn("skipping unreadable stream item", "position", position, "error", err)
			fail(&IngestError{Index: position, Err: err})
			position++
			continue
		}

		stats.Pulled++
		if e.metrics != nil {
			e.metrics.StreamDocumentsPending.Inc()
		}
		id, err := e.AddDocument(ctx, text)
		if e.metrics != nil {
			e.metrics.StreamDocumentsPending.Dec()
		}
		acker, acks := src.(source.Acker)
		if err != nil {
			e.logger.Warn("stream document failed", "position", position, "doc_id", id, "error", err)
			fail(&IngestError{Index: position, DocumentID: id, Err: err})
			// Acking a document the store never took would lose it; stop
			// and let the source hand it out again.
			if acks && id == "" && errors.Is(err, apperrors.ErrStorageUnavailable) {
				return result(fmt.Errorf("storing document %d: %w", position, err))
			}
		} else {
			stats.Indexed++
		}
		position++

		// A document interrupted by cancellation is left unacked.
		if ctx.Err() != nil {
			return result(ctx.Err())
		}
		if acks {
			if err := acker.Ack(ctx); err != nil {
				return result(fmt.Errorf("acknowledging document %d: %w", position-1, err))
			}
		}
	}

	e.logger.Info("stream exhausted",
		"pulled", stats.Pulled,
		"indexed", stats.Indexed,
		"failed", stats.Failed,
	)
	return result(nil)
}

// FindWithWords returns the text of every document containing all of words.
// Each word is only case-folded, never split, so a word containing a
// separator matches nothing. No words or no match yields an empty slice.
func (e *Engine) FindWithWords(ctx context.Context, words []string) ([]string, error) {
	if len(words) == 0 {
		return []string{}, nil
	}
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, tokenizer.Normalize(w))
	}
	slices.Sort(tokens)
	tokens = slices.Compact(tokens)

	ids, err := e.index.GetIntersection(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("intersecting postings: %w", err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	docs, err := e.store.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving %d documents: %w", len(ids), err)
	}
	return docs, nil
}

func (e *Engine) countFailure(stage string) {
	if e.metrics != nil {
		e.metrics.IngestFailuresTotal.WithLabelValues(stage).Inc()
	}
}
