// Package consumer feeds documents published on the ingest topic into the
// indexer engine, one message at a time.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/source"
)

const defaultRestartDelay = 2 * time.Second

// Ingester is the part of indexer.Engine the consumer drives.
type Ingester interface {
	AddDocumentsStream(ctx context.Context, src source.Source) (indexer.StreamStats, error)
}

// IndexConsumer keeps a stream running over a Kafka source until its
// context is cancelled. When the stream stops on a source error it is
// restarted after a delay.
type IndexConsumer struct {
	engine       Ingester
	src          source.Source
	restartDelay time.Duration
	logger       *slog.Logger
}

func New(engine Ingester, src source.Source) *IndexConsumer {
	return &IndexConsumer{
		engine:       engine,
		src:          src,
		restartDelay: defaultRestartDelay,
		logger:       slog.Default().With("component", "index-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	var total indexer.StreamStats
	for {
		stats, err := ic.engine.AddDocumentsStream(ctx, ic.src)
		total.Pulled += stats.Pulled
		total.Indexed += stats.Indexed
		total.Failed += stats.Failed

		if ctx.Err() != nil {
			ic.logger.Info("index consumer stopped",
				"pulled", total.Pulled,
				"indexed", total.Indexed,
				"failed", total.Failed,
			)
			return nil
		}

		var batchErr *indexer.BatchError
		switch {
		case err == nil:
			// Kafka never reports io.EOF; a clean return only happens
			// when the source is finite.
			return nil
		case errors.As(err, &batchErr) && batchErr.Cause == nil:
			ic.logger.Warn("documents failed to index", "failed", len(batchErr.Failures), "error", err)
			return nil
		default:
			ic.logger.Error("stream interrupted, restarting", "error", err, "delay", ic.restartDelay)
		}

		timer := time.NewTimer(ic.restartDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
