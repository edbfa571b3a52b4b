// Package publisher hands documents to the indexer asynchronously by
// publishing them to the ingest topic.
package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/logger"
)

// EventWriter is satisfied by *kafka.Producer.
type EventWriter interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	writer EventWriter
	now    func() time.Time
	logger *slog.Logger
}

func New(writer EventWriter) *Publisher {
	return &Publisher{
		writer: writer,
		now:    time.Now,
		logger: slog.Default().With("component", "publisher"),
	}
}

// Publish writes one DocumentEvent per text in a single batch. All events of
// a call share a key, so they land on one partition and are indexed in
// order.
func (p *Publisher) Publish(ctx context.Context, texts []string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	requestID := logger.RequestID(ctx)
	key := requestID
	if key == "" {
		key = uuid.NewString()
	}

	ingestedAt := p.now().UTC()
	events := make([]kafka.Event, len(texts))
	for i, text := range texts {
		events[i] = kafka.Event{
			Key: key,
			Value: ingestion.DocumentEvent{
				Text:       text,
				RequestID:  requestID,
				IngestedAt: ingestedAt,
			},
		}
	}

	if err := p.writer.PublishBatch(ctx, events); err != nil {
		return 0, apperrors.Unavailable("publishing documents", err)
	}
	p.logger.Debug("documents published", "count", len(events), "key", key)
	return len(events), nil
}
