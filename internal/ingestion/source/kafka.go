package source

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/kafka"
)

// Fetcher is the part of kafka.Consumer a Kafka source needs.
type Fetcher interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// Kafka streams DocumentEvents from a consumer group. A message is
// committed only when Ack is called for it. Until then Next keeps returning
// the same text, and a crash redelivers it from the broker.
type Kafka struct {
	fetcher     Fetcher
	pending     *kafka.Message
	pendingText string
	logger      *slog.Logger
}

func NewKafka(fetcher Fetcher) *Kafka {
	return &Kafka{
		fetcher: fetcher,
		logger:  slog.Default().With("component", "kafka-source"),
	}
}

// Next fetches the next event, or replays the unacked one. Undecodable
// messages are committed and reported as *ItemError so they are not
// redelivered forever.
func (k *Kafka) Next(ctx context.Context) (string, error) {
	if k.pending != nil {
		k.logger.Debug("replaying unacked event",
			"partition", k.pending.Partition,
			"offset", k.pending.Offset,
		)
		return k.pendingText, nil
	}
	msg, err := k.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperrors.Unavailable("fetching kafka message", err)
	}

	event, err := kafka.DecodeJSON[ingestion.DocumentEvent](msg.Value)
	if err != nil {
		k.logger.Error("dropping undecodable event",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		if cerr := k.fetcher.Commit(ctx, msg); cerr != nil {
			return "", apperrors.Unavailable("committing kafka offset", cerr)
		}
		return "", &ItemError{Position: int(msg.Offset), Err: err}
	}

	k.pending = &msg
	k.pendingText = event.Text
	return event.Text, nil
}

// Ack commits the message behind the last text returned by Next.
func (k *Kafka) Ack(ctx context.Context) error {
	if k.pending == nil {
		return nil
	}
	if err := k.fetcher.Commit(ctx, *k.pending); err != nil {
		return apperrors.Unavailable("committing kafka offset", err)
	}
	k.pending = nil
	k.pendingText = ""
	return nil
}
