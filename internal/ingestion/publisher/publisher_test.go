package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/logger"
)

type recordingWriter struct {
	batches [][]kafka.Event
	err     error
}

func (r *recordingWriter) PublishBatch(_ context.Context, events []kafka.Event) error {
	r.batches = append(r.batches, events)
	return r.err
}

func TestPublish_OneBatchSharedKey(t *testing.T) {
	w := &recordingWriter{}
	p := New(w)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	ctx := logger.WithRequestID(context.Background(), "req-1")
	n, err := p.Publish(ctx, []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, w.batches, 1)
	batch := w.batches[0]
	require.Len(t, batch, 2)
	for i, text := range []string{"first", "second"} {
		assert.Equal(t, "req-1", batch[i].Key)
		assert.Equal(t, ingestion.DocumentEvent{Text: text, RequestID: "req-1", IngestedAt: fixed}, batch[i].Value)
	}
}

func TestPublish_GeneratesKeyWithoutRequestID(t *testing.T) {
	w := &recordingWriter{}
	_, err := New(w).Publish(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.NotEmpty(t, w.batches[0][0].Key)
	assert.Equal(t, w.batches[0][0].Key, w.batches[0][1].Key)
}

func TestPublish_EmptyIsNoop(t *testing.T) {
	w := &recordingWriter{}
	n, err := New(w).Publish(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.batches)
}

func TestPublish_BrokerFailure(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	_, err := New(w).Publish(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}
