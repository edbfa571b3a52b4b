package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/kafka"
)

func drain(t *testing.T, src Source) []string {
	t.Helper()
	var out []string
	for {
		text, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, text)
	}
}

func TestSlice(t *testing.T) {
	src := FromSlice([]string{"a", "", "c"})
	assert.Equal(t, []string{"a", "", "c"}, drain(t, src))

	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF, "exhausted source stays exhausted")
}

func TestSlice_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FromSlice([]string{"a"}).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeq(t *testing.T) {
	src := FromSeq(slices.Values([]string{"one", "two"}))
	defer src.Close()
	assert.Equal(t, []string{"one", "two"}, drain(t, src))
}

func TestLines_Plain(t *testing.T) {
	r := strings.NewReader("first doc\n\n  \nsecond doc\r\nthird")
	assert.Equal(t, []string{"first doc", "second doc", "third"}, drain(t, NewLines(r, Plain, 0)))
}

func TestLines_NDJSON(t *testing.T) {
	r := strings.NewReader(`{"text":"Example document"}` + "\n" +
		`{"text":""}` + "\n" +
		`not json` + "\n" +
		`{"title":"no text"}` + "\n" +
		`{"text":"last"}`)
	src := NewLines(r, NDJSON, 0)
	ctx := context.Background()

	text, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Example document", text)

	text, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", text, "an empty text is still a document")

	for _, line := range []int{3, 4} {
		_, err = src.Next(ctx)
		var itemErr *ItemError
		require.ErrorAs(t, err, &itemErr)
		assert.Equal(t, line, itemErr.Position)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}

	text, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last", text)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLines_TooLong(t *testing.T) {
	r := strings.NewReader("short\n" + strings.Repeat("x", 100) + "\n")
	src := NewLines(r, Plain, 16)

	text, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "short", text)

	_, err = src.Next(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	var itemErr *ItemError
	assert.False(t, errors.As(err, &itemErr), "an oversized line ends the stream")
}

type fakeFetcher struct {
	messages  []kafka.Message
	committed []int64
	fetchErr  error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (kafka.Message, error) {
	if f.fetchErr != nil {
		return kafka.Message{}, f.fetchErr
	}
	if len(f.messages) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeFetcher) Commit(_ context.Context, msg kafka.Message) error {
	f.committed = append(f.committed, msg.Offset)
	return nil
}

func event(t *testing.T, offset int64, text string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(ingestion.DocumentEvent{Text: text})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: value}
}

func TestKafka_CommitsOnAck(t *testing.T) {
	f := &fakeFetcher{messages: []kafka.Message{event(t, 0, "alpha"), event(t, 1, "beta")}}
	src := NewKafka(f)
	ctx := context.Background()

	text, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", text)
	assert.Empty(t, f.committed, "nothing is committed before the document is acked")

	require.NoError(t, src.Ack(ctx))
	assert.Equal(t, []int64{0}, f.committed)

	require.NoError(t, src.Ack(ctx), "double ack is a no-op")
	assert.Equal(t, []int64{0}, f.committed)

	text, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "beta", text)
}

func TestKafka_SkipsUndecodable(t *testing.T) {
	f := &fakeFetcher{messages: []kafka.Message{{Offset: 7, Value: []byte("{broken")}}}
	src := NewKafka(f)

	_, err := src.Next(context.Background())
	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, 7, itemErr.Position)
	assert.Equal(t, []int64{7}, f.committed)
}

func TestKafka_FetchFailureIsUnavailable(t *testing.T) {
	src := NewKafka(&fakeFetcher{fetchErr: errors.New("broker down")})
	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestKafka_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKafka(&fakeFetcher{}).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKafka_ReplaysUntilAcked(t *testing.T) {
	f := &fakeFetcher{messages: []kafka.Message{event(t, 3, "alpha"), event(t, 4, "beta")}}
	src := NewKafka(f)
	ctx := context.Background()

	text, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", text)

	text, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", text, "an unacked event is handed out again")
	assert.Len(t, f.messages, 1, "no new fetch while an event is pending")
	assert.Empty(t, f.committed)

	require.NoError(t, src.Ack(ctx))
	text, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "beta", text)
	assert.Equal(t, []int64{3}, f.committed)
}
