// Package source provides pull-based document streams for ingestion. A
// Source hands out one document text per Next call and returns io.EOF once
// exhausted.
package source

import (
	"context"
	"fmt"
	"io"
	"iter"
)

// Source is a finite or unbounded stream of document texts.
type Source interface {
	// Next blocks until a text is available. It returns io.EOF when the
	// stream is exhausted; any other error ends the stream unless it is an
	// *ItemError.
	Next(ctx context.Context) (string, error)
}

// Acker is implemented by sources that need to know when the text most
// recently returned by Next has been fully processed.
type Acker interface {
	Ack(ctx context.Context) error
}

// ItemError reports one unreadable item. The stream itself is still usable
// and the consumer may call Next again.
type ItemError struct {
	Position int
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Position, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Slice streams a fixed list of texts in order.
type Slice struct {
	texts []string
	pos   int
}

func FromSlice(texts []string) *Slice {
	return &Slice{texts: texts}
}

func (s *Slice) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.texts) {
		return "", io.EOF
	}
	text := s.texts[s.pos]
	s.pos++
	return text, nil
}

// Seq adapts a Go iterator. Callers must Close it if they stop before
// io.EOF.
type Seq struct {
	next func() (string, bool)
	stop func()
}

func FromSeq(seq iter.Seq[string]) *Seq {
	next, stop := iter.Pull(seq)
	return &Seq{next: next, stop: stop}
}

func (s *Seq) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, ok := s.next()
	if !ok {
		return "", io.EOF
	}
	return text, nil
}

func (s *Seq) Close() error {
	s.stop()
	return nil
}
