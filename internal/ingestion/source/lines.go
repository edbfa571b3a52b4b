package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

// Format selects how Lines interprets each line.
type Format int

const (
	// Plain treats every non-blank line as one document.
	Plain Format = iota
	// NDJSON expects one {"text": "..."} object per line.
	NDJSON
)

const defaultMaxLineBytes = 1 << 20

type ndjsonDocument struct {
	Text *string `json:"text"`
}

// Lines reads documents from r one line at a time. Blank lines are skipped.
// A line longer than maxLineBytes ends the stream with an error.
type Lines struct {
	scanner *bufio.Scanner
	format  Format
	line    int
}

func NewLines(r io.Reader, format Format, maxLineBytes int) *Lines {
	if maxLineBytes <= 0 {
		maxLineBytes = defaultMaxLineBytes
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineBytes)), maxLineBytes)
	return &Lines{scanner: scanner, format: format}
}

func (l *Lines) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !l.scanner.Scan() {
			if err := l.scanner.Err(); err != nil {
				if errors.Is(err, bufio.ErrTooLong) {
					return "", fmt.Errorf("line %d: %w: %w", l.line+1, apperrors.ErrInvalidInput, err)
				}
				return "", fmt.Errorf("reading line %d: %w", l.line+1, err)
			}
			return "", io.EOF
		}
		l.line++
		raw := l.scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if l.format == Plain {
			return raw, nil
		}

		var doc ndjsonDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return "", &ItemError{Position: l.line, Err: fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)}
		}
		if doc.Text == nil {
			return "", &ItemError{Position: l.line, Err: fmt.Errorf("%w: missing \"text\" field", apperrors.ErrInvalidInput)}
		}
		return *doc.Text, nil
	}
}
