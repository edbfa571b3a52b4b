// Package validator checks ingestion requests before any document is
// stored or published, and reports problems per field.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

const (
	// MaxBatchSize caps the number of texts in one request.
	MaxBatchSize = 1000
	// DefaultMaxTextBytes applies when the caller passes no limit.
	DefaultMaxTextBytes = 1 << 20
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Texts returns the documents carried by req. Exactly one of "text" or
// "texts" must be present. Empty texts are valid documents.
func Texts(req *ingestion.IngestRequest, maxTextBytes int) ([]string, error) {
	if maxTextBytes <= 0 {
		maxTextBytes = DefaultMaxTextBytes
	}
	errs := make(map[string]string)

	var texts []string
	switch {
	case req.Text != nil && req.Texts != nil:
		errs["text"] = `"text" and "texts" are mutually exclusive`
	case req.Text != nil:
		texts = []string{*req.Text}
	case req.Texts != nil:
		if len(req.Texts) == 0 {
			errs["texts"] = "at least one text is required"
		} else if len(req.Texts) > MaxBatchSize {
			errs["texts"] = fmt.Sprintf("at most %d texts per request", MaxBatchSize)
		}
		texts = req.Texts
	default:
		errs["text"] = `one of "text" or "texts" is required`
	}

	for i, text := range texts {
		if len(text) > maxTextBytes {
			field := "text"
			if req.Texts != nil {
				field = fmt.Sprintf("texts[%d]", i)
			}
			errs[field] = fmt.Sprintf("must be at most %d bytes", maxTextBytes)
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return texts, nil
}
