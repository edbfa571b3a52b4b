package indexer

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

// IndexError means the document was stored but at least one of its tokens
// was not registered. The document stays stored and is missing from the
// postings of every token in Failed.
type IndexError struct {
	DocumentID docstore.DocumentID
	Failed     []string
	Err        error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("document %s stored but %d token(s) not indexed: %v", e.DocumentID, len(e.Failed), e.Err)
}

func (e *IndexError) Unwrap() []error {
	return []error{apperrors.ErrConsistencyDrift, e.Err}
}

// IngestError is one failed document within a batch or stream. Index is the
// document's position in the input; DocumentID is empty unless the document
// was stored before failing.
type IngestError struct {
	Index      int
	DocumentID docstore.DocumentID
	Err        error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("document %d: %v", e.Index, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// BatchError reports a partially failed batch or stream. Documents not
// listed in Failures were fully indexed. Cause is set when a stream stopped
// early.
type BatchError struct {
	Attempted int
	Failures  []*IngestError
	// Omitted counts failures past the retention cap of a long stream. They
	// were logged but are not listed in Failures.
	Omitted int
	Cause   error
}

func (e *BatchError) Error() string {
	var b strings.Builder
	if e.Cause != nil {
		fmt.Fprintf(&b, "stream stopped after %d documents: %v", e.Attempted, e.Cause)
		if len(e.Failures) == 0 {
			return b.String()
		}
		b.WriteString("; ")
	}
	fmt.Fprintf(&b, "%d of %d documents failed: %v", len(e.Failures)+e.Omitted, e.Attempted, e.failures())
	if e.Omitted > 0 {
		fmt.Fprintf(&b, "; and %d more", e.Omitted)
	}
	return b.String()
}

func (e *BatchError) Unwrap() []error {
	errs := e.failures().WrappedErrors()
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func (e *BatchError) failures() *multierror.Error {
	merr := &multierror.Error{ErrorFormat: joinErrors}
	for _, f := range e.Failures {
		merr = multierror.Append(merr, f)
	}
	return merr
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
