// Package ingestion defines the request/response types and Kafka event schemas
// used by the document ingestion pipeline.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by the ingestion endpoints. Exactly
// one of Text or Texts is expected; Text is a pointer so that an empty
// document can be told apart from a missing field.
type IngestRequest struct {
	Text  *string  `json:"text,omitempty"`
	Texts []string `json:"texts,omitempty"`
}

// DocumentResult reports the outcome for one submitted document.
type DocumentResult struct {
	Index      int    `json:"index"`
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// IngestResponse is returned after synchronous ingestion.
type IngestResponse struct {
	Accepted  int              `json:"accepted"`
	Failed    int              `json:"failed"`
	Documents []DocumentResult `json:"documents"`
}

// PublishResponse is returned by the asynchronous (Kafka) ingestion path.
type PublishResponse struct {
	Published int    `json:"published"`
	Status    string `json:"status"`
}

// DocumentEvent is the Kafka message payload carrying one document to the
// indexer.
type DocumentEvent struct {
	Text       string    `json:"text"`
	RequestID  string    `json:"request_id,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}
