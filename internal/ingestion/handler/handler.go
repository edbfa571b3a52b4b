// Package handler serves the document ingestion endpoints. Handler indexes
// synchronously through the engine; AsyncHandler publishes to Kafka for the
// indexer process.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies; streamed bodies are bounded per
// line instead.
const maxBodyBytes = 32 << 20

// Ingester is the part of indexer.Engine the handler needs.
type Ingester interface {
	AddDocuments(ctx context.Context, texts []string) ([]docstore.DocumentID, error)
	AddDocumentsStream(ctx context.Context, src source.Source) (indexer.StreamStats, error)
}

// Publisher is the part of publisher.Publisher AsyncHandler needs.
type Publisher interface {
	Publish(ctx context.Context, texts []string) (int, error)
}

type Handler struct {
	engine       Ingester
	maxLineBytes int
	// OnIngest runs after any document was stored, e.g. to drop cached
	// search results.
	OnIngest func(ctx context.Context)
}

func New(engine Ingester, maxLineBytes int) *Handler {
	return &Handler{
		engine:       engine,
		maxLineBytes: maxLineBytes,
	}
}

// Ingest handles POST /api/v1/documents. It answers 201 when every document
// was indexed and 207 when some failed.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	texts, ok := decodeTexts(w, r, h.maxLineBytes)
	if !ok {
		return
	}

	ids, err := h.engine.AddDocuments(ctx, texts)
	resp := ingestion.IngestResponse{Documents: make([]ingestion.DocumentResult, len(texts))}
	for i, id := range ids {
		resp.Documents[i] = ingestion.DocumentResult{Index: i, DocumentID: string(id)}
	}

	var batchErr *indexer.BatchError
	if err != nil && !errors.As(err, &batchErr) {
		log.Error("ingestion failed", "error", err)
		writeError(w, apperrors.HTTPStatusCode(err), "ingestion failed")
		return
	}
	if batchErr != nil {
		for _, f := range batchErr.Failures {
			resp.Documents[f.Index].Error = f.Err.Error()
		}
		resp.Failed = len(batchErr.Failures)
	}
	resp.Accepted = len(texts) - resp.Failed
	if h.stored(ids) && h.OnIngest != nil {
		h.OnIngest(ctx)
	}

	status := http.StatusCreated
	switch {
	case resp.Failed == 0:
	case resp.Accepted == 0 && !h.stored(ids):
		status = apperrors.HTTPStatusCode(batchErr.Failures[0].Err)
	default:
		status = http.StatusMultiStatus
	}
	log.Info("documents ingested",
		"accepted", resp.Accepted,
		"failed", resp.Failed,
		"status_code", status,
	)
	writeJSON(w, status, resp)
}

// IngestStream handles POST /api/v1/documents/stream. The body is NDJSON,
// one {"text": ...} object per line, indexed one document at a time as it
// is read.
func (h *Handler) IngestStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	src := source.NewLines(r.Body, source.NDJSON, h.maxLineBytes)
	stats, err := h.engine.AddDocumentsStream(ctx, src)

	resp := map[string]any{
		"pulled":  stats.Pulled,
		"indexed": stats.Indexed,
		"failed":  stats.Failed,
	}
	if stats.Pulled > 0 && h.OnIngest != nil {
		h.OnIngest(ctx)
	}

	status := http.StatusCreated
	var batchErr *indexer.BatchError
	if errors.As(err, &batchErr) {
		errs := make([]ingestion.DocumentResult, 0, len(batchErr.Failures))
		for _, f := range batchErr.Failures {
			errs = append(errs, ingestion.DocumentResult{Index: f.Index, DocumentID: string(f.DocumentID), Error: f.Err.Error()})
		}
		resp["errors"] = errs
		status = http.StatusMultiStatus
		if batchErr.Cause != nil {
			resp["stopped"] = batchErr.Cause.Error()
			if stats.Pulled == 0 {
				status = apperrors.HTTPStatusCode(batchErr.Cause)
			}
		}
	} else if err != nil {
		status = apperrors.HTTPStatusCode(err)
	}

	log.Info("document stream ingested",
		"pulled", stats.Pulled,
		"indexed", stats.Indexed,
		"failed", stats.Failed,
		"status_code", status,
	)
	writeJSON(w, status, resp)
}

func (h *Handler) stored(ids []docstore.DocumentID) bool {
	for _, id := range ids {
		if id != "" {
			return true
		}
	}
	return false
}

type AsyncHandler struct {
	publisher    Publisher
	maxLineBytes int
}

func NewAsync(pub Publisher, maxLineBytes int) *AsyncHandler {
	return &AsyncHandler{publisher: pub, maxLineBytes: maxLineBytes}
}

// Ingest handles POST /api/v1/documents by publishing the texts and
// answering 202 before they are indexed.
func (h *AsyncHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	texts, ok := decodeTexts(w, r, h.maxLineBytes)
	if !ok {
		return
	}
	n, err := h.publisher.Publish(ctx, texts)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("publishing failed", "error", err, "status_code", statusCode)
		writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("documents published", "count", n)
	writeJSON(w, http.StatusAccepted, ingestion.PublishResponse{Published: n, Status: "PENDING"})
}

func decodeTexts(w http.ResponseWriter, r *http.Request, maxTextBytes int) ([]string, bool) {
	var req ingestion.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		err = bodyError(err)
		writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return nil, false
	}
	texts, err := validator.Texts(&req, maxTextBytes)
	if err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return nil, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return texts, true
}

func bodyError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return apperrors.WithStatus(apperrors.Invalid("body exceeds %d bytes", tooBig.Limit), http.StatusRequestEntityTooLarge)
	}
	return apperrors.Invalid("malformed JSON body")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
