package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore/memory"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

type rejectingStore struct {
	docstore.Store
	reject string
}

func (r *rejectingStore) StoreDocument(ctx context.Context, content string) (docstore.DocumentID, error) {
	if content == r.reject {
		return "", apperrors.Unavailable("insert", errors.New("down"))
	}
	return r.Store.StoreDocument(ctx, content)
}

func newHandler(reject string) (*Handler, *indexer.Engine, *int) {
	engine := indexer.NewEngine(&rejectingStore{Store: memory.New(), reject: reject}, index.NewMemoryIndex(), indexer.Options{})
	h := New(engine, 1024)
	invalidations := 0
	h.OnIngest = func(context.Context) { invalidations++ }
	return h, engine, &invalidations
}

func post(t *testing.T, fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestIngest_Single(t *testing.T) {
	h, engine, invalidations := newHandler("")
	rec := post(t, h.Ingest, `{"text":"Example document"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ingestion.IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	require.Len(t, resp.Documents, 1)
	assert.NotEmpty(t, resp.Documents[0].DocumentID)
	assert.Equal(t, 1, *invalidations)

	got, err := engine.FindWithWords(context.Background(), []string{"example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Example document"}, got)
}

func TestIngest_PartialFailure(t *testing.T) {
	h, _, _ := newHandler("bad")
	rec := post(t, h.Ingest, `{"texts":["good","bad","fine"]}`)
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var resp ingestion.IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Accepted)
	assert.Equal(t, 1, resp.Failed)
	assert.Empty(t, resp.Documents[1].DocumentID)
	assert.NotEmpty(t, resp.Documents[1].Error)
}

func TestIngest_AllFailed(t *testing.T) {
	h, _, invalidations := newHandler("bad")
	rec := post(t, h.Ingest, `{"text":"bad"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, *invalidations)
}

func TestIngest_BadRequests(t *testing.T) {
	h, _, _ := newHandler("")
	for _, body := range []string{`not json`, `{}`, `{"texts":[]}`, `{"text":"` + strings.Repeat("x", 2000) + `"}`} {
		rec := post(t, h.Ingest, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestIngestStream(t *testing.T) {
	h, engine, _ := newHandler("")
	body := `{"text":"alpha beta"}` + "\n" + `oops` + "\n" + `{"text":"beta gamma"}` + "\n"
	rec := post(t, h.IngestStream, body)
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var resp struct {
		Pulled  int                        `json:"pulled"`
		Indexed int                        `json:"indexed"`
		Failed  int                        `json:"failed"`
		Errors  []ingestion.DocumentResult `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Pulled)
	assert.Equal(t, 2, resp.Indexed)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Index)

	got, err := engine.FindWithWords(context.Background(), []string{"beta"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha beta", "beta gamma"}, got)
}

func TestIngestStream_Clean(t *testing.T) {
	h, _, _ := newHandler("")
	rec := post(t, h.IngestStream, `{"text":"one"}`+"\n"+`{"text":"two"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

type stubPublisher struct {
	texts []string
	err   error
}

func (s *stubPublisher) Publish(_ context.Context, texts []string) (int, error) {
	s.texts = texts
	return len(texts), s.err
}

func TestAsyncIngest(t *testing.T) {
	pub := &stubPublisher{}
	rec := post(t, NewAsync(pub, 0).Ingest, `{"texts":["a","b"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"a", "b"}, pub.texts)

	var resp ingestion.PublishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Published)
}

func TestAsyncIngest_BrokerDown(t *testing.T) {
	pub := &stubPublisher{err: apperrors.Unavailable("publish", errors.New("down"))}
	rec := post(t, NewAsync(pub, 0).Ingest, `{"text":"a"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBodyError(t *testing.T) {
	err := bodyError(&http.MaxBytesError{Limit: 1024})
	assert.Equal(t, http.StatusRequestEntityTooLarge, apperrors.HTTPStatusCode(err))
	assert.ErrorContains(t, err, "body exceeds 1024 bytes")

	err = bodyError(io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatusCode(err))
}
