package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore/memory"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
)

func newEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	e := indexer.NewEngine(memory.New(), index.NewMemoryIndex(), indexer.Options{})
	_, err := e.AddDocuments(context.Background(), []string{
		"Example document with a single sentence",
		"Example document with multiple sentences. And punctuation",
		"",
	})
	require.NoError(t, err)
	return e
}

func search(t *testing.T, h *Handler, rawQuery string) (*httptest.ResponseRecorder, cache.Result) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?"+rawQuery, nil))
	var result cache.Result
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	}
	return rec, result
}

func TestSearch(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := New(newEngine(t), nil, 8, m)

	tests := []struct {
		query string
		total int
	}{
		{query: "q=example+document", total: 2},
		{query: "q=Example-DOCUMENT", total: 2},
		{query: "q=single+punctuation", total: 0},
		{query: "word=example&word=Single", total: 1},
		{query: "word=example+document", total: 0},
		{query: "q=", total: 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, result := search(t, h, tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.total, result.Total)
			assert.Len(t, result.Documents, tt.total)
		})
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
}

func TestSearch_ResultOrder(t *testing.T) {
	h := New(newEngine(t), nil, 8, nil)
	_, result := search(t, h, "q=example")
	assert.Equal(t, []string{
		"Example document with a single sentence",
		"Example document with multiple sentences. And punctuation",
	}, result.Documents)
	assert.Equal(t, []string{"example"}, result.Words)
}

func TestSearch_BadRequest(t *testing.T) {
	h := New(newEngine(t), nil, 2, nil)

	rec, _ := search(t, h, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = search(t, h, "q=a+b+c")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenFinder struct{}

func (brokenFinder) FindWithWords(context.Context, []string) ([]string, error) {
	return nil, apperrors.Unavailable("sinter", errors.New("connection refused"))
}

func TestSearch_BackendUnavailable(t *testing.T) {
	h := New(brokenFinder{}, nil, 8, nil)
	rec, _ := search(t, h, "q=example")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCacheEndpoints_Disabled(t *testing.T) {
	h := New(brokenFinder{}, nil, 8, nil)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.NotPanics(t, func() { h.InvalidateCache(context.Background()) })
}
