// Package handler serves the search and cache administration endpoints.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
)

// Finder is the query side of indexer.Engine.
type Finder interface {
	FindWithWords(ctx context.Context, words []string) ([]string, error)
}

type Handler struct {
	finder   Finder
	cache    *cache.QueryCache
	maxWords int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New builds the search handler. queryCache and m may be nil.
func New(finder Finder, queryCache *cache.QueryCache, maxWords int, m *metrics.Metrics) *Handler {
	return &Handler{
		finder:   finder,
		cache:    queryCache,
		maxWords: maxWords,
		metrics:  m,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=... or ?word=a&word=b and returns the
// text of every document containing all words.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query, err := parser.FromValues(r.URL.Query(), h.maxWords)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	if len(query.Words) == 0 {
		h.observe("zero_result", start, 0)
		h.writeJSON(w, http.StatusOK, &cache.Result{Words: []string{}, Documents: []string{}})
		return
	}

	key := query.Key()
	compute := func() (*cache.Result, error) {
		docs, err := h.finder.FindWithWords(ctx, query.Words)
		if err != nil {
			return nil, err
		}
		return &cache.Result{Words: key, Total: len(docs), Documents: docs}, nil
	}

	var (
		result   *cache.Result
		cacheHit bool
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("search failed", "words", key, "error", err, "status_code", statusCode)
		h.observe("error", start, 0)
		h.writeError(w, statusCode, "search failed")
		return
	}

	resultType := "hit"
	if result.Total == 0 {
		resultType = "zero_result"
	}
	h.observe(resultType, start, result.Total)
	log.Info("search completed",
		"words", key,
		"total_hits", result.Total,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// InvalidateCache drops cached results after new documents were indexed.
func (h *Handler) InvalidateCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		logger.FromContext(ctx).Warn("cache invalidation after ingest failed", "error", err)
	}
}

func (h *Handler) observe(resultType string, start time.Time, results int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(results))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
