package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
)

type mapBackend struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMapBackend() *mapBackend {
	return &mapBackend{data: make(map[string]string)}
}

func (m *mapBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mapBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *mapBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func testConfig() config.RedisConfig {
	return config.RedisConfig{KeyPrefix: "ws:", CacheTTL: time.Minute}
}

func TestGetOrCompute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(newMapBackend(), testConfig(), m)
	ctx := context.Background()
	key := []string{"document", "example"}

	calls := 0
	compute := func() (*Result, error) {
		calls++
		return &Result{Words: key, Total: 1, Documents: []string{"Example document"}}, nil
	}

	first, hit, err := c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := New(newMapBackend(), testConfig(), nil)
	boom := errors.New("index down")

	_, _, err := c.GetOrCompute(context.Background(), []string{"a"}, func() (*Result, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), []string{"a"})
	assert.False(t, ok)
}

func TestGetOrCompute_CollapsesConcurrentMisses(t *testing.T) {
	c := New(newMapBackend(), testConfig(), nil)
	release := make(chan struct{})
	var calls atomic.Int32

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), []string{"slow"}, func() (*Result, error) {
				calls.Add(1)
				<-release
				return &Result{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidate(t *testing.T) {
	backend := newMapBackend()
	backend.data["ws:term:example"] = "postings stay"
	c := New(backend, testConfig(), nil)
	ctx := context.Background()

	c.Set(ctx, []string{"example"}, &Result{Total: 1})
	_, ok := c.Get(ctx, []string{"example"})
	require.True(t, ok)

	require.NoError(t, c.Invalidate(ctx))
	_, ok = c.Get(ctx, []string{"example"})
	assert.False(t, ok)
	assert.Contains(t, backend.data, "ws:term:example", "only search entries are flushed")
}

func TestGet_BackendErrorIsMiss(t *testing.T) {
	backend := newMapBackend()
	backend.getErr = errors.New("timeout")
	c := New(backend, testConfig(), nil)

	_, ok := c.Get(context.Background(), []string{"a"})
	assert.False(t, ok)
	_, misses := c.Stats()
	assert.EqualValues(t, 1, misses)
}

func TestGetOrCompute_InvalidatedDuringComputeIsNotStored(t *testing.T) {
	backend := newMapBackend()
	c := New(backend, testConfig(), nil)
	ctx := context.Background()
	key := []string{"fresh"}

	stale, hit, err := c.GetOrCompute(ctx, key, func() (*Result, error) {
		// a document is ingested while the search is running
		require.NoError(t, c.Invalidate(ctx))
		return &Result{Words: key}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, stale.Total, "the caller still gets its own answer")
	assert.Empty(t, backend.data)

	got, hit, err := c.GetOrCompute(ctx, key, func() (*Result, error) {
		return &Result{Words: key, Total: 1, Documents: []string{"fresh"}}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, got.Total)

	cached, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, got, cached)
}
