package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore/memory"
	pgstore "github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore/postgres"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore/sqlite"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/resilience"
)

// Backends is the document store and inverted index pair a process serves
// from, plus the connections it opened to build them.
type Backends struct {
	Store docstore.Store
	Index index.InvertedIndex
	// Redis is set when the index lives in Redis, so the query cache can
	// share the connection.
	Redis *pkgredis.Client

	closers []func() error
	checks  map[string]health.Check
}

// Open builds the backends named in cfg.Storage. Network backends are
// connected with retry and wrapped in circuit breakers; m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Backends, error) {
	b := &Backends{checks: make(map[string]health.Check)}
	logger := slog.Default().With("component", "storage")

	store, err := b.openStore(ctx, cfg, m)
	if err != nil {
		b.Close()
		return nil, err
	}
	idx, err := b.openIndex(ctx, cfg, m)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Store, b.Index = store, idx

	logger.Info("storage backends ready",
		"documents", cfg.Storage.Documents,
		"index", cfg.Storage.Index,
	)
	return b, nil
}

func (b *Backends) openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (docstore.Store, error) {
	switch cfg.Storage.Documents {
	case config.BackendMemory:
		return memory.New(), nil

	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s.Close)
		b.checks["sqlite"] = health.Ping(s.Ping)
		return s, nil

	case config.BackendPostgres:
		var client *postgres.Client
		err := resilience.Retry(ctx, "connect-postgres", connectBackoff(cfg.Resilience), func(ctx context.Context) error {
			var err error
			client, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.checks["postgres"] = health.Ping(client.Ping)

		s, err := pgstore.New(ctx, client)
		if err != nil {
			return nil, err
		}
		return NewGuardedStore(s, newBreaker("postgres-docstore", cfg.Resilience, m)), nil
	}
	return nil, fmt.Errorf("unknown document store backend %q", cfg.Storage.Documents)
}

func (b *Backends) openIndex(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (index.InvertedIndex, error) {
	switch cfg.Storage.Index {
	case config.BackendMemory:
		return index.NewMemoryIndex(), nil

	case config.BackendBitmap:
		return index.NewBitmapIndex(), nil

	case config.BackendRedis:
		client, err := OpenRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.Redis = client
		b.closers = append(b.closers, client.Close)
		b.checks["redis"] = health.Ping(client.Ping)
		idx := index.NewRedisIndex(client, cfg.Redis.KeyPrefix)
		return NewGuardedIndex(idx, newBreaker("redis-index", cfg.Resilience, m)), nil
	}
	return nil, fmt.Errorf("unknown index backend %q", cfg.Storage.Index)
}

// OpenRedis connects to Redis, retrying per cfg.Resilience.
func OpenRedis(ctx context.Context, cfg *config.Config) (*pkgredis.Client, error) {
	var client *pkgredis.Client
	err := resilience.Retry(ctx, "connect-redis", connectBackoff(cfg.Resilience), func(ctx context.Context) error {
		var err error
		client, err = pkgredis.NewClient(ctx, cfg.Redis)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// RegisterHealth adds a readiness check for every connection Open made.
func (b *Backends) RegisterHealth(checker *health.Checker) {
	for name, check := range b.checks {
		checker.Register(name, check)
	}
}

// Close releases connections in reverse order of opening.
func (b *Backends) Close() error {
	var result error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	b.closers = nil
	return result
}

func connectBackoff(cfg config.ResilienceConfig) resilience.Backoff {
	return resilience.Backoff{
		Attempts: cfg.ConnectAttempts,
		Delay:    cfg.ConnectDelay,
	}
}

func newBreaker(name string, cfg config.ResilienceConfig, m *metrics.Metrics) *resilience.CircuitBreaker {
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(resilience.StateClosed))
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return NewBreaker(name, cbCfg)
}
