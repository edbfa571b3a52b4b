// Command searcher serves the search engine over HTTP: synchronous document
// ingestion, streaming ingestion, conjunctive word search, cache
// administration, health probes and Prometheus metrics.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"documents", cfg.Storage.Documents,
		"index", cfg.Storage.Index,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	backends, err := storage.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer backends.Close()

	engine := indexer.NewEngine(backends.Store, backends.Index, indexer.OptionsFromConfig(cfg.Indexer, m))

	checker := health.NewChecker()
	backends.RegisterHealth(checker)

	var queryCache *cache.QueryCache
	if cfg.Search.Cache {
		redisClient := backends.Redis
		if redisClient == nil {
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			if err != nil {
				slog.Warn("redis unavailable, search caching disabled", "error", err)
			} else {
				defer redisClient.Close()
				checker.Register("redis_cache", func(ctx context.Context) health.ComponentHealth {
					if err := redisClient.Ping(ctx); err != nil {
						return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
					}
					return health.ComponentHealth{Status: health.StatusUp}
				})
			}
		}
		if redisClient != nil {
			queryCache = cache.New(redisClient, cfg.Redis, m)
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	searchH := handler.New(engine, queryCache, cfg.Search.MaxWords, m)
	ingestH := ingesthandler.New(engine, cfg.Indexer.MaxLineBytes)
	ingestH.OnIngest = searchH.InvalidateCache

	if cfg.Indexer.ConsumeKafka {
		kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		defer kafkaConsumer.Close()
		indexConsumer := consumer.New(engine, source.NewKafka(kafkaConsumer))
		go func() {
			if err := indexConsumer.Start(ctx); err != nil {
				slog.Error("index consumer error", "error", err)
			}
		}()
		slog.Info("consuming documents from kafka",
			"topic", cfg.Kafka.Topics.DocumentIngest,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", ingestH.Ingest)
	mux.HandleFunc("POST /api/v1/documents/stream", ingestH.IngestStream)
	mux.HandleFunc("GET /api/v1/search", searchH.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", searchH.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	// The stream endpoint runs as long as the body does, so it skips the
	// request timeout.
	timed := middleware.Timeout(cfg.Server.WriteTimeout)(mux)
	var chain http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/documents/stream" {
			mux.ServeHTTP(w, r)
			return
		}
		timed.ServeHTTP(w, r)
	})
	if cfg.Server.IngestRateLimit > 0 {
		// Load has validated the list already.
		proxies, _ := cfg.Server.ProxyPrefixes()
		limiter := ratelimit.New(cfg.Server.IngestRateLimit, time.Minute)
		go limiter.Run(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter, proxies)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     chain,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
