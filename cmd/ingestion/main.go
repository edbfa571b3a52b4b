// Command ingestion starts the asynchronous document ingestion HTTP service.
//
// The service accepts documents via POST /api/v1/documents, validates them,
// and publishes them to the ingest topic, where cmd/indexer picks them up.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/ratelimit"
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
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentIngest)

	h := handler.NewAsync(publisher.New(producer), cfg.Indexer.MaxLineBytes)
	checker := health.NewChecker()
	checker.Register("kafka", health.Ping(producer.Ping))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
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
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
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
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
