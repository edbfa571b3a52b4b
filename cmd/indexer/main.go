// Command indexer consumes documents from the ingest topic and indexes them
// one at a time into the configured storage backends.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
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
	slog.Info("starting indexer service",
		"documents", cfg.Storage.Documents,
		"index", cfg.Storage.Index,
	)
	if cfg.Storage.Documents != config.BackendPostgres || cfg.Storage.Index != config.BackendRedis {
		slog.Warn("indexer is using in-process storage; searches from other processes will not see its documents")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	backends, err := storage.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer backends.Close()

	if cfg.Metrics.Enabled {
		checker := health.NewChecker()
		backends.RegisterHealth(checker)
		shutdown := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"GET /health/live":  checker.LiveHandler(),
			"GET /health/ready": checker.ReadyHandler(),
		})
		defer shutdown(context.Background())
	}

	engine := indexer.NewEngine(backends.Store, backends.Index, indexer.OptionsFromConfig(cfg.Indexer, m))

	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer kafkaConsumer.Close()
	indexConsumer := consumer.New(engine, source.NewKafka(kafkaConsumer))

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}
