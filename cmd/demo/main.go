// Command demo indexes a handful of documents into in-process backends and
// prints the results of a few conjunctive queries.
//
// Usage:
//
//	go run ./cmd/demo [-index memory|bitmap] [-stream]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/docstore/memory"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/logger"
)

var documents = []string{
	"Example document with a single sentence",
	"Example document with multiple sentences. And punctuation",
	"",
}

var queries = [][]string{
	{"document", "single", "sentence"},
	{"single", "punctuation"},
	{"example", "DOCUMENT"},
	{"ex", "do", "se"},
	{},
}

func main() {
	indexKind := flag.String("index", "memory", "inverted index backend: memory or bitmap")
	stream := flag.Bool("stream", false, "ingest through AddDocumentsStream instead of AddDocuments")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "text")

	var idx index.InvertedIndex
	switch *indexKind {
	case "memory":
		idx = index.NewMemoryIndex()
	case "bitmap":
		idx = index.NewBitmapIndex()
	default:
		fmt.Fprintf(os.Stderr, "unknown index backend %q\n", *indexKind)
		os.Exit(2)
	}

	ctx := context.Background()
	engine := indexer.NewEngine(memory.New(), idx, indexer.Options{RegisterConcurrency: 4})

	if *stream {
		stats, err := engine.AddDocumentsStream(ctx, source.FromSlice(documents))
		if err != nil {
			slog.Error("stream ingestion failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("streamed %d documents (%d indexed, %d failed)\n", stats.Pulled, stats.Indexed, stats.Failed)
	} else {
		ids, err := engine.AddDocuments(ctx, documents)
		if err != nil {
			slog.Error("batch ingestion failed", "error", err)
			os.Exit(1)
		}
		for i, id := range ids {
			fmt.Printf("stored %-38s %q\n", id, documents[i])
		}
	}
	fmt.Println()

	for _, words := range queries {
		docs, err := engine.FindWithWords(ctx, words)
		if err != nil {
			slog.Error("query failed", "words", words, "error", err)
			os.Exit(1)
		}
		fmt.Printf("[%s] -> %d match(es)\n", strings.Join(words, ", "), len(docs))
		for _, doc := range docs {
			fmt.Printf("    %q\n", doc)
		}
	}
}
