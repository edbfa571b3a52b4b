// Command loadtest seeds a running searcher with generated documents and then
// drives conjunctive queries against it from several workers, reporting
// throughput, latency percentiles and status codes.
//
// Usage:
//
//	go run ./cmd/loadtest [seed|query] [--url http://localhost:8080] [-c 20] [-d 30s] [--docs 500]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
)

var vocabulary = []string{
	"index", "token", "posting", "query", "document", "search", "engine",
	"store", "word", "intersection", "bitmap", "redis", "kafka", "stream",
	"batch", "sentence", "example", "cache", "latency", "shard",
}

type recorder struct {
	requests atomic.Int64
	failures atomic.Int64
	hits     atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int
}

func newRecorder() *recorder {
	return &recorder{statuses: make(map[int]int)}
}

func (r *recorder) record(latency time.Duration, status int, total int, err error) {
	r.requests.Add(1)
	if err != nil || status != http.StatusOK {
		r.failures.Add(1)
	}
	if total > 0 {
		r.hits.Add(1)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, latency)
	if err == nil {
		r.statuses[status]++
	}
}

var (
	baseURL       string
	workers       int
	duration      time.Duration
	seedDocs      int
	wordsPerQuery int
)

var rootCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Seed and query a running searcher",
	Long: `Seeds a running searcher with generated documents, then drives
conjunctive queries against it and prints throughput and latency.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runSeed(cmd, args); err != nil {
			return err
		}
		return runQuery(cmd, args)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest generated documents only",
	RunE:  runSeed,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run the query phase against already ingested documents",
	RunE:  runQuery,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "searcher base URL")
	rootCmd.PersistentFlags().IntVarP(&workers, "concurrency", "c", 20, "concurrent query workers")
	rootCmd.PersistentFlags().DurationVarP(&duration, "duration", "d", 30*time.Second, "query phase duration")
	rootCmd.PersistentFlags().IntVar(&seedDocs, "docs", 500, "documents to ingest")
	rootCmd.PersistentFlags().IntVar(&wordsPerQuery, "words", 2, "words per query")
	rootCmd.AddCommand(seedCmd, queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        workers * 2,
			MaxIdleConnsPerHost: workers * 2,
		},
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	accepted, err := seed(newClient(), baseURL, seedDocs)
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d documents into %s\n\n", accepted, baseURL)
	return nil
}

func runQuery(cmd *cobra.Command, _ []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "=== wordsearch load test ===")
	fmt.Fprintf(cmd.OutOrStdout(), "Target:   %s\n", baseURL)
	fmt.Fprintf(cmd.OutOrStdout(), "Workers:  %d\n", workers)
	fmt.Fprintf(cmd.OutOrStdout(), "Duration: %s\n\n", duration)

	client := newClient()
	rec := newRecorder()
	ctx, cancel := context.WithTimeout(cmd.Context(), duration)
	defer cancel()

	var g errgroup.Group
	for w := range workers {
		rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
		g.Go(func() error {
			for ctx.Err() == nil {
				query(ctx, client, baseURL, randomWords(rng, wordsPerQuery), rec)
			}
			return nil
		})
	}
	_ = g.Wait()

	if !report(cmd.OutOrStdout(), rec, duration) {
		return errors.New("no queries completed; is the searcher running?")
	}
	return nil
}

// seed posts generated documents in batches of 100.
func seed(client *http.Client, baseURL string, n int) (int, error) {
	rng := rand.New(rand.NewPCG(1, 2))
	accepted := 0
	for start := 0; start < n; start += 100 {
		texts := make([]string, min(100, n-start))
		for i := range texts {
			texts[i] = strings.Join(randomWords(rng, 8+rng.IntN(16)), " ")
		}
		body, err := json.Marshal(ingestion.IngestRequest{Texts: texts})
		if err != nil {
			return accepted, err
		}
		resp, err := client.Post(baseURL+"/api/v1/documents", "application/json", bytes.NewReader(body))
		if err != nil {
			return accepted, fmt.Errorf("posting batch at %d: %w", start, err)
		}
		var out ingestion.IngestResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return accepted, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
		}
		accepted += out.Accepted
	}
	return accepted, nil
}

func query(ctx context.Context, client *http.Client, baseURL string, words []string, rec *recorder) {
	values := url.Values{"word": words}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/search?"+values.Encode(), nil)
	if err != nil {
		return
	}
	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			rec.record(latency, 0, 0, err)
		}
		return
	}
	defer resp.Body.Close()

	var result struct {
		Total int `json:"total"`
	}
	if resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&result)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	rec.record(latency, resp.StatusCode, result.Total, nil)
}

func randomWords(rng *rand.Rand, n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = vocabulary[rng.IntN(len(vocabulary))]
	}
	return words
}

func report(out io.Writer, rec *recorder, duration time.Duration) bool {
	total := rec.requests.Load()
	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Queries:      %d\n", total)
	fmt.Fprintf(out, "Failures:     %d\n", rec.failures.Load())
	fmt.Fprintf(out, "With matches: %d\n", rec.hits.Load())
	if total == 0 {
		return false
	}
	fmt.Fprintf(out, "Queries/sec:  %.2f\n", float64(total)/duration.Seconds())

	rec.mu.Lock()
	defer rec.mu.Unlock()

	latencies := slices.Clone(rec.latencies)
	slices.Sort(latencies)
	fmt.Fprintln(out, "\n=== Latency ===")
	fmt.Fprintf(out, "Min: %s\n", latencies[0])
	for _, p := range []float64{50, 90, 99} {
		fmt.Fprintf(out, "P%-2.0f: %s\n", p, percentile(latencies, p))
	}
	fmt.Fprintf(out, "Max: %s\n", latencies[len(latencies)-1])

	fmt.Fprintln(out, "\n=== Status codes ===")
	codes := make([]int, 0, len(rec.statuses))
	for code := range rec.statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(out, "  %d: %d\n", code, rec.statuses[code])
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(p/100*float64(len(sorted))+0.5) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
