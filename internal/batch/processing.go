package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
	"github.com/MeKo-Tech/pdfmask/internal/pipeline"
)

// Runner executes one redaction run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, runID string, input []byte, literals []string, token *cancel.Token, sink pipeline.Sink) (*pipeline.Result, error)
}

// runIDForPath derives a stable run identifier from a document path. Paths
// sharing a base name are disambiguated by index.
func runIDForPath(path string, index int) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return fmt.Sprintf("%s-%03d", base, index)
}

// processSingleDocument reads and redacts one file.
func processSingleDocument(ctx context.Context, runner Runner, path, runID string,
	words []string, token *cancel.Token,
) (*pipeline.Result, error) {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from CLI discovery
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	result, err := runner.Run(ctx, runID, data, words, token, pipeline.NoOpSink{})
	if err != nil {
		return nil, fmt.Errorf("redacting %s: %w", path, err)
	}
	return result, nil
}

// processDocumentsParallel redacts the documents on a fixed-size worker
// pool. Item order matches the input order regardless of completion order.
func processDocumentsParallel(ctx context.Context, runner Runner, paths []string,
	cfg *Config, token *cancel.Token,
) ([]Item, error) {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	items := make([]Item, len(paths))
	for i, path := range paths {
		items[i] = Item{Path: path, RunID: runIDForPath(path, i)}
	}
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				item := &items[i]
				result, err := processSingleDocument(ctx, runner, item.Path, item.RunID, cfg.Words, token)
				if err != nil {
					item.Error = err.Error()
					slog.Warn("document failed", "file", item.Path, "error", err)
				} else {
					item.Result = result
				}
			}
		}()
	}

	for i := range paths {
		if token.Cancelled() {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := token.Err(); err != nil {
		return items, err
	}

	if !cfg.ContinueOnError {
		for _, item := range items {
			if item.Error != "" {
				return items, fmt.Errorf("batch failed: %s", item.Error)
			}
		}
	}
	return items, nil
}
