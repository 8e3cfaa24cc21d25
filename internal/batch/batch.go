// Package batch redacts many documents in one invocation: PDF discovery
// across files and directories, a fixed worker pool, and aggregate result
// formatting.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
)

// ProcessBatch discovers the documents named by paths and redacts each one
// through the runner. The token aborts the whole batch; per-document
// failures are recorded on their item and, with ContinueOnError set, do not
// stop the rest.
func ProcessBatch(ctx context.Context, runner Runner, paths []string, cfg *Config, token *cancel.Token) (*Result, error) {
	files, err := discoverDocuments(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no documents found")
	}

	startTime := time.Now()
	items, err := processDocumentsParallel(ctx, runner, files, cfg, token)
	duration := time.Since(startTime)
	if err != nil {
		return nil, err
	}

	return &Result{
		Items:       items,
		Duration:    duration,
		WorkerCount: cfg.Workers,
	}, nil
}
