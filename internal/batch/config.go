package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/MeKo-Tech/pdfmask/internal/pipeline"
)

// Config holds all configuration for batch redaction.
type Config struct {
	// Words are the literals redacted from every discovered document.
	Words []string

	// Output settings
	Format     string
	OutputFile string

	// Parallel processing settings
	Workers int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	Quiet     bool
	ShowStats bool

	// ContinueOnError keeps the batch going when one document fails.
	ContinueOnError bool
}

// DefaultConfig returns batch defaults: PDF discovery, four workers, text
// output.
func DefaultConfig() Config {
	return Config{
		Format:          "text",
		Workers:         4,
		IncludePatterns: []string{"*.pdf", "*.PDF"},
		ContinueOnError: true,
	}
}

// Item is the outcome of redacting one discovered document.
type Item struct {
	Path   string           `json:"file"`
	RunID  string           `json:"run_id"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Result holds the outcome of one batch run.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Failed counts the items that did not produce an output.
func (r *Result) Failed() int {
	failed := 0
	for _, item := range r.Items {
		if item.Error != "" {
			failed++
		}
	}
	return failed
}

// TotalHits sums the redacted occurrences across all successful items.
func (r *Result) TotalHits() int {
	hits := 0
	for _, item := range r.Items {
		if item.Result != nil {
			hits += item.Result.Hits
		}
	}
	return hits
}

// FormatResults formats the batch outcome in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Items, format)
}

// SaveResults saves the formatted results to a file or stdout.
func (r *Result) SaveResults(format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(os.Stdout, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(quiet bool) {
	if quiet {
		return
	}
	processed := len(r.Items) - r.Failed()
	_, _ = fmt.Fprintf(os.Stdout, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(os.Stdout, "  Total documents: %d\n", len(r.Items))
	_, _ = fmt.Fprintf(os.Stdout, "  Processed: %d\n", processed)
	_, _ = fmt.Fprintf(os.Stdout, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(os.Stdout, "  Redacted occurrences: %d\n", r.TotalHits())
	_, _ = fmt.Fprintf(os.Stdout, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(os.Stdout, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if processed > 0 {
		_, _ = fmt.Fprintf(os.Stdout, "  Avg per document: %v\n",
			(r.Duration / time.Duration(processed)).Round(time.Millisecond))
	}
}
