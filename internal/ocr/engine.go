// Package ocr defines the optical-recognition engine contract the pipeline
// depends on, an adapter shelling out to ocrmypdf, and the adaptive policy
// that decides whether an OCR pass improved the document.
package ocr

import (
	"context"
	"fmt"
)

// Mode selects how the engine treats an existing text layer.
type Mode int

const (
	// ModeForceOCR rasterizes every page and replaces the text layer.
	ModeForceOCR Mode = iota
	// ModeSkipText rewrites structural metadata but leaves pages that
	// already carry text untouched, preserving the original layout.
	ModeSkipText
)

// String returns the flag-style name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeForceOCR:
		return "force-ocr"
	case ModeSkipText:
		return "skip-text"
	default:
		return "unknown"
	}
}

// ProgressFunc receives incremental engine progress. Returning a non-nil
// error aborts the engine run; the error is propagated to the caller. The
// progress sink is injected per call, there is no shared callback slot.
type ProgressFunc func(percentage int, message string) error

// Options parameterizes one engine invocation.
type Options struct {
	Mode      Mode
	Languages []string
	// PageCount, when known, lets the engine scale per-page progress.
	PageCount int
}

// Engine rewrites a document through an optical-recognition pass.
type Engine interface {
	Process(ctx context.Context, data []byte, opts Options, progress ProgressFunc) ([]byte, error)
}

// EngineError wraps a failure of the external recognition engine so callers
// can distinguish it from I/O failures and cancellation.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("ocr engine %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
