// Package pipeline orchestrates one redaction run: rotation correction,
// adaptive OCR selection, literal matching, burn-in, and persistence. Stages
// run sequentially on the caller's goroutine; cancellation is polled at the
// top of every stage and inside the OCR progress callback, and a cancelled
// run performs no further stages, including persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
	"github.com/MeKo-Tech/pdfmask/internal/common"
	"github.com/MeKo-Tech/pdfmask/internal/document"
	"github.com/MeKo-Tech/pdfmask/internal/evidence"
	"github.com/MeKo-Tech/pdfmask/internal/match"
	"github.com/MeKo-Tech/pdfmask/internal/ocr"
	"github.com/MeKo-Tech/pdfmask/internal/redact"
)

// Corrector fixes page orientation before any text measurement happens.
type Corrector interface {
	Correct(ctx context.Context, data []byte) ([]byte, error)
}

// Persister stores a finished document under a run identifier and returns its
// location.
type Persister interface {
	Persist(runID string, data []byte) (string, error)
}

// Config holds the per-component settings of a pipeline.
type Config struct {
	Match  match.Config     `json:"match"`
	Redact redact.Config    `json:"redact"`
	Policy ocr.PolicyConfig `json:"policy"`
}

// DefaultConfig returns a pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Match:  match.DefaultConfig(),
		Redact: redact.DefaultConfig(),
		Policy: ocr.DefaultPolicyConfig(),
	}
}

// Result summarizes a completed run.
type Result struct {
	OutputPath string              `json:"output_path"`
	Pages      int                 `json:"pages"`
	Hits       int                 `json:"hits"`
	Decision   ocr.Decision        `json:"decision"`
	Report     redact.Report       `json:"report"`
	Timings    common.StageTimings `json:"timings"`
}

// Pipeline wires the redaction stages together. One Pipeline may serve many
// runs, but each run owns its own document snapshot; no document state is
// shared across runs.
type Pipeline struct {
	cfg       Config
	provider  document.Provider
	corrector Corrector
	engine    ocr.Engine
	matcher   *match.Matcher
	burner    *redact.Burner
	store     Persister
}

// New assembles a pipeline from its collaborators. The corrector and store
// may be nil: rotation correction is then skipped and the result holds no
// output path.
func New(cfg Config, provider document.Provider, corrector Corrector, engine ocr.Engine, store Persister) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		provider:  provider,
		corrector: corrector,
		engine:    engine,
		matcher:   match.New(cfg.Match),
		burner:    redact.NewBurner(cfg.Redact),
		store:     store,
	}
}

// Run executes all stages over input and returns the run summary. The token
// may be nil, in which case the run is not cancellable. Cancellation
// surfaces as cancel.ErrCancelled.
func (p *Pipeline) Run(ctx context.Context, runID string, input []byte, literals []string, token *cancel.Token, sink Sink) (*Result, error) {
	rep := newReporter(sink)
	result := &Result{Timings: common.StageTimings{}}
	logger := slog.With("run_id", runID)

	// Stage: load. Validates the snapshot and fixes the page count used for
	// OCR progress scaling.
	if err := token.Err(); err != nil {
		return nil, err
	}
	rep.report(0, "Loading document")
	timer := common.NewStageTimer("load")
	pages, err := p.pageCount(input)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	result.Pages = pages
	result.Timings.Record(timer.Stop())
	logger.Info("document loaded", "pages", pages, "literals", len(literals))

	// Stage: rotation correction. Best-effort; failures inside the corrector
	// pass the document through unchanged.
	if err := token.Err(); err != nil {
		return nil, err
	}
	rep.report(20, "Correcting page orientation")
	data := input
	if p.corrector != nil {
		timer = common.NewStageTimer("rotation")
		data, err = p.corrector.Correct(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("correcting orientation: %w", err)
		}
		result.Timings.Record(timer.Stop())
	}

	// Stage: adaptive OCR. Engine-internal progress lands in [40,70].
	if err := token.Err(); err != nil {
		return nil, err
	}
	rep.report(40, "Recognizing text")
	timer = common.NewStageTimer("ocr")
	policyCfg := p.cfg.Policy
	policyCfg.PageCount = pages
	policy := ocr.NewPolicy(p.engine, evidence.NewMeter(p.provider), policyCfg)
	data, result.Decision, err = policy.Select(ctx, data, literals, func(percentage int, message string) error {
		if err := token.Err(); err != nil {
			return err
		}
		rep.report(rescale(percentage, 40, 70), message)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("selecting OCR variant: %w", err)
	}
	result.Timings.Record(timer.Stop())

	// Stage: redaction.
	if err := token.Err(); err != nil {
		return nil, err
	}
	rep.report(70, "Redacting literals")
	timer = common.NewStageTimer("redact")
	data, err = p.redact(data, literals, result)
	if err != nil {
		return nil, err
	}
	result.Timings.Record(timer.Stop())
	logger.Info("redaction applied",
		"hits", result.Hits,
		"labeled", result.Report.Labeled,
		"unlabeled", result.Report.Unlabeled,
		"ocr_committed", result.Decision.Committed)

	// Stage: persistence. A cancellation observed here means nothing is
	// written.
	if err := token.Err(); err != nil {
		return nil, err
	}
	rep.report(90, "Saving document")
	if p.store != nil {
		timer = common.NewStageTimer("persist")
		result.OutputPath, err = p.store.Persist(runID, data)
		if err != nil {
			return nil, fmt.Errorf("persisting document: %w", err)
		}
		result.Timings.Record(timer.Stop())
	}

	rep.report(100, "Done")
	return result, nil
}

// pageCount opens the snapshot just long enough to count pages.
func (p *Pipeline) pageCount(data []byte) (int, error) {
	doc, err := p.provider.Open(data)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return doc.PageCount(), nil
}

// redact locates every literal on every page and burns the hits in, returning
// the rewritten document bytes.
func (p *Pipeline) redact(data []byte, literals []string, result *Result) ([]byte, error) {
	doc, err := p.provider.Open(data)
	if err != nil {
		return nil, fmt.Errorf("opening document for redaction: %w", err)
	}
	defer doc.Close()

	hits := document.PageHits{}
	for i := range doc.PageCount() {
		page, err := doc.Page(i)
		if err != nil {
			return nil, fmt.Errorf("loading page %d: %w", i, err)
		}
		ix := match.NewPageIndex(page)
		for _, literal := range literals {
			found, err := p.matcher.Find(ix, literal)
			if err != nil {
				return nil, fmt.Errorf("matching on page %d: %w", i, err)
			}
			if len(found) > 0 {
				hits[i] = append(hits[i], found...)
			}
		}
	}
	result.Hits = hits.Total()

	result.Report, err = p.burner.Burn(doc, hits)
	if err != nil {
		return nil, fmt.Errorf("burning redactions: %w", err)
	}

	out, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serializing redacted document: %w", err)
	}
	return out, nil
}
