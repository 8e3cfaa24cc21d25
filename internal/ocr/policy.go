package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
	"github.com/MeKo-Tech/pdfmask/internal/evidence"
)

// PolicyConfig holds the revert heuristic thresholds. The defaults were
// chosen empirically; they are parameters, not constants.
type PolicyConfig struct {
	// MinCharGain is the minimum number of characters a forced OCR pass must
	// add for the rewritten text layer to be worth the layout risk.
	MinCharGain int `json:"min_char_gain"`
	// PageCount, when known, is forwarded to the engine for progress scaling.
	PageCount int `json:"-"`
}

// DefaultPolicyConfig provides the policy defaults.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{MinCharGain: 80}
}

// Decision records the outcome of one adaptive OCR run.
type Decision struct {
	Committed bool              `json:"committed"`
	Reason    string            `json:"reason"`
	Before    evidence.Snapshot `json:"before"`
	After     evidence.Snapshot `json:"after"`
	CharDiff  int               `json:"char_diff"`
}

// Policy decides, from before/after evidence, whether to keep an OCR-written
// document or revert to a non-OCR-but-normalized variant. A run moves from
// candidate to committed exactly once per pipeline invocation; the decision
// is never re-evaluated after redaction.
type Policy struct {
	engine Engine
	meter  *evidence.Meter
	cfg    PolicyConfig
}

// NewPolicy creates a policy over the given engine and evidence meter.
func NewPolicy(engine Engine, meter *evidence.Meter, cfg PolicyConfig) *Policy {
	if cfg.MinCharGain <= 0 {
		cfg.MinCharGain = DefaultPolicyConfig().MinCharGain
	}
	return &Policy{engine: engine, meter: meter, cfg: cfg}
}

// Select runs a forced OCR pass over data and returns either the OCR'd bytes
// (commit) or a normalized variant of the input (revert). The revert criteria
// are safety-first: a pass that cannot be shown to preserve or improve
// literal visibility is discarded, as is one that adds fewer characters than
// MinCharGain. Engine failures during the forced pass downgrade to a revert;
// a failure during the revert pass itself falls back to the input unchanged.
// Cancellation is the only error surfaced from this method.
func (p *Policy) Select(ctx context.Context, data []byte, literals []string, progress ProgressFunc) ([]byte, Decision, error) {
	before := p.meter.Measure(data, literals)
	opts := Options{Mode: ModeForceOCR, PageCount: p.cfg.PageCount}

	ocred, err := p.engine.Process(ctx, data, opts, progress)
	if err != nil {
		if errors.Is(err, cancel.ErrCancelled) || errors.Is(err, context.Canceled) {
			return nil, Decision{}, err
		}
		slog.Warn("forced OCR pass failed, keeping pre-OCR document", "error", err)
		return p.revert(ctx, data, progress, Decision{
			Reason: fmt.Sprintf("forced OCR pass failed: %v", err),
			Before: before,
		})
	}

	after := p.meter.Measure(ocred, literals)
	diff := after.CharCount - before.CharCount
	decision := Decision{Before: before, After: after, CharDiff: diff}

	switch {
	case after.LiteralHitCount <= before.LiteralHitCount:
		decision.Reason = fmt.Sprintf("OCR did not improve literal hits (%d <= %d)",
			after.LiteralHitCount, before.LiteralHitCount)
	case diff < p.cfg.MinCharGain:
		decision.Reason = fmt.Sprintf("OCR text gain below threshold (diff=%d < %d)",
			diff, p.cfg.MinCharGain)
	default:
		decision.Committed = true
		decision.Reason = "OCR improved literal hits and text volume"
		slog.Info("committing OCR result",
			"char_diff", diff,
			"hits_before", before.LiteralHitCount,
			"hits_after", after.LiteralHitCount)
		return ocred, decision, nil
	}

	slog.Info("reverting OCR result",
		"reason", decision.Reason,
		"char_diff", diff,
		"hits_before", before.LiteralHitCount,
		"hits_after", after.LiteralHitCount)
	return p.revert(ctx, data, progress, decision)
}

// revert re-runs the engine in skip-text mode so structural metadata is still
// normalized while the original text layer and layout survive. If that pass
// fails too, the pre-OCR document is returned unchanged; redaction is never
// aborted over a failed normalization.
func (p *Policy) revert(ctx context.Context, data []byte, progress ProgressFunc, decision Decision) ([]byte, Decision, error) {
	decision.Committed = false
	opts := Options{Mode: ModeSkipText, PageCount: p.cfg.PageCount}

	normalized, err := p.engine.Process(ctx, data, opts, progress)
	if err != nil {
		if errors.Is(err, cancel.ErrCancelled) || errors.Is(err, context.Canceled) {
			return nil, Decision{}, err
		}
		slog.Warn("skip-text normalization failed, using pre-OCR document", "error", err)
		return data, decision, nil
	}
	return normalized, decision, nil
}
