// Package redact converts match rectangles into permanent redactions. Marked
// content is removed irreversibly through the document backend, covered with
// a fill, and overlaid with a short verification label derived from the
// redacted literal.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/MeKo-Tech/pdfmask/internal/document"
)

// LabelLength is the number of hex digest characters placed over a redaction.
const LabelLength = 8

// Config controls burn-in behavior.
type Config struct {
	// FontSizes are tried in order until the label fits the inflated box.
	// If none fit the label is omitted and the fill stands alone.
	FontSizes []float64 `json:"font_sizes"`
	// InflatePoints grows each rectangle before label placement so the text
	// has room.
	InflatePoints float64 `json:"inflate_points"`
	// Fill is the redaction cover color.
	Fill color.Color `json:"-"`
}

// DefaultConfig provides burner defaults.
func DefaultConfig() Config {
	return Config{
		FontSizes:     []float64{10, 8, 6, 5},
		InflatePoints: 2,
		Fill:          color.White,
	}
}

// Report summarizes one burn-in run. Unlabeled rectangles are not an error;
// the fill is still applied and the run continues with best-effort labeling.
type Report struct {
	Redacted  int `json:"redacted"`
	Labeled   int `json:"labeled"`
	Unlabeled int `json:"unlabeled"`
}

// Burner applies redactions through a document backend.
type Burner struct {
	cfg Config
}

// NewBurner creates a Burner with the given configuration.
func NewBurner(cfg Config) *Burner {
	if len(cfg.FontSizes) == 0 {
		cfg.FontSizes = DefaultConfig().FontSizes
	}
	if cfg.Fill == nil {
		cfg.Fill = color.White
	}
	return &Burner{cfg: cfg}
}

// Label returns the verification label for a literal: the first eight
// lowercase hex characters of the SHA-256 digest of its exact text.
func Label(literal string) string {
	sum := sha256.Sum256([]byte(literal))
	return hex.EncodeToString(sum[:])[:LabelLength]
}

// Burn marks every rectangle in hits for removal, applies all redactions
// irreversibly, then draws the verification labels. Burning is idempotent for
// a given hits mapping; an empty mapping leaves the document unchanged apart
// from no-op structural normalization.
func (b *Burner) Burn(doc document.Document, hits document.PageHits) (Report, error) {
	var report Report

	for pageIdx, pageHits := range hits {
		if len(pageHits) == 0 {
			continue
		}
		page, err := doc.Page(pageIdx)
		if err != nil {
			return report, fmt.Errorf("loading page %d for redaction: %w", pageIdx, err)
		}
		for _, hit := range pageHits {
			page.MarkRedaction(hit.Rect, b.cfg.Fill)
			report.Redacted++
		}
	}

	if err := doc.ApplyRedactions(); err != nil {
		return report, fmt.Errorf("applying redactions: %w", err)
	}

	for pageIdx, pageHits := range hits {
		if len(pageHits) == 0 {
			continue
		}
		page, err := doc.Page(pageIdx)
		if err != nil {
			return report, fmt.Errorf("loading page %d for labels: %w", pageIdx, err)
		}
		for _, hit := range pageHits {
			if b.drawLabel(page, hit) {
				report.Labeled++
			} else {
				report.Unlabeled++
				slog.Warn("redaction label does not fit, leaving fill unlabeled",
					"page", pageIdx,
					"label", Label(hit.Literal))
			}
		}
	}
	return report, nil
}

// drawLabel attempts the label at decreasing font sizes and reports whether
// any size placed text. The label always hashes the literal as given by the
// caller, not the matched rectangle text.
func (b *Burner) drawLabel(page document.Page, hit document.MatchRect) bool {
	box := hit.Rect.Inflate(b.cfg.InflatePoints)
	label := Label(hit.Literal)

	for _, size := range b.cfg.FontSizes {
		placed, err := page.InsertLabel(box, label, size)
		if err != nil {
			slog.Warn("label insertion failed", "page", page.Number(), "font_size", size, "error", err)
			continue
		}
		if placed > 0 {
			return true
		}
	}
	return false
}
