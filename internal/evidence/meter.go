// Package evidence computes the measurable signals the adaptive OCR policy
// compares: how much text a document snapshot carries and how often the
// caller's literals occur in it.
package evidence

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/pdfmask/internal/document"
)

// Snapshot captures the evidence for one byte-level document state. It is
// only ever compared against another snapshot, never persisted.
type Snapshot struct {
	CharCount       int `json:"char_count"`
	LiteralHitCount int `json:"literal_hit_count"`
}

// Meter measures document snapshots through a document provider.
type Meter struct {
	provider document.Provider
}

// NewMeter creates a meter backed by the given provider.
func NewMeter(provider document.Provider) *Meter {
	return &Meter{provider: provider}
}

// Measure computes the evidence snapshot for data. CharCount is the total
// rune length of the extracted text of every page; LiteralHitCount is the
// case-sensitive substring occurrence count of every literal summed across
// all page text. A snapshot that cannot be computed counts as zero evidence
// rather than failing the run.
func (m *Meter) Measure(data []byte, literals []string) Snapshot {
	doc, err := m.provider.Open(data)
	if err != nil {
		slog.Warn("evidence: cannot open document snapshot", "error", err)
		return Snapshot{}
	}
	defer func() { _ = doc.Close() }()

	var snap Snapshot
	for i := range doc.PageCount() {
		page, err := doc.Page(i)
		if err != nil {
			slog.Warn("evidence: cannot load page", "page", i, "error", err)
			continue
		}
		text, err := page.Text()
		if err != nil {
			slog.Warn("evidence: cannot extract page text", "page", i, "error", err)
			continue
		}
		snap.CharCount += utf8.RuneCountInString(text)
		for _, lit := range literals {
			if lit == "" {
				continue
			}
			snap.LiteralHitCount += strings.Count(text, lit)
		}
	}
	return snap
}
