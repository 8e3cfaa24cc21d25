// Package match locates every occurrence of a target literal on a page. An
// exact case-insensitive substring pass always runs; multi-part literals
// additionally go through a geometric fallback that reconstructs the word
// sequence from individually positioned tokens, since a literal entered as
// "first last" may be stored as two separately kerned or separately
// recognized tokens that plain substring search misses.
package match

import (
	"strings"

	"github.com/MeKo-Tech/pdfmask/internal/document"
)

// Config controls the geometric fallback matcher.
type Config struct {
	// Lookahead is how many words ahead in reading order the matcher scans
	// for the next sub-word of a chain.
	Lookahead int `json:"lookahead"`
	// MinGap and MaxGap bound the horizontal gap in points between the right
	// edge of the last accepted word and the candidate's left edge. A small
	// negative minimum tolerates slight overlap; the maximum keeps the chain
	// from jumping across columns.
	MinGap float64 `json:"min_gap"`
	MaxGap float64 `json:"max_gap"`
	// MinOverlapRatio is the required vertical overlap with the last accepted
	// word, as a fraction of the candidate's own height (same-line test).
	MinOverlapRatio float64 `json:"min_overlap_ratio"`
}

// DefaultConfig provides the matcher defaults.
func DefaultConfig() Config {
	return Config{
		Lookahead:       4,
		MinGap:          -2,
		MaxGap:          50,
		MinOverlapRatio: 0.5,
	}
}

// delimiters the fallback pass splits literals on, in order.
var delimiters = []string{" ", "_", "-"}

// Matcher finds occurrence rectangles of literals on a page.
type Matcher struct {
	cfg Config
}

// New creates a Matcher with the given configuration.
func New(cfg Config) *Matcher {
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultConfig().Lookahead
	}
	if cfg.MinOverlapRatio <= 0 {
		cfg.MinOverlapRatio = DefaultConfig().MinOverlapRatio
	}
	if cfg.MaxGap <= 0 {
		cfg.MaxGap = DefaultConfig().MaxGap
	}
	return &Matcher{cfg: cfg}
}

// Find returns all match rectangles for literal on the indexed page. The
// result is the union of the exact pass and the fallback pass, unordered;
// duplicates are permitted. An empty or whitespace-only literal yields nil.
func (m *Matcher) Find(ix *PageIndex, literal string) ([]document.MatchRect, error) {
	lit := strings.TrimSpace(literal)
	if lit == "" {
		return nil, nil
	}

	var out []document.MatchRect

	rects, err := ix.Page().Search(lit)
	if err != nil {
		return nil, err
	}
	for _, r := range rects {
		out = append(out, document.MatchRect{Rect: r, Literal: lit})
	}

	// Every delimiter is tried even after a success; a literal may be split
	// one way in one place and another way elsewhere, and duplicate
	// rectangles are harmless.
	for _, delim := range delimiters {
		if !strings.Contains(lit, delim) {
			continue
		}
		parts := splitNonEmpty(lit, delim)
		if len(parts) < 2 {
			continue
		}
		chains, err := m.assemble(ix, parts)
		if err != nil {
			return nil, err
		}
		for _, r := range chains {
			out = append(out, document.MatchRect{Rect: r, Literal: lit})
		}
	}
	return out, nil
}

// assemble reconstructs the sub-word sequence from positioned words and
// returns one union rectangle per fully assembled chain. All candidates for
// the first sub-word are tried, so repeated occurrences on a page all match.
func (m *Matcher) assemble(ix *PageIndex, parts []string) ([]document.Rect, error) {
	words, err := ix.Words()
	if err != nil {
		return nil, err
	}

	first := strings.ToLower(parts[0])
	var rects []document.Rect

	for start := range words {
		if !strings.Contains(strings.ToLower(words[start].Text), first) {
			continue
		}
		if r, ok := m.extend(words, start, parts); ok {
			rects = append(rects, r)
		}
	}
	return rects, nil
}

// extend greedily grows a chain from the start word, scanning up to
// cfg.Lookahead words ahead in reading order for each subsequent sub-word.
// Traversal is purely index-based, so two words with identical text cannot be
// confused. The nearest satisfying word wins.
func (m *Matcher) extend(words []document.PositionedWord, start int, parts []string) (document.Rect, bool) {
	cur := start
	last := words[start]
	union := last.Rect

	for _, part := range parts[1:] {
		target := strings.ToLower(part)
		found := false

		for offset := 1; offset <= m.cfg.Lookahead; offset++ {
			next := cur + offset
			if next >= len(words) {
				break
			}
			cand := words[next]
			if !strings.Contains(strings.ToLower(cand.Text), target) {
				continue
			}
			if !m.sameLine(last.Rect, cand.Rect) {
				continue
			}
			gap := cand.Rect.MinX - last.Rect.MaxX
			if gap < m.cfg.MinGap || gap > m.cfg.MaxGap {
				continue
			}
			cur = next
			last = cand
			union = union.Union(cand.Rect)
			found = true
			break
		}
		if !found {
			return document.Rect{}, false
		}
	}
	return union, true
}

// sameLine reports whether cand overlaps last vertically by at least the
// configured fraction of cand's own height.
func (m *Matcher) sameLine(last, cand document.Rect) bool {
	return last.VerticalOverlap(cand) >= cand.Height()*m.cfg.MinOverlapRatio
}

func splitNonEmpty(s, sep string) []string {
	raw := strings.Split(s, sep)
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
