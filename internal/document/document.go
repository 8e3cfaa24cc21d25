// Package document defines the data model shared by the redaction engine and
// the capability contracts it expects from a page-oriented document backend.
// The engine never touches raw document bytes; everything goes through a
// Provider.
package document

import (
	"image"
	"image/color"
	"math"
)

// Rect represents an axis-aligned rectangle in page coordinates (points,
// origin top-left, y growing downward).
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// NewRect constructs a Rect from two corner points ensuring ordering.
func NewRect(x1, y1, x2, y2 float64) Rect {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Rect{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// Width returns the rectangle width.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the rectangle height.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// IsEmpty reports whether the rectangle has non-positive extent.
func (r Rect) IsEmpty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Union returns the smallest rectangle covering both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, other.MinX),
		MinY: math.Min(r.MinY, other.MinY),
		MaxX: math.Max(r.MaxX, other.MaxX),
		MaxY: math.Max(r.MaxY, other.MaxY),
	}
}

// Inflate grows the rectangle by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{MinX: r.MinX - d, MinY: r.MinY - d, MaxX: r.MaxX + d, MaxY: r.MaxY + d}
}

// VerticalOverlap returns the height of the vertical intersection of r and
// other, or 0 when they do not overlap vertically.
func (r Rect) VerticalOverlap(other Rect) float64 {
	return math.Max(0, math.Min(r.MaxY, other.MaxY)-math.Max(r.MinY, other.MinY))
}

// ToImageRect converts the rectangle to pixel space at the given scale,
// clamped to the image bounds.
func (r Rect) ToImageRect(bounds image.Rectangle, scale float64) image.Rectangle {
	x1 := clampInt(int(math.Floor(r.MinX*scale)), bounds.Min.X, bounds.Max.X)
	y1 := clampInt(int(math.Floor(r.MinY*scale)), bounds.Min.Y, bounds.Max.Y)
	x2 := clampInt(int(math.Ceil(r.MaxX*scale)), bounds.Min.X, bounds.Max.X)
	y2 := clampInt(int(math.Ceil(r.MaxY*scale)), bounds.Min.Y, bounds.Max.Y)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return image.Rect(x1, y1, x2, y2)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PositionedWord is a single token on a page together with its bounding box
// and its position in reading order as produced by the backend. The sequence
// index is load-bearing: the fallback matcher uses index adjacency as a
// locality signal, not just coordinates.
type PositionedWord struct {
	Rect  Rect   `json:"rect"`
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// MatchRect is a rectangle scheduled for redaction, tagged with the literal
// it satisfies. Duplicates referencing the same literal are legitimate;
// burn-in is idempotent over overlapping rectangles.
type MatchRect struct {
	Rect    Rect   `json:"rect"`
	Literal string `json:"literal"`
}

// PageHits maps a zero-based page index to the ordered match rectangles found
// on that page. It covers exactly one document snapshot and is recomputed per
// redaction call, never cached across documents.
type PageHits map[int][]MatchRect

// Total returns the number of match rectangles across all pages.
func (h PageHits) Total() int {
	n := 0
	for _, hits := range h {
		n += len(hits)
	}
	return n
}

// Provider opens byte buffers as paginated documents.
type Provider interface {
	Open(data []byte) (Document, error)
}

// Document is one open document snapshot. Implementations are not safe for
// concurrent use; every pipeline run owns its own snapshot.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Page returns the zero-based page i.
	Page(i int) (Page, error)

	// ApplyRedactions irreversibly removes all content under rectangles
	// previously marked on any page, including image pixel data, and fills
	// them with the mark's fill color. With no marks pending it is a
	// structural no-op.
	ApplyRedactions() error

	// Bytes serializes the current document state.
	Bytes() ([]byte, error)

	// Close releases backend resources. The document is unusable afterwards.
	Close() error
}

// Page exposes the per-page operations the engine needs.
type Page interface {
	// Number returns the zero-based page index.
	Number() int

	// Size returns the page width and height in points.
	Size() (w, h float64)

	// Text returns the full extracted page text.
	Text() (string, error)

	// Words returns the positioned words of the page in reading order.
	Words() ([]PositionedWord, error)

	// Search returns the rectangles of every case-insensitive substring
	// occurrence of needle in the page text.
	Search(needle string) ([]Rect, error)

	// MarkRedaction schedules rect for irreversible removal with the given
	// fill. Marks take effect on Document.ApplyRedactions.
	MarkRedaction(rect Rect, fill color.Color)

	// InsertLabel draws text centered into box at the given font size and
	// reports the number of characters actually placed; zero means the text
	// did not fit at that size.
	InsertLabel(box Rect, text string, fontSize float64) (int, error)
}
