package pdf

import (
	"sort"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/MeKo-Tech/pdfmask/internal/document"
)

// US Letter in points, the fallback page size.
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

// rowTolerance is the baseline distance in points under which two characters
// belong to the same text row.
const rowTolerance = 3.0

// wordGapFraction of the font size is the horizontal gap that separates two
// words within a row.
const wordGapFraction = 0.3

// descentFraction of the font size extends a word box below its baseline.
const descentFraction = 0.2

// mediaBoxSize reads the page's MediaBox, walking up the page tree for
// inherited boxes. Pages without a resolvable box report US Letter.
func mediaBoxSize(page pdf.Page) (float64, float64) {
	v := page.V
	for range 8 {
		if v.IsNull() {
			break
		}
		box := v.Key("MediaBox")
		if !box.IsNull() && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return letterWidth, letterHeight
}

// wordSpan ties a word's character range within its row string to its box.
type wordSpan struct {
	start int
	end   int
	rect  document.Rect
}

// textRow is one reconstructed line of text with per-word geometry.
type textRow struct {
	text  string
	spans []wordSpan
	words []document.PositionedWord
}

// groupRows converts raw positioned characters into rows of words. Character
// Y coordinates are PDF baselines measured from the page bottom; the produced
// rectangles use top-left page coordinates.
func groupRows(chars []pdf.Text, pageHeight float64) []textRow {
	visible := make([]pdf.Text, 0, len(chars))
	for _, c := range chars {
		if strings.TrimSpace(c.S) != "" {
			visible = append(visible, c)
		}
	}
	if len(visible) == 0 {
		return nil
	}

	// Reading order: top row first, left to right within a row.
	sort.SliceStable(visible, func(i, j int) bool {
		if absDiff(visible[i].Y, visible[j].Y) > rowTolerance {
			return visible[i].Y > visible[j].Y
		}
		return visible[i].X < visible[j].X
	})

	var rows []textRow
	var line []pdf.Text
	for _, c := range visible {
		if len(line) > 0 && absDiff(c.Y, line[0].Y) > rowTolerance {
			rows = append(rows, buildRow(line, pageHeight))
			line = line[:0]
		}
		line = append(line, c)
	}
	rows = append(rows, buildRow(line, pageHeight))
	return rows
}

// buildRow splits one line of characters into words on horizontal gaps and
// assembles the row string with word spans.
func buildRow(line []pdf.Text, pageHeight float64) textRow {
	var row textRow
	var sb strings.Builder
	var word []pdf.Text

	flush := func() {
		if len(word) == 0 {
			return
		}
		text, rect := assembleWord(word, pageHeight)
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		start := sb.Len()
		sb.WriteString(text)
		row.spans = append(row.spans, wordSpan{start: start, end: sb.Len(), rect: rect})
		row.words = append(row.words, document.PositionedWord{Rect: rect, Text: text})
		word = word[:0]
	}

	for _, c := range line {
		if len(word) > 0 {
			prev := word[len(word)-1]
			gap := c.X - (prev.X + prev.W)
			if gap > wordGap(prev.FontSize) {
				flush()
			}
		}
		word = append(word, c)
	}
	flush()

	row.text = sb.String()
	return row
}

// assembleWord merges a run of characters into one token and its box.
func assembleWord(word []pdf.Text, pageHeight float64) (string, document.Rect) {
	var sb strings.Builder
	first := word[0]
	minX, maxX := first.X, first.X+first.W
	baseline, fontSize := first.Y, first.FontSize

	for _, c := range word {
		sb.WriteString(c.S)
		if c.X < minX {
			minX = c.X
		}
		if c.X+c.W > maxX {
			maxX = c.X + c.W
		}
		if c.FontSize > fontSize {
			fontSize = c.FontSize
		}
		if c.Y < baseline {
			baseline = c.Y
		}
	}
	if fontSize <= 0 {
		fontSize = 10
	}

	rect := document.NewRect(
		minX,
		pageHeight-baseline-fontSize,
		maxX,
		pageHeight-baseline+fontSize*descentFraction,
	)
	return sb.String(), rect
}

// searchRows finds non-overlapping case-insensitive occurrences of needle in
// each row and returns the union box of the words each occurrence touches.
func searchRows(rows []textRow, needle string) []document.Rect {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return nil
	}

	var hits []document.Rect
	for _, row := range rows {
		lower := strings.ToLower(row.text)
		offset := 0
		for {
			i := strings.Index(lower[offset:], needle)
			if i < 0 {
				break
			}
			start := offset + i
			end := start + len(needle)
			if rect, ok := spanUnion(row.spans, start, end); ok {
				hits = append(hits, rect)
			}
			offset = end
		}
	}
	return hits
}

// spanUnion unions the boxes of all word spans intersecting [start,end).
func spanUnion(spans []wordSpan, start, end int) (document.Rect, bool) {
	var rect document.Rect
	found := false
	for _, s := range spans {
		if s.start < end && s.end > start {
			if !found {
				rect = s.rect
				found = true
			} else {
				rect = rect.Union(s.rect)
			}
		}
	}
	return rect, found
}

func wordGap(fontSize float64) float64 {
	gap := fontSize * wordGapFraction
	if gap < 1 {
		gap = 1
	}
	return gap
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
