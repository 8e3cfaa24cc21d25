package pdf

import (
	"testing"

	"github.com/dslipak/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pdfmask/internal/document"
)

// chars lays out a string as one character per pdf.Text at the given
// baseline, 6pt advance per glyph.
func chars(s string, x, y float64) []pdf.Text {
	out := make([]pdf.Text, 0, len(s))
	for i, r := range s {
		out = append(out, pdf.Text{
			S:        string(r),
			X:        x + float64(i)*6,
			Y:        y,
			W:        6,
			FontSize: 10,
		})
	}
	return out
}

func TestGroupRows_SplitsWordsOnGaps(t *testing.T) {
	line := append(chars("John", 10, 700), chars("Smith", 60, 700)...)
	rows := groupRows(line, 792)

	require.Len(t, rows, 1)
	require.Len(t, rows[0].words, 2)
	assert.Equal(t, "John", rows[0].words[0].Text)
	assert.Equal(t, "Smith", rows[0].words[1].Text)
	assert.Equal(t, "John Smith", rows[0].text)
}

func TestGroupRows_KeepsTightCharsTogether(t *testing.T) {
	rows := groupRows(chars("Invoice", 10, 700), 792)

	require.Len(t, rows, 1)
	require.Len(t, rows[0].words, 1)
	assert.Equal(t, "Invoice", rows[0].words[0].Text)
}

func TestGroupRows_SeparatesLinesAndOrdersTopDown(t *testing.T) {
	texts := append(chars("lower", 10, 100), chars("upper", 10, 700)...)
	rows := groupRows(texts, 792)

	require.Len(t, rows, 2)
	assert.Equal(t, "upper", rows[0].text)
	assert.Equal(t, "lower", rows[1].text)
	assert.Less(t, rows[0].words[0].Rect.MinY, rows[1].words[0].Rect.MinY,
		"top-left coordinates: the upper row has the smaller Y")
}

func TestGroupRows_ConvertsBaselineToTopLeftBox(t *testing.T) {
	rows := groupRows(chars("x", 10, 700), 792)

	require.Len(t, rows, 1)
	rect := rows[0].words[0].Rect
	assert.InDelta(t, 10, rect.MinX, 0.01)
	assert.InDelta(t, 16, rect.MaxX, 0.01)
	assert.InDelta(t, 792-700-10, rect.MinY, 0.01, "top edge one font size above baseline")
	assert.InDelta(t, 792-700+2, rect.MaxY, 0.01, "bottom edge includes descent")
}

func TestGroupRows_SkipsWhitespaceChars(t *testing.T) {
	texts := chars("a", 10, 700)
	texts = append(texts, pdf.Text{S: " ", X: 16, Y: 700, W: 6, FontSize: 10})
	texts = append(texts, chars("b", 40, 700)...)

	rows := groupRows(texts, 792)
	require.Len(t, rows, 1)
	assert.Equal(t, "a b", rows[0].text)
}

func TestGroupRows_Empty(t *testing.T) {
	assert.Nil(t, groupRows(nil, 792))
	assert.Nil(t, groupRows([]pdf.Text{{S: " ", X: 1, Y: 1, W: 1}}, 792))
}

func TestSearchRows_CaseInsensitiveAcrossWords(t *testing.T) {
	line := append(chars("John", 10, 700), chars("Smith", 60, 700)...)
	rows := groupRows(line, 792)

	hits := searchRows(rows, "john smith")
	require.Len(t, hits, 1)
	assert.InDelta(t, 10, hits[0].MinX, 0.01)
	assert.InDelta(t, 90, hits[0].MaxX, 0.01, "union spans both words")
}

func TestSearchRows_SubstringWithinWord(t *testing.T) {
	rows := groupRows(chars("prepaid", 10, 700), 792)

	hits := searchRows(rows, "paid")
	require.Len(t, hits, 1)
	assert.InDelta(t, 10, hits[0].MinX, 0.01, "hit reports the containing word's box")
}

func TestSearchRows_MultipleNonOverlappingOccurrences(t *testing.T) {
	line := append(chars("abc", 10, 700), chars("abc", 60, 700)...)
	rows := groupRows(line, 792)

	hits := searchRows(rows, "abc")
	assert.Len(t, hits, 2)
}

func TestSearchRows_NoHitAcrossLines(t *testing.T) {
	texts := append(chars("John", 10, 700), chars("Smith", 10, 600)...)
	rows := groupRows(texts, 792)

	assert.Empty(t, searchRows(rows, "John Smith"))
	assert.Len(t, searchRows(rows, "Smith"), 1)
}

func TestSearchRows_EmptyNeedle(t *testing.T) {
	rows := groupRows(chars("abc", 10, 700), 792)
	assert.Nil(t, searchRows(rows, "  "))
}

func TestSpanUnion_IgnoresNonIntersecting(t *testing.T) {
	spans := []wordSpan{
		{start: 0, end: 4, rect: document.NewRect(0, 0, 10, 10)},
		{start: 5, end: 9, rect: document.NewRect(20, 0, 30, 10)},
	}

	rect, ok := spanUnion(spans, 0, 3)
	require.True(t, ok)
	assert.Equal(t, 10.0, rect.MaxX)

	_, ok = spanUnion(spans, 10, 12)
	assert.False(t, ok)
}
