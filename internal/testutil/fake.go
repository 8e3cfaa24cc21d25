// Package testutil provides in-memory fakes of the document backend for unit
// tests of the matching, evidence, and redaction engines.
package testutil

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/MeKo-Tech/pdfmask/internal/document"
)

// FakeProvider opens FakeDocuments keyed by the byte payload. Unknown
// payloads fall back to the Default document when set.
type FakeProvider struct {
	Docs    map[string]*FakeDocument
	Default *FakeDocument
	OpenErr error
}

// Open implements document.Provider.
func (p *FakeProvider) Open(data []byte) (document.Document, error) {
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	if doc, ok := p.Docs[string(data)]; ok {
		return doc, nil
	}
	if p.Default != nil {
		return p.Default, nil
	}
	return nil, fmt.Errorf("testutil: no fake document for payload %q", string(data))
}

// FakeDocument is an in-memory document made of FakePages.
type FakeDocument struct {
	Pages     []*FakePage
	Applied   int // number of ApplyRedactions calls
	Closed    bool
	Out       []byte // payload returned by Bytes
	ApplyErr  error
	SerialErr error
}

// PageCount implements document.Document.
func (d *FakeDocument) PageCount() int { return len(d.Pages) }

// Page implements document.Document.
func (d *FakeDocument) Page(i int) (document.Page, error) {
	if i < 0 || i >= len(d.Pages) {
		return nil, fmt.Errorf("testutil: page %d out of range", i)
	}
	return d.Pages[i], nil
}

// ApplyRedactions blanks the text of every marked region. The fake models
// irreversibility by dropping marked words and clearing the page text.
func (d *FakeDocument) ApplyRedactions() error {
	if d.ApplyErr != nil {
		return d.ApplyErr
	}
	d.Applied++
	for _, p := range d.Pages {
		p.applyMarks()
	}
	return nil
}

// Bytes implements document.Document.
func (d *FakeDocument) Bytes() ([]byte, error) {
	if d.SerialErr != nil {
		return nil, d.SerialErr
	}
	if d.Out != nil {
		return d.Out, nil
	}
	return []byte("fake-document"), nil
}

// Close implements document.Document.
func (d *FakeDocument) Close() error {
	d.Closed = true
	return nil
}

// Mark records one MarkRedaction call.
type Mark struct {
	Rect document.Rect
	Fill color.Color
}

// Label records one successful InsertLabel call.
type Label struct {
	Box      document.Rect
	Text     string
	FontSize float64
}

// FakePage is an in-memory page. SearchHits maps a lowercased needle to the
// rectangles Search returns for it. MinLabelFont rejects label insertions
// below the given size, modeling a box too small for large text.
type FakePage struct {
	Index        int
	PageText     string
	WordList     []document.PositionedWord
	SearchHits   map[string][]document.Rect
	Marks        []Mark
	Labels       []Label
	MinLabelFont float64 // labels only fit at sizes <= this; 0 means all fit
	NoLabelFits  bool
	WordsErr     error
	TextErr      error
	Width        float64
	Height       float64
}

// Number implements document.Page.
func (p *FakePage) Number() int { return p.Index }

// Size implements document.Page.
func (p *FakePage) Size() (float64, float64) {
	if p.Width == 0 {
		return 612, 792
	}
	return p.Width, p.Height
}

// Text implements document.Page.
func (p *FakePage) Text() (string, error) {
	if p.TextErr != nil {
		return "", p.TextErr
	}
	return p.PageText, nil
}

// Words implements document.Page.
func (p *FakePage) Words() ([]document.PositionedWord, error) {
	if p.WordsErr != nil {
		return nil, p.WordsErr
	}
	return p.WordList, nil
}

// Search implements document.Page with a case-insensitive lookup against
// SearchHits.
func (p *FakePage) Search(needle string) ([]document.Rect, error) {
	return p.SearchHits[strings.ToLower(needle)], nil
}

// MarkRedaction implements document.Page.
func (p *FakePage) MarkRedaction(rect document.Rect, fill color.Color) {
	p.Marks = append(p.Marks, Mark{Rect: rect, Fill: fill})
}

// InsertLabel implements document.Page.
func (p *FakePage) InsertLabel(box document.Rect, text string, fontSize float64) (int, error) {
	if p.NoLabelFits {
		return 0, nil
	}
	if p.MinLabelFont > 0 && fontSize > p.MinLabelFont {
		return 0, nil
	}
	p.Labels = append(p.Labels, Label{Box: box, Text: text, FontSize: fontSize})
	return len(text), nil
}

// applyMarks models burn-in: marked regions destroy overlapping words and
// remove the marked needles from the page text.
func (p *FakePage) applyMarks() {
	if len(p.Marks) == 0 {
		return
	}
	kept := p.WordList[:0]
	for _, w := range p.WordList {
		covered := false
		for _, m := range p.Marks {
			if w.Rect.MinX >= m.Rect.MinX-0.01 && w.Rect.MaxX <= m.Rect.MaxX+0.01 &&
				w.Rect.MinY >= m.Rect.MinY-0.01 && w.Rect.MaxY <= m.Rect.MaxY+0.01 {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, w)
		}
	}
	p.WordList = kept
	p.PageText = ""
	p.Marks = nil
}

// Word is a convenience constructor for a positioned word.
func Word(idx int, x0, y0, x1, y1 float64, text string) document.PositionedWord {
	return document.PositionedWord{
		Rect:  document.NewRect(x0, y0, x1, y1),
		Text:  text,
		Index: idx,
	}
}
