// Package pdf implements the document backend: page text and word geometry
// come from the dslipak reader, structural rewrites go through pdfcpu, and
// redaction burn-in rebuilds marked pages from rendered pixels so removed
// content is unrecoverable.
package pdf

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/pdfmask/internal/document"
	"github.com/MeKo-Tech/pdfmask/internal/render"
)

// Provider opens byte buffers as Documents. The renderer is shared by all
// documents a provider opens; it is only exercised during burn-in.
type Provider struct {
	renderer *render.Renderer
}

// NewProvider creates a provider that burns redactions in at the renderer's
// resolution.
func NewProvider(renderer *render.Renderer) *Provider {
	if renderer == nil {
		renderer = render.NewRenderer(render.DefaultConfig())
	}
	return &Provider{renderer: renderer}
}

// Open implements document.Provider. The snapshot is materialized in a
// private temp directory; Close removes it.
func (p *Provider) Open(data []byte) (document.Document, error) {
	dir, err := os.MkdirTemp("", "pdfmask-doc-*")
	if err != nil {
		return nil, fmt.Errorf("creating document temp dir: %w", err)
	}

	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("writing document snapshot: %w", err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("reading document: %w", err)
	}

	return &Document{
		dir:      dir,
		path:     path,
		pages:    pages,
		renderer: p.renderer,
	}, nil
}

// mark is one pending redaction rectangle.
type mark struct {
	rect document.Rect
	fill color.Color
}

// Document is one open snapshot backed by a temp file. It is not safe for
// concurrent use.
type Document struct {
	dir      string
	path     string
	pages    int
	renderer *render.Renderer
	marks    map[int][]mark
	reader   *pdf.Reader
	seq      int
}

// PageCount implements document.Document.
func (d *Document) PageCount() int { return d.pages }

// Page implements document.Document.
func (d *Document) Page(i int) (document.Page, error) {
	if i < 0 || i >= d.pages {
		return nil, fmt.Errorf("page %d out of range [0,%d)", i, d.pages)
	}
	return &Page{doc: d, index: i}, nil
}

// Bytes implements document.Document.
func (d *Document) Bytes() ([]byte, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("reading document snapshot: %w", err)
	}
	return data, nil
}

// Close implements document.Document.
func (d *Document) Close() error {
	d.reader = nil
	return os.RemoveAll(d.dir)
}

// open returns the text reader for the current snapshot state, creating it on
// first use after every rewrite.
func (d *Document) open() (*pdf.Reader, error) {
	if d.reader != nil {
		return d.reader, nil
	}
	reader, err := pdf.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("opening document for text extraction: %w", err)
	}
	d.reader = reader
	return reader, nil
}

// swap points the document at a rewritten file and invalidates cached state.
func (d *Document) swap(path string) {
	d.path = path
	d.reader = nil
}

// tempPath returns a fresh file path inside the document's temp dir.
func (d *Document) tempPath(pattern string) string {
	d.seq++
	return filepath.Join(d.dir, fmt.Sprintf(pattern, d.seq))
}

// Page is a view into one page of a Document. Pages stay valid across
// ApplyRedactions; they re-read the rewritten snapshot on next use.
type Page struct {
	doc   *Document
	index int
}

// Number implements document.Page.
func (p *Page) Number() int { return p.index }

// Size implements document.Page, falling back to US Letter when the page
// carries no usable MediaBox.
func (p *Page) Size() (float64, float64) {
	reader, err := p.doc.open()
	if err != nil {
		return letterWidth, letterHeight
	}
	return mediaBoxSize(reader.Page(p.index + 1))
}

// Text implements document.Page.
func (p *Page) Text() (string, error) {
	reader, err := p.doc.open()
	if err != nil {
		return "", err
	}
	page := reader.Page(p.index + 1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting text from page %d: %w", p.index, err)
	}
	return text, nil
}

// Words implements document.Page.
func (p *Page) Words() ([]document.PositionedWord, error) {
	rows, err := p.rows()
	if err != nil {
		return nil, err
	}
	var words []document.PositionedWord
	for _, row := range rows {
		for _, w := range row.words {
			w.Index = len(words)
			words = append(words, w)
		}
	}
	return words, nil
}

// Search implements document.Page with a case-insensitive substring scan over
// each text row.
func (p *Page) Search(needle string) ([]document.Rect, error) {
	rows, err := p.rows()
	if err != nil {
		return nil, err
	}
	return searchRows(rows, needle), nil
}

// MarkRedaction implements document.Page. Marks accumulate on the document
// until ApplyRedactions runs.
func (p *Page) MarkRedaction(rect document.Rect, fill color.Color) {
	if p.doc.marks == nil {
		p.doc.marks = make(map[int][]mark)
	}
	p.doc.marks[p.index] = append(p.doc.marks[p.index], mark{rect: rect, fill: fill})
}

// rows extracts the page's positioned characters grouped into text rows,
// converted to top-left page coordinates.
func (p *Page) rows() ([]textRow, error) {
	reader, err := p.doc.open()
	if err != nil {
		return nil, err
	}
	page := reader.Page(p.index + 1)
	if page.V.IsNull() {
		return nil, nil
	}
	_, pageHeight := mediaBoxSize(page)
	return groupRows(page.Content().Text, pageHeight), nil
}
