package pdf

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/MeKo-Tech/pdfmask/internal/document"
)

// labelColor is the fill color of verification labels.
const labelColor = "#404040"

// labelWidthFactor estimates Helvetica advance width per glyph as a fraction
// of the font size, for the fits check.
const labelWidthFactor = 0.6

// ApplyRedactions implements document.Document. Marked pages are rebuilt from
// rendered pixels with the marks painted over, so the covered text and image
// data do not survive in any form; unmarked pages are carried over as-is.
func (d *Document) ApplyRedactions() error {
	if len(d.marks) == 0 {
		return nil
	}

	data, err := d.Bytes()
	if err != nil {
		return err
	}

	ctx := context.Background()
	conf := model.NewDefaultConfiguration()

	parts := make([]string, 0, d.pages)
	for i := range d.pages {
		marks, marked := d.marks[i]
		var part string
		if marked {
			part, err = d.rasterizePage(ctx, data, i, marks, conf)
		} else {
			part = d.tempPath("keep-%d.pdf")
			err = api.TrimFile(d.path, part, []string{strconv.Itoa(i + 1)}, conf)
		}
		if err != nil {
			return fmt.Errorf("rebuilding page %d: %w", i, err)
		}
		parts = append(parts, part)
	}

	out := d.tempPath("burned-%d.pdf")
	if err := api.MergeCreateFile(parts, out, false, conf); err != nil {
		return fmt.Errorf("assembling redacted document: %w", err)
	}

	d.marks = nil
	d.swap(out)
	return nil
}

// rasterizePage renders one page, paints the marks, and wraps the result in a
// single-page PDF of the original page dimensions.
func (d *Document) rasterizePage(ctx context.Context, data []byte, idx int, marks []mark, conf *model.Configuration) (string, error) {
	img, err := d.renderer.Page(ctx, data, idx+1)
	if err != nil {
		return "", fmt.Errorf("rendering: %w", err)
	}

	painted := paintMarks(img, marks, float64(d.renderer.DPI())/72)

	pngPath := d.tempPath("page-%d.png")
	f, err := os.Create(pngPath) //nolint:gosec // G304: temp dir owned by this document
	if err != nil {
		return "", fmt.Errorf("creating page image: %w", err)
	}
	if err := png.Encode(f, painted); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encoding page image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing page image: %w", err)
	}

	page := &Page{doc: d, index: idx}
	w, h := page.Size()
	imp, err := api.Import(fmt.Sprintf("dimensions:%.0f %.0f, position:c, scalefactor:1.0 rel", w, h), types.POINTS)
	if err != nil {
		return "", fmt.Errorf("configuring page import: %w", err)
	}

	part := d.tempPath("img-%d.pdf")
	if err := api.ImportImagesFile([]string{pngPath}, part, imp, conf); err != nil {
		return "", fmt.Errorf("importing page image: %w", err)
	}
	return part, nil
}

// paintMarks fills every mark rectangle on a copy of the page image. The
// scale converts page points to raster pixels.
func paintMarks(img image.Image, marks []mark, scale float64) image.Image {
	bounds := img.Bounds()
	painted := image.NewRGBA(bounds)
	draw.Draw(painted, bounds, img, bounds.Min, draw.Src)

	for _, m := range marks {
		area := m.rect.ToImageRect(bounds, scale)
		draw.Draw(painted, area, image.NewUniform(m.fill), image.Point{}, draw.Src)
	}
	return painted
}

// InsertLabel implements document.Page via a one-page text watermark placed
// at the box's bottom-left corner. A label that cannot fit the box at the
// given size places nothing and reports zero glyphs.
func (p *Page) InsertLabel(box document.Rect, text string, fontSize float64) (int, error) {
	if !labelFits(box, text, fontSize) {
		return 0, nil
	}

	_, pageHeight := p.Size()
	desc := fmt.Sprintf(
		"fontname:Helvetica, points:%.1f, scalefactor:1 abs, rotation:0, fillcolor:%s, position:bl, offset:%.1f %.1f",
		fontSize, labelColor, box.MinX, pageHeight-box.MaxY)

	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return 0, fmt.Errorf("configuring label: %w", err)
	}

	out := p.doc.tempPath("label-%d.pdf")
	if err := api.AddWatermarksFile(p.doc.path, out, []string{strconv.Itoa(p.index + 1)}, wm, nil); err != nil {
		return 0, fmt.Errorf("placing label: %w", err)
	}

	p.doc.swap(out)
	return utf8.RuneCountInString(text), nil
}

// labelFits estimates whether the label text fits the box at the given size.
func labelFits(box document.Rect, text string, fontSize float64) bool {
	width := labelWidthFactor * fontSize * float64(utf8.RuneCountInString(text))
	return width <= box.Width() && fontSize <= box.Height()
}
