// Package render rasterizes document pages through the poppler pdftoppm
// tool. Rendering is needed in two places only: orientation detection, which
// inspects the page as an image, and redaction burn-in, which rebuilds marked
// pages from pixels.
package render

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Config holds renderer settings.
type Config struct {
	// Binary is the pdftoppm executable name or path.
	Binary string `json:"binary"`
	// DPI is the raster resolution.
	DPI int `json:"dpi"`
}

// DefaultConfig provides renderer defaults.
func DefaultConfig() Config {
	return Config{Binary: "pdftoppm", DPI: 150}
}

// Renderer rasterizes pages of a PDF byte buffer.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a renderer with the given configuration.
func NewRenderer(cfg Config) *Renderer {
	if cfg.Binary == "" {
		cfg.Binary = DefaultConfig().Binary
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultConfig().DPI
	}
	return &Renderer{cfg: cfg}
}

// DPI returns the configured raster resolution.
func (r *Renderer) DPI() int { return r.cfg.DPI }

// Pages renders every page of the document and returns the images in page
// order.
func (r *Renderer) Pages(ctx context.Context, data []byte) ([]image.Image, error) {
	return r.run(ctx, data, nil, nil)
}

// Page renders the single one-based page number.
func (r *Renderer) Page(ctx context.Context, data []byte, pageNum int) (image.Image, error) {
	imgs, err := r.run(ctx, data, &pageNum, &pageNum)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d", pageNum)
	}
	return imgs[0], nil
}

func (r *Renderer) run(ctx context.Context, data []byte, first, last *int) ([]image.Image, error) {
	dir, err := os.MkdirTemp("", "pdfmask-render-*")
	if err != nil {
		return nil, fmt.Errorf("creating render temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	inPath := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing render input: %w", err)
	}

	args := []string{"-png", "-r", strconv.Itoa(r.cfg.DPI)}
	if first != nil {
		args = append(args, "-f", strconv.Itoa(*first))
	}
	if last != nil {
		args = append(args, "-l", strconv.Itoa(*last))
	}
	prefix := filepath.Join(dir, "page")
	args = append(args, inPath, prefix)

	cmd := exec.CommandContext(ctx, r.cfg.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return collectRendered(dir)
}

// collectRendered loads the pdftoppm output files, sorted by page number.
// pdftoppm names them page-1.png, page-2.png, ... (zero-padded on demand).
func collectRendered(dir string) ([]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing rendered pages: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return pageNumOf(names[i]) < pageNumOf(names[j])
	})

	imgs := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("decoding rendered page %s: %w", name, err)
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

func pageNumOf(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // G304: temp dir owned by this process
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err == nil {
		return img, nil
	}
	// pdftoppm may emit other formats depending on flags; fall back to the
	// registered decoders.
	if _, serr := f.Seek(0, 0); serr != nil {
		return nil, err
	}
	img, _, derr := image.Decode(f)
	if derr != nil {
		return nil, err
	}
	return img, nil
}
