package render

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageNumOf(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"page-1.png", 1},
		{"page-12.png", 12},
		{"page-003.png", 3},
		{"noprefix.png", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pageNumOf(tt.name), tt.name)
	}
}

func TestCollectRendered_SortsByPageNumber(t *testing.T) {
	dir := t.TempDir()
	// Write pages out of order with distinguishable widths.
	for _, p := range []struct {
		name  string
		width int
	}{
		{"page-10.png", 10},
		{"page-2.png", 2},
		{"page-1.png", 1},
	} {
		writePNG(t, filepath.Join(dir, p.name), p.width)
	}
	// Non-PNG noise must be ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.pdf"), []byte("x"), 0o600))

	imgs, err := collectRendered(dir)
	require.NoError(t, err)
	require.Len(t, imgs, 3)
	assert.Equal(t, 1, imgs[0].Bounds().Dx())
	assert.Equal(t, 2, imgs[1].Bounds().Dx())
	assert.Equal(t, 10, imgs[2].Bounds().Dx())
}

func TestNewRenderer_Defaults(t *testing.T) {
	r := NewRenderer(Config{})
	assert.Equal(t, 150, r.DPI())
	assert.Equal(t, "pdftoppm", r.cfg.Binary)
}

func writePNG(t *testing.T, path string, width int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, 1))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, png.Encode(f, img))
}
