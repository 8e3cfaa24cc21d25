package orientation

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	imgs []image.Image
	err  error
}

func (s *stubRenderer) Pages(context.Context, []byte) ([]image.Image, error) {
	return s.imgs, s.err
}

type stubRotator struct {
	angles map[int]int
	out    []byte
	err    error
}

func (s *stubRotator) Rotate(_ []byte, angles map[int]int) ([]byte, error) {
	s.angles = angles
	return s.out, s.err
}

func newTestCorrector(renderer pageRenderer, rotator Rotator) *Corrector {
	cfg := DefaultConfig()
	cfg.UseTrialFallback = false
	return &Corrector{
		detector: NewDetector(cfg),
		renderer: renderer,
		rotator:  rotator,
		enabled:  true,
	}
}

func TestCorrect_BlankPagesPassThrough(t *testing.T) {
	white := uniformImage(color.White, 8, 8)
	rot := &stubRotator{out: []byte("rotated")}
	c := newTestCorrector(&stubRenderer{imgs: []image.Image{white, white}}, rot)

	out, err := c.Correct(context.Background(), []byte("orig"))
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), out)
	assert.Nil(t, rot.angles, "rotator must not run for blank pages")
}

func TestCorrect_RenderFailurePassesThrough(t *testing.T) {
	c := newTestCorrector(&stubRenderer{err: errors.New("no pdftoppm")}, &stubRotator{})

	out, err := c.Correct(context.Background(), []byte("orig"))
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), out)
}

// rotationDetectingCorrector builds a corrector whose detector deterministically
// reports 90 degrees for landscape pages, without any external binaries.
func rotationDetectingCorrector(renderer pageRenderer, rotator Rotator) *Corrector {
	cfg := DefaultConfig()
	cfg.TesseractBinary = "/nonexistent/tesseract"
	cfg.UseTrialFallback = true
	detector := NewDetector(cfg)
	detector.score = func(img image.Image) (float64, error) {
		if img.Bounds().Dx() < img.Bounds().Dy() {
			return 100, nil // portrait scores best
		}
		return 10, nil
	}
	return &Corrector{detector: detector, renderer: renderer, rotator: rotator, enabled: true}
}

func TestCorrect_RotatorFailurePassesThrough(t *testing.T) {
	landscape := uniformImage(color.Black, 2, 1)
	rot := &stubRotator{err: errors.New("rewrite failed")}
	c := rotationDetectingCorrector(&stubRenderer{imgs: []image.Image{landscape}}, rot)

	out, err := c.Correct(context.Background(), []byte("orig"))
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), out)
	assert.Equal(t, map[int]int{1: 90}, rot.angles, "rotation was attempted before falling back")
}

func TestCorrect_DisabledPassesThrough(t *testing.T) {
	c := &Corrector{enabled: false}
	out, err := c.Correct(context.Background(), []byte("orig"))
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), out)
}

func TestCorrect_AppliesDetectedAngles(t *testing.T) {
	landscape := uniformImage(color.Black, 2, 1)
	blank := uniformImage(color.White, 8, 8)
	rot := &stubRotator{out: []byte("rotated")}
	c := rotationDetectingCorrector(&stubRenderer{imgs: []image.Image{landscape, blank}}, rot)

	out, err := c.Correct(context.Background(), []byte("orig"))
	require.NoError(t, err)
	assert.Equal(t, []byte("rotated"), out)
	assert.Equal(t, map[int]int{1: 90}, rot.angles, "only the landscape page rotates")
}
