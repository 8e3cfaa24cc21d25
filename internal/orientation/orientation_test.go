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

func uniformImage(c color.Color, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestIsBlank(t *testing.T) {
	white := uniformImage(color.White, 20, 20)
	black := uniformImage(color.Black, 20, 20)

	assert.True(t, IsBlank(white, 0.98))
	assert.False(t, IsBlank(black, 0.98))
}

func TestIsBlank_EmptyImage(t *testing.T) {
	assert.True(t, IsBlank(image.NewRGBA(image.Rect(0, 0, 0, 0)), 0.98))
}

func TestAngle_BlankPageIsUpright(t *testing.T) {
	d := NewDetector(DefaultConfig())
	// A blank page never reaches the OSD pass, so no binary is needed.
	assert.Equal(t, 0, d.Angle(context.Background(), uniformImage(color.White, 10, 10)))
}

func TestAngle_NilImageIsUpright(t *testing.T) {
	d := NewDetector(DefaultConfig())
	assert.Equal(t, 0, d.Angle(context.Background(), nil))
}

func TestTrialAngle_PicksBestRotationWithMargin(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// A 2x1 landscape source rotates into a 1x2 portrait shape at 90/270.
	img := uniformImage(color.Black, 2, 1)
	d.score = func(img image.Image) (float64, error) {
		if img.Bounds().Dx() == 1 {
			return 100, nil
		}
		return 10, nil
	}
	assert.Equal(t, 90, d.trialAngle(img))
}

func TestTrialAngle_RequiresClearMargin(t *testing.T) {
	d := NewDetector(DefaultConfig())
	img := uniformImage(color.Black, 2, 1)
	d.score = func(img image.Image) (float64, error) {
		if img.Bounds().Dx() == 1 {
			return 101, nil
		}
		return 100, nil
	}
	assert.Equal(t, 0, d.trialAngle(img))
}

func TestTrialAngle_ScoreFailureIsUpright(t *testing.T) {
	d := NewDetector(DefaultConfig())
	d.score = func(image.Image) (float64, error) { return 0, errors.New("no tessdata") }
	assert.Equal(t, 0, d.trialAngle(uniformImage(color.Black, 2, 2)))
}

func TestRotateClockwise_Dimensions(t *testing.T) {
	img := uniformImage(color.Black, 4, 2)

	r90 := rotateClockwise(img, 90)
	assert.Equal(t, 2, r90.Bounds().Dx())
	assert.Equal(t, 4, r90.Bounds().Dy())

	r180 := rotateClockwise(img, 180)
	assert.Equal(t, 4, r180.Bounds().Dx())

	same := rotateClockwise(img, 0)
	assert.Equal(t, img.Bounds(), same.Bounds())

	wrapped := rotateClockwise(img, 450) // 450 ≡ 90
	assert.Equal(t, 2, wrapped.Bounds().Dx())
}

func TestNormalizeAngle(t *testing.T) {
	assert.Equal(t, 0, normalizeAngle(360))
	assert.Equal(t, 90, normalizeAngle(450))
	assert.Equal(t, 270, normalizeAngle(-90))
}

func TestOSDParse(t *testing.T) {
	out := []byte("Page number: 0\nOrientation in degrees: 270\nRotate: 90\nOrientation confidence: 12.76\n")
	m := rotateLine.FindSubmatch(out)
	require.NotNil(t, m)
	assert.Equal(t, "90", string(m[1]))
}
