package pdf

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pdfmask/internal/document"
)

func TestLabelFits(t *testing.T) {
	box := document.NewRect(0, 0, 50, 12)

	assert.True(t, labelFits(box, "deadbeef", 10), "8 glyphs at 10pt need 48pt")
	assert.False(t, labelFits(box, "deadbeef", 11), "too wide at 11pt")
	assert.False(t, labelFits(document.NewRect(0, 0, 50, 8), "deadbeef", 10), "too tall for the box")
	assert.True(t, labelFits(document.NewRect(0, 0, 50, 8), "deadbeef", 8))
}

func TestPaintMarks_FillsScaledRect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := range 100 {
		for x := range 100 {
			src.Set(x, y, color.Black)
		}
	}

	// 10..20pt at scale 2 covers pixels 20..40.
	marks := []mark{{rect: document.NewRect(10, 10, 20, 20), fill: color.White}}
	out := paintMarks(src, marks, 2)

	r, g, b, _ := out.At(30, 30).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)

	r, _, _, _ = out.At(10, 10).RGBA()
	assert.Zero(t, r, "outside the mark stays untouched")

	r, _, _, _ = src.RGBAAt(30, 30).RGBA()
	assert.Zero(t, r, "source image is not mutated")
}

func TestByAngle_GroupsAndOrders(t *testing.T) {
	groups := byAngle(map[int]int{3: 90, 1: 90, 2: 270, 5: 360})

	require.Len(t, groups, 2, "full turns are dropped")
	assert.Equal(t, 90, groups[0].degrees)
	assert.Equal(t, []string{"1", "3"}, groups[0].pages)
	assert.Equal(t, 270, groups[1].degrees)
	assert.Equal(t, []string{"2"}, groups[1].pages)
}

func TestFileRotator_NoAnglesPassesThrough(t *testing.T) {
	data := []byte("unchanged")
	out, err := NewFileRotator().Rotate(data, nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestIsPasswordError(t *testing.T) {
	assert.True(t, isPasswordError(errors.New("pdfcpu: please provide the correct password")))
	assert.True(t, isPasswordError(errors.New("this file is Encrypted")))
	assert.False(t, isPasswordError(errors.New("unexpected EOF")))
	assert.False(t, isPasswordError(nil))
}
