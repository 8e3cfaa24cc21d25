// Package orientation determines the clockwise rotation needed to bring a
// rendered page upright. Visually blank pages are reported as already
// upright; detection goes through tesseract's orientation-and-script pass,
// with an optional trial-rotation fallback scored by recognition confidence.
package orientation

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Config controls page orientation detection behavior.
type Config struct {
	Enabled bool `json:"enabled"`
	// BlankThreshold is the mean luminance ratio above which a page counts as
	// visually blank and skips detection entirely.
	BlankThreshold float64 `json:"blank_threshold"`
	// TesseractBinary is the executable used for the OSD pass.
	TesseractBinary string `json:"tesseract_binary"`
	// UseTrialFallback enables the gosseract trial-rotation fallback when the
	// OSD pass is unavailable or fails.
	UseTrialFallback bool `json:"use_trial_fallback"`
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		BlankThreshold:   0.98,
		TesseractBinary:  "tesseract",
		UseTrialFallback: true,
	}
}

// scoreFunc rates how well text is recognized in an image. Higher is better.
type scoreFunc func(img image.Image) (float64, error)

// Detector detects page rotation from a rendered page image.
type Detector struct {
	cfg   Config
	score scoreFunc
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	if cfg.BlankThreshold <= 0 {
		cfg.BlankThreshold = DefaultConfig().BlankThreshold
	}
	if cfg.TesseractBinary == "" {
		cfg.TesseractBinary = DefaultConfig().TesseractBinary
	}
	return &Detector{cfg: cfg, score: gosseractScore}
}

// Angle returns the clockwise rotation in degrees that brings the page
// upright, or 0 when the page is blank or the rotation is indeterminate.
// Detection failures are never fatal.
func (d *Detector) Angle(ctx context.Context, img image.Image) int {
	if img == nil || IsBlank(img, d.cfg.BlankThreshold) {
		return 0
	}

	angle, err := d.osdAngle(ctx, img)
	if err == nil {
		return angle
	}
	slog.Debug("tesseract OSD unavailable", "error", err)

	if d.cfg.UseTrialFallback {
		return d.trialAngle(img)
	}
	return 0
}

var rotateLine = regexp.MustCompile(`Rotate:\s*(\d+)`)

// osdAngle runs tesseract's orientation-and-script-detection pass and parses
// the reported clockwise rotation.
func (d *Detector) osdAngle(ctx context.Context, img image.Image) (int, error) {
	dir, err := os.MkdirTemp("", "pdfmask-osd-*")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	imgPath := filepath.Join(dir, "page.png")
	f, err := os.Create(imgPath) //nolint:gosec // G304: temp dir owned by this process
	if err != nil {
		return 0, err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, d.cfg.TesseractBinary, imgPath, "stdout", "--psm", "0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, err
	}
	m := rotateLine.FindSubmatch(out)
	if m == nil {
		return 0, nil
	}
	angle, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, nil
	}
	return normalizeAngle(angle), nil
}

// trialAngle recognizes the page at each quarter rotation and picks the one
// scoring best, requiring a clear margin over the unrotated page so noisy
// pages stay untouched.
func (d *Detector) trialAngle(img image.Image) int {
	base, err := d.score(img)
	if err != nil {
		slog.Debug("trial rotation scoring failed", "error", err)
		return 0
	}

	best, bestAngle := base, 0
	for _, angle := range []int{90, 180, 270} {
		s, err := d.score(rotateClockwise(img, angle))
		if err != nil {
			continue
		}
		if s > best {
			best, bestAngle = s, angle
		}
	}
	if bestAngle != 0 && best < base*1.1+1 {
		// Not clearly better than leaving the page alone.
		return 0
	}
	return bestAngle
}

// rotateClockwise rotates img clockwise by a multiple of 90 degrees.
func rotateClockwise(img image.Image, angle int) image.Image {
	switch normalizeAngle(angle) {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func normalizeAngle(angle int) int {
	angle %= 360
	if angle < 0 {
		angle += 360
	}
	return angle
}

// IsBlank reports whether the image's mean luminance ratio exceeds the
// threshold, i.e. the page is visually (near-)white.
func IsBlank(img image.Image, threshold float64) bool {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return true
	}

	var sum uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// Grayscale output keeps equal RGB channels; read the red one.
			i := gray.PixOffset(x, y)
			sum += uint64(gray.Pix[i])
		}
	}
	mean := float64(sum) / float64(total) / 255.0
	return mean > threshold
}

// gosseractScore rates recognition quality as the summed confidence of all
// recognized words.
func gosseractScore(img image.Image) (float64, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, err
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return 0, err
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return 0, err
	}
	var score float64
	for _, b := range boxes {
		score += b.Confidence
	}
	return score, nil
}
