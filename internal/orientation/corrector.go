package orientation

import (
	"context"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/pdfmask/internal/render"
)

// Rotator applies page rotations to a document byte buffer. The document
// backend implements this; angles map one-based page numbers to clockwise
// degrees.
type Rotator interface {
	Rotate(data []byte, angles map[int]int) ([]byte, error)
}

// pageRenderer renders every page of a document to images.
type pageRenderer interface {
	Pages(ctx context.Context, data []byte) ([]image.Image, error)
}

// Corrector renders a document's pages, detects their rotation, and rewrites
// the document with corrected page orientation. Correction is best-effort:
// whenever rendering, detection, or rotation fails, the input bytes pass
// through unchanged so redaction is never blocked on orientation.
type Corrector struct {
	detector *Detector
	renderer pageRenderer
	rotator  Rotator
	enabled  bool
}

// NewCorrector wires a corrector from its collaborators.
func NewCorrector(cfg Config, renderer *render.Renderer, rotator Rotator) *Corrector {
	return &Corrector{
		detector: NewDetector(cfg),
		renderer: renderer,
		rotator:  rotator,
		enabled:  cfg.Enabled,
	}
}

// Correct returns a rotation-corrected copy of data, or data itself when no
// page needs correction or the correction could not be performed.
func (c *Corrector) Correct(ctx context.Context, data []byte) ([]byte, error) {
	if !c.enabled {
		return data, nil
	}

	imgs, err := c.renderer.Pages(ctx, data)
	if err != nil {
		slog.Warn("page rendering failed, skipping rotation correction", "error", err)
		return data, nil
	}

	angles := make(map[int]int)
	for i, img := range imgs {
		if angle := c.detector.Angle(ctx, img); angle != 0 {
			angles[i+1] = angle
		}
	}
	if len(angles) == 0 {
		return data, nil
	}

	slog.Info("correcting page rotation", "pages", len(angles))
	out, err := c.rotator.Rotate(data, angles)
	if err != nil {
		slog.Warn("rotation rewrite failed, keeping original orientation", "error", err)
		return data, nil
	}
	return out, nil
}
