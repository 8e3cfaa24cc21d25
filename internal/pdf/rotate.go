package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// FileRotator rewrites page rotation through pdfcpu. It implements
// orientation.Rotator.
type FileRotator struct{}

// NewFileRotator creates a rotator.
func NewFileRotator() *FileRotator {
	return &FileRotator{}
}

// Rotate applies clockwise rotations to the given one-based pages and returns
// the rewritten document. Pages needing the same angle are rotated in one
// pass.
func (r *FileRotator) Rotate(data []byte, angles map[int]int) ([]byte, error) {
	if len(angles) == 0 {
		return data, nil
	}

	dir, err := os.MkdirTemp("", "pdfmask-rotate-*")
	if err != nil {
		return nil, fmt.Errorf("creating rotation temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing rotation input: %w", err)
	}

	for i, angle := range byAngle(angles) {
		out := filepath.Join(dir, fmt.Sprintf("rot-%d.pdf", i))
		if err := api.RotateFile(path, out, angle.degrees, angle.pages, nil); err != nil {
			return nil, fmt.Errorf("rotating pages %v by %d: %w", angle.pages, angle.degrees, err)
		}
		path = out
	}

	rotated, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rotated document: %w", err)
	}
	return rotated, nil
}

type angleGroup struct {
	degrees int
	pages   []string
}

// byAngle groups page numbers by their rotation angle, in a deterministic
// order.
func byAngle(angles map[int]int) []angleGroup {
	pagesFor := make(map[int][]int)
	for page, angle := range angles {
		if angle%360 != 0 {
			pagesFor[angle] = append(pagesFor[angle], page)
		}
	}

	degrees := make([]int, 0, len(pagesFor))
	for d := range pagesFor {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)

	groups := make([]angleGroup, 0, len(degrees))
	for _, d := range degrees {
		pages := pagesFor[d]
		sort.Ints(pages)
		group := angleGroup{degrees: d}
		for _, p := range pages {
			group.pages = append(group.pages, strconv.Itoa(p))
		}
		groups = append(groups, group)
	}
	return groups
}
