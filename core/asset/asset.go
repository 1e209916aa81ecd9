// Package asset loads watermark images and keeps their decoded headers in a
// small read-through cache keyed by page size class.
package asset

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	// Header decoders for supported watermark formats
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/types"
)

// Asset is a loaded watermark image. It is never modified after Load.
type Asset struct {
	Class  classify.SizeClass
	Path   string
	Data   []byte // encoded file contents
	Width  int    // pixels
	Height int    // pixels
	Format string // decoder name, e.g. "png"
}

// PixelSize returns the image dimensions in pixels
func (a *Asset) PixelSize() (int, int) {
	return a.Width, a.Height
}

// Load reads the image at path and decodes its header
func Load(class classify.SizeClass, path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapErrorf(types.ErrCodeAssetLoad, err, "watermark %s", class).
			WithContext("path", path)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, types.WrapErrorf(types.ErrCodeAssetLoad, err, "watermark %s: unreadable image", class).
			WithContext("path", path)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, types.NewPDFErrorf(types.ErrCodeDegenerateAsset,
			"watermark %s is %dx%d pixels", class, cfg.Width, cfg.Height).
			WithContext("path", path)
	}

	return &Asset{
		Class:  class,
		Path:   path,
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

// Table maps every size class to a watermark file. The zero value is empty
// and rejects every lookup.
type Table struct {
	paths map[classify.SizeClass]string
}

// NewTable builds a table from paths. Every class must be present;
// relative paths are joined to baseDir when it is not empty.
func NewTable(paths map[classify.SizeClass]string, baseDir string) (Table, error) {
	t := Table{paths: make(map[classify.SizeClass]string, len(classify.AllClasses))}
	for _, c := range classify.AllClasses {
		p, ok := paths[c]
		if !ok || p == "" {
			return Table{}, types.NewPDFErrorf(types.ErrCodeInvalidConfig, "no watermark configured for %s", c)
		}
		if baseDir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		t.paths[c] = p
	}
	return t, nil
}

// Path returns the watermark file for class
func (t Table) Path(class classify.SizeClass) (string, bool) {
	p, ok := t.paths[class]
	return p, ok
}

// Entries returns a copy of the mapping
func (t Table) Entries() map[classify.SizeClass]string {
	out := make(map[classify.SizeClass]string, len(t.paths))
	for k, v := range t.paths {
		out[k] = v
	}
	return out
}

func (t Table) String() string {
	return fmt.Sprintf("A4L=%s A4P=%s F4L=%s F4P=%s",
		t.paths[classify.A4Landscape], t.paths[classify.A4Portrait],
		t.paths[classify.F4Landscape], t.paths[classify.F4Portrait])
}
