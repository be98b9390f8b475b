// Package annotate draws detections onto images.
package annotate

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/Tutortoise/facetract/models"
)

const lineWidth = 2

// Draw returns a copy of img with each detection outlined. img itself is not
// modified. The result keeps img's bounds origin at (0, 0).
func Draw(img image.Image, dets []models.Detection) image.Image {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)

	dc.SetRGB(0, 1, 0)
	dc.SetLineWidth(lineWidth)
	for _, d := range dets {
		box := d.Box()
		dc.DrawRectangle(
			float64(box.X1)-float64(b.Min.X),
			float64(box.Y1)-float64(b.Min.Y),
			float64(box.Width()),
			float64(box.Height()),
		)
		dc.Stroke()
	}

	return dc.Image()
}

// maxSuffix bounds the search for a free file name.
const maxSuffix = 1000

// Save writes img into dir as <base>.annotated<ext>, where base and ext come
// from source. Existing files, the source included, are never replaced: a
// taken name gets a numeric suffix. The format follows the extension.
func Save(dir, source string, img image.Image) (string, error) {
	format, err := imaging.FormatFromFilename(source)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", source, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create annotation dir: %w", err)
	}

	ext := filepath.Ext(source)
	base := strings.TrimSuffix(filepath.Base(source), ext)
	for i := 0; i < maxSuffix; i++ {
		name := base + ".annotated" + ext
		if i > 0 {
			name = fmt.Sprintf("%s.annotated-%d%s", base, i, ext)
		}
		dst := filepath.Join(dir, name)

		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", dst, err)
		}

		err = imaging.Encode(f, img, format, imaging.JPEGQuality(95))
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
			return "", fmt.Errorf("save %s: %w", dst, err)
		}
		return dst, nil
	}
	return "", fmt.Errorf("save %s: no free name in %s", source, dir)
}
