package visualization

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"niftiview/internal/models"
)

// ToImage wraps a display buffer in a grayscale image without copying.
func ToImage(buf *models.DisplayBuffer) *image.Gray {
	return &image.Gray{
		Pix:    buf.Pix,
		Stride: buf.Width,
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}
}

// Compose lays the quad out on one canvas: axial top left, sagittal top
// right, coronal bottom left. The bottom right quadrant is left black for the
// info panel. Each quadrant is as large as the largest plane and every plane
// is centred in its quadrant. Missing planes leave their quadrant black.
func Compose(q *Quad) *image.Gray {
	cw, ch := 1, 1
	for _, buf := range []*models.DisplayBuffer{q.Axial, q.Sagittal, q.Coronal} {
		if buf == nil {
			continue
		}
		cw = max(cw, buf.Width)
		ch = max(ch, buf.Height)
	}

	canvas := image.NewGray(image.Rect(0, 0, 2*cw, 2*ch))
	origins := []image.Point{{0, 0}, {cw, 0}, {0, ch}}
	for i, buf := range []*models.DisplayBuffer{q.Axial, q.Sagittal, q.Coronal} {
		if buf == nil {
			continue
		}
		offset := origins[i].Add(image.Pt((cw-buf.Width)/2, (ch-buf.Height)/2))
		r := image.Rect(0, 0, buf.Width, buf.Height).Add(offset)
		draw.Draw(canvas, r, ToImage(buf), image.Point{}, draw.Src)
	}
	return canvas
}

// SaveImage writes img as PNG or JPEG, chosen by the file extension.
func SaveImage(img image.Image, filename string, quality int) error {
	var encode func(*os.File) error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		encode = func(f *os.File) error { return png.Encode(f, img) }
	case ".jpg", ".jpeg":
		encode = func(f *os.File) error { return jpeg.Encode(f, img, &jpeg.Options{Quality: quality}) }
	default:
		return fmt.Errorf("unsupported image extension %q", filepath.Ext(filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := encode(file); err != nil {
		return err
	}
	return file.Close()
}

// Extension maps an output format name to a file extension.
func Extension(format string) (string, error) {
	switch strings.ToLower(format) {
	case "png":
		return ".png", nil
	case "jpeg", "jpg":
		return ".jpg", nil
	}
	return "", fmt.Errorf("invalid image format %q (must be png or jpeg)", format)
}
