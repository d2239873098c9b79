package visualization

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"niftiview/internal/models"
	"niftiview/pkg/logging"
	"niftiview/pkg/normalize"
	"niftiview/pkg/slicer"
	"niftiview/pkg/volume"
)

// Center requests the middle slice along an axis.
const Center = -1

// Indices selects the slice shown in each plane. Negative values select the
// centre slice.
type Indices struct {
	Axial    int
	Sagittal int
	Coronal  int
}

// CenterIndices selects the centre slice in every plane.
func CenterIndices() Indices {
	return Indices{Axial: Center, Sagittal: Center, Coronal: Center}
}

func (ix Indices) forAxis(axis slicer.Axis) int {
	switch axis {
	case slicer.X:
		return ix.Sagittal
	case slicer.Y:
		return ix.Coronal
	}
	return ix.Axial
}

// Quad holds the three rendered planes and the info panel text. A plane that
// could not be rendered is nil and its error is recorded in Errors.
type Quad struct {
	Axial    *models.DisplayBuffer
	Sagittal *models.DisplayBuffer
	Coronal  *models.DisplayBuffer
	Info     string
	Errors   map[slicer.Axis]error
}

// Plane returns the display buffer for the plane fixed along axis.
func (q *Quad) Plane(axis slicer.Axis) *models.DisplayBuffer {
	switch axis {
	case slicer.X:
		return q.Sagittal
	case slicer.Y:
		return q.Coronal
	}
	return q.Axial
}

func (q *Quad) set(axis slicer.Axis, buf *models.DisplayBuffer) {
	switch axis {
	case slicer.X:
		q.Sagittal = buf
	case slicer.Y:
		q.Coronal = buf
	default:
		q.Axial = buf
	}
}

// Viewer renders orthogonal slices of a single volume. The volume is owned by
// the caller and must stay open while any Viewer method is running.
type Viewer struct {
	vol   *volume.Volume
	frame int
	cache *sliceCache
}

// NewViewer creates a viewer over one frame of vol. cacheBytes sets the size
// of the display buffer cache; 0 disables caching.
func NewViewer(vol *volume.Volume, frame int, cacheBytes int) *Viewer {
	if cacheBytes > 0 {
		if plane := largestPlane(vol); plane > cacheEntryLimit(cacheBytes) {
			logging.Warningf("Cache of %d bytes is too small for %d pixel planes; slices will not be cached",
				cacheBytes, plane)
		}
	}
	return &Viewer{
		vol:   vol,
		frame: frame,
		cache: newSliceCache(cacheBytes),
	}
}

// largestPlane returns the pixel count of the biggest orthogonal slice.
func largestPlane(vol *volume.Volume) int {
	var n [3]int
	for axis := range n {
		e, err := vol.Extent(axis)
		if err != nil {
			return 0
		}
		n[axis] = e
	}
	return max(n[0]*n[1], n[0]*n[2], n[1]*n[2])
}

// Volume returns the volume being viewed.
func (v *Viewer) Volume() *volume.Volume {
	return v.vol
}

// CacheHits returns how many slice requests were served from the cache.
func (v *Viewer) CacheHits() int64 {
	return v.cache.hits()
}

// ExtractSlice extracts and normalizes the slice at position along axis.
func (v *Viewer) ExtractSlice(axis slicer.Axis, position int) (*models.DisplayBuffer, error) {
	if buf, found := v.cache.get(axis, position, v.frame); found {
		return buf, nil
	}

	s, err := slicer.ExtractFrameSlice(v.vol, axis, position, v.frame)
	if err != nil {
		return nil, err
	}
	buf, err := normalize.Normalize(s)
	if err != nil {
		return nil, fmt.Errorf("%s slice %d: %w", axis.Plane(), position, err)
	}
	v.cache.put(axis, position, v.frame, buf)
	return buf, nil
}

// Render builds the axial, sagittal and coronal planes concurrently. A plane
// that fails to extract or normalize is logged and left empty; only context
// cancellation fails the whole render.
func (v *Viewer) Render(ctx context.Context, ix Indices) (*Quad, error) {
	q := &Quad{
		Info:   InfoText(v.vol),
		Errors: make(map[slicer.Axis]error),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, axis := range slicer.Axes {
		axis := axis
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			index := ix.forAxis(axis)
			if index < 0 {
				c, err := slicer.Center(v.vol, axis)
				if err != nil {
					mu.Lock()
					q.Errors[axis] = err
					mu.Unlock()
					logging.Warningf("Skipping %s plane: %v", axis.Plane(), err)
					return nil
				}
				index = c
			}

			buf, err := v.ExtractSlice(axis, index)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				q.Errors[axis] = err
				logging.Warningf("Skipping %s plane: %v", axis.Plane(), err)
				return nil
			}
			logging.Debugf("Rendered %s slice %d (%dx%d)", axis.Plane(), index, buf.Width, buf.Height)
			q.set(axis, buf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return q, nil
}

// SaveSliceSequence extracts and saves every slice along the specified axis.
// Slices with a degenerate intensity range are skipped.
func (v *Viewer) SaveSliceSequence(axis slicer.Axis, outputDir string, format string, quality int) error {
	if axis < slicer.X || axis > slicer.Z {
		return fmt.Errorf("%w: %v", slicer.ErrInvalidSliceRequest, axis)
	}
	maxPos, err := v.vol.Extent(int(axis))
	if err != nil {
		return fmt.Errorf("%w: %v", slicer.ErrInvalidSliceRequest, err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	ext, err := Extension(format)
	if err != nil {
		return err
	}

	for pos := 0; pos < maxPos; pos++ {
		buf, err := v.ExtractSlice(axis, pos)
		if errors.Is(err, normalize.ErrDegenerateRange) {
			logging.Debugf("Skipping flat %s slice %d", axis.Plane(), pos)
			continue
		}
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d%s", axis, pos, ext))
		if err := SaveImage(ToImage(buf), filename, quality); err != nil {
			return err
		}
	}

	return nil
}
