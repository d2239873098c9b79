// Package slicer extracts orthogonal 2D cross-sections from a volume.
//
// The flat index of voxel (x, y, z) in frame t is
//
//	t*nx*ny*nz + z*nx*ny + y*nx + x
//
// An axial slice (Z fixed) is a contiguous run of the buffer; coronal (Y
// fixed) and sagittal (X fixed) slices are strided. Samples are converted to
// float64 in the same pass, by a copy routine chosen once per slice for the
// volume's scalar kind.
package slicer

import (
	"errors"
	"fmt"
	"strings"

	"niftiview/internal/models"
	"niftiview/pkg/volume"
)

// ErrInvalidSliceRequest is returned when the axis, index or frame does not
// address a slice of the volume, or the volume has fewer than three dimensions.
var ErrInvalidSliceRequest = errors.New("invalid slice request")

// Axis selects the spatial axis held fixed by a slice.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// Axes lists the three spatial axes in display order: axial, sagittal, coronal.
var Axes = []Axis{Z, X, Y}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Plane returns the anatomical name of the plane spanned by a slice fixed
// along this axis.
func (a Axis) Plane() string {
	switch a {
	case X:
		return "sagittal"
	case Y:
		return "coronal"
	case Z:
		return "axial"
	}
	return "unknown"
}

// ParseAxis accepts x/y/z in either case, or a plane name.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x", "sagittal":
		return X, nil
	case "y", "coronal":
		return Y, nil
	case "z", "axial":
		return Z, nil
	}
	return 0, fmt.Errorf("%w: invalid axis %q (must be x, y, or z)", ErrInvalidSliceRequest, s)
}

// geometry holds the spatial extents of the volume and the frame offset.
type geometry struct {
	nx, ny, nz int
	base       int
}

func (g geometry) extent(axis Axis) int {
	switch axis {
	case X:
		return g.nx
	case Y:
		return g.ny
	}
	return g.nz
}

// Center returns the middle index along axis, or an error if the volume has
// no such spatial axis.
func Center(vol *volume.Volume, axis Axis) (int, error) {
	if axis < X || axis > Z {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSliceRequest, axis)
	}
	n, err := vol.Extent(int(axis))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSliceRequest, err)
	}
	return n / 2, nil
}

// ExtractSlice returns the slice at index along axis from the first frame.
func ExtractSlice(vol *volume.Volume, axis Axis, index int) (*models.Slice, error) {
	return ExtractFrameSlice(vol, axis, index, 0)
}

// ExtractFrameSlice returns the slice at index along axis from the given
// frame of a 4D or higher volume.
func ExtractFrameSlice(vol *volume.Volume, axis Axis, index, frame int) (*models.Slice, error) {
	if axis < X || axis > Z {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSliceRequest, axis)
	}
	if vol.DimensionCount() < 3 {
		return nil, fmt.Errorf("%w: volume has %d dimensions, need at least 3",
			ErrInvalidSliceRequest, vol.DimensionCount())
	}
	shape := vol.Shape()
	g := geometry{nx: shape[0], ny: shape[1], nz: shape[2]}
	if g.nx <= 0 || g.ny <= 0 || g.nz <= 0 {
		return nil, fmt.Errorf("%w: empty spatial extent %dx%dx%d",
			ErrInvalidSliceRequest, g.nx, g.ny, g.nz)
	}
	if n := g.extent(axis); index < 0 || index >= n {
		return nil, fmt.Errorf("%w: %s index %d outside [0,%d)", ErrInvalidSliceRequest, axis, index, n)
	}
	if frames := vol.Frames(); frame < 0 || frame >= frames {
		return nil, fmt.Errorf("%w: frame %d outside [0,%d)", ErrInvalidSliceRequest, frame, frames)
	}
	g.base = frame * g.nx * g.ny * g.nz

	var samples []float64
	switch raw := vol.Raw().(type) {
	case []uint8:
		samples = extract(raw, g, axis, index)
	case []int16:
		samples = extract(raw, g, axis, index)
	case []int32:
		samples = extract(raw, g, axis, index)
	case []float32:
		samples = extract(raw, g, axis, index)
	case []float64:
		samples = extract(raw, g, axis, index)
	default:
		return nil, fmt.Errorf("%w: %v", volume.ErrUnsupportedScalarKind, vol.ScalarKind())
	}

	s := &models.Slice{
		Samples: samples,
		Axis:    int(axis),
		Index:   index,
		Frame:   frame,
	}
	switch axis {
	case X:
		s.Width, s.Height = g.ny, g.nz
	case Y:
		s.Width, s.Height = g.nx, g.nz
	case Z:
		s.Width, s.Height = g.nx, g.ny
	}
	return s, nil
}

func extract[T volume.Sample](data []T, g geometry, axis Axis, index int) []float64 {
	plane := g.nx * g.ny
	switch axis {
	case Z:
		src := data[g.base+index*plane : g.base+(index+1)*plane]
		out := make([]float64, plane)
		for i, v := range src {
			out[i] = float64(v)
		}
		return out

	case Y:
		out := make([]float64, g.nx*g.nz)
		for z := 0; z < g.nz; z++ {
			row := data[g.base+z*plane+index*g.nx : g.base+z*plane+(index+1)*g.nx]
			dst := out[z*g.nx : (z+1)*g.nx]
			for x, v := range row {
				dst[x] = float64(v)
			}
		}
		return out

	default: // X
		out := make([]float64, g.ny*g.nz)
		for z := 0; z < g.nz; z++ {
			base := g.base + z*plane + index
			for y := 0; y < g.ny; y++ {
				out[z*g.ny+y] = float64(data[base+y*g.nx])
			}
		}
		return out
	}
}
