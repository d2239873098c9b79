// Package volume provides a read-only accessor over a decoded scalar volume.
// A Volume holds the shape, voxel spacing and scalar encoding reported by the
// decoder together with the flat sample buffer, laid out row-major with X
// varying fastest, then Y, then Z, then any further (time) axes.
package volume

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// MaxDims is the maximum number of shape entries a volume may carry.
const MaxDims = 7

var (
	// ErrOutOfRange is returned when an axis is not populated in the volume.
	ErrOutOfRange = errors.New("axis out of range")

	// ErrIndexOutOfBounds is returned when a flat sample index is past the buffer.
	ErrIndexOutOfBounds = errors.New("sample index out of bounds")

	// ErrUnsupportedScalarKind is returned for sample encodings other than
	// uint8, int16, int32, float32 and float64.
	ErrUnsupportedScalarKind = errors.New("unsupported scalar kind")

	// ErrInvalidShape is returned when a volume cannot be constructed from
	// the given shape and buffer.
	ErrInvalidShape = errors.New("invalid volume shape")
)

// Sample is the set of Go types a volume can store.
type Sample interface {
	~uint8 | ~int16 | ~int32 | ~float32 | ~float64
}

// Volume is an immutable decoded volume. It exclusively owns its sample
// buffer until Close is called.
type Volume struct {
	shape   []int
	spacing []float64
	kind    ScalarKind

	// samples is one of []uint8, []int16, []int32, []float32 or []float64
	samples any
	n       int
}

// New creates a volume over samples. The volume takes ownership of the
// slice; callers must not modify it afterwards.
func New[T Sample](shape []int, spacing []float64, samples []T) (*Volume, error) {
	var kind ScalarKind
	var buf any
	switch s := any(samples).(type) {
	case []uint8:
		kind, buf = UInt8, s
	case []int16:
		kind, buf = Int16, s
	case []int32:
		kind, buf = Int32, s
	case []float32:
		kind, buf = Float32, s
	case []float64:
		kind, buf = Float64, s
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedScalarKind, samples)
	}
	return newVolume(shape, spacing, kind, buf, len(samples))
}

// FromBytes decodes a raw sample buffer of the given kind and byte order.
// The raw buffer may be longer than needed; trailing bytes are ignored.
func FromBytes(shape []int, spacing []float64, kind ScalarKind, raw []byte, order binary.ByteOrder) (*Volume, error) {
	size := kind.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedScalarKind, kind)
	}
	n, err := product(shape)
	if err != nil {
		return nil, err
	}
	if len(raw) < n*size {
		return nil, fmt.Errorf("%w: need %d bytes for %d %v samples, have %d",
			ErrInvalidShape, n*size, n, kind, len(raw))
	}

	var buf any
	switch kind {
	case UInt8:
		s := make([]uint8, n)
		copy(s, raw)
		buf = s
	case Int16:
		s := make([]int16, n)
		for i := range s {
			s[i] = int16(order.Uint16(raw[2*i:]))
		}
		buf = s
	case Int32:
		s := make([]int32, n)
		for i := range s {
			s[i] = int32(order.Uint32(raw[4*i:]))
		}
		buf = s
	case Float32:
		s := make([]float32, n)
		for i := range s {
			s[i] = math.Float32frombits(order.Uint32(raw[4*i:]))
		}
		buf = s
	case Float64:
		s := make([]float64, n)
		for i := range s {
			s[i] = math.Float64frombits(order.Uint64(raw[8*i:]))
		}
		buf = s
	}
	return newVolume(shape, spacing, kind, buf, n)
}

func newVolume(shape []int, spacing []float64, kind ScalarKind, buf any, count int) (*Volume, error) {
	n, err := product(shape)
	if err != nil {
		return nil, err
	}
	if n != count {
		return nil, fmt.Errorf("%w: shape %v needs %d samples, buffer has %d",
			ErrInvalidShape, shape, n, count)
	}
	v := &Volume{
		shape:   append([]int(nil), shape...),
		spacing: make([]float64, len(shape)),
		kind:    kind,
		samples: buf,
		n:       n,
	}
	copy(v.spacing, spacing)
	return v, nil
}

func product(shape []int) (int, error) {
	if len(shape) == 0 || len(shape) > MaxDims {
		return 0, fmt.Errorf("%w: %d dimensions", ErrInvalidShape, len(shape))
	}
	n := 1
	for i, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: dimension %d has size %d", ErrInvalidShape, i, d)
		}
		n *= d
	}
	return n, nil
}

// DimensionCount returns the number of populated shape entries.
func (v *Volume) DimensionCount() int {
	return len(v.shape)
}

// Extent returns the number of samples along axis.
func (v *Volume) Extent(axis int) (int, error) {
	if axis < 0 || axis >= len(v.shape) {
		return 0, fmt.Errorf("%w: axis %d of %d", ErrOutOfRange, axis, len(v.shape))
	}
	return v.shape[axis], nil
}

// Spacing returns the physical step size along axis. Missing, non-positive
// or non-finite spacing is reported as 1.0.
func (v *Volume) Spacing(axis int) float64 {
	if axis < 0 || axis >= len(v.spacing) {
		return 1.0
	}
	s := v.spacing[axis]
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1.0
	}
	return s
}

// ScalarKind returns the encoding of the stored samples.
func (v *Volume) ScalarKind() ScalarKind {
	return v.kind
}

// Shape returns a copy of the volume's shape.
func (v *Volume) Shape() []int {
	return append([]int(nil), v.shape...)
}

// Spacings returns the sanitized spacing of every populated axis.
func (v *Volume) Spacings() []float64 {
	out := make([]float64, len(v.shape))
	for i := range out {
		out[i] = v.Spacing(i)
	}
	return out
}

// Frames returns the number of 3D sub-volumes, the product of every shape
// entry beyond Z. It is 1 for a 3D volume and 0 for a closed one.
func (v *Volume) Frames() int {
	if len(v.shape) == 0 {
		return 0
	}
	n := 1
	for i := 3; i < len(v.shape); i++ {
		n *= v.shape[i]
	}
	return n
}

// Len returns the total number of samples.
func (v *Volume) Len() int {
	return v.n
}

// ByteSize returns the size of the sample buffer in its native encoding.
func (v *Volume) ByteSize() int {
	return v.n * v.kind.Size()
}

// RawSample reads the sample at flatIndex as a float64.
func (v *Volume) RawSample(flatIndex int) (float64, error) {
	if flatIndex < 0 || flatIndex >= v.n {
		return 0, fmt.Errorf("%w: %d of %d", ErrIndexOutOfBounds, flatIndex, v.n)
	}
	switch s := v.samples.(type) {
	case []uint8:
		return float64(s[flatIndex]), nil
	case []int16:
		return float64(s[flatIndex]), nil
	case []int32:
		return float64(s[flatIndex]), nil
	case []float32:
		return float64(s[flatIndex]), nil
	case []float64:
		return s[flatIndex], nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnsupportedScalarKind, v.kind)
}

// Raw returns the typed backing slice: []uint8, []int16, []int32, []float32
// or []float64 depending on ScalarKind. It is nil after Close. The returned
// slice is shared with the volume and must be treated as read-only.
func (v *Volume) Raw() any {
	return v.samples
}

// Close releases the sample buffer. Afterwards the volume reports no
// dimensions and every sample read fails. Close is safe to call repeatedly.
func (v *Volume) Close() error {
	v.samples = nil
	v.shape = nil
	v.spacing = nil
	v.n = 0
	return nil
}
