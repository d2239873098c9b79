package models

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Slice represents a 2D cross-section extracted from a volume, with every
// sample converted to float64 regardless of the source scalar encoding.
type Slice struct {
	// Samples holds Width*Height values in row-major order
	Samples []float64

	// Width is the number of samples per row
	Width int

	// Height is the number of rows
	Height int

	// Axis is the spatial axis (0=X, 1=Y, 2=Z) held fixed for this slice
	Axis int

	// Index is the position of this slice along Axis
	Index int

	// Frame is the time/volume index the slice was taken from
	Frame int
}

// Len returns the number of samples in the slice.
func (s *Slice) Len() int {
	return len(s.Samples)
}

// At returns the sample at column x and row y.
func (s *Slice) At(x, y int) float64 {
	return s.Samples[y*s.Width+x]
}

// Matrix returns a Height x Width dense matrix view sharing the slice's
// samples. Callers must not modify it.
func (s *Slice) Matrix() *mat.Dense {
	return mat.NewDense(s.Height, s.Width, s.Samples)
}

// MeanStdDev returns the mean and unbiased standard deviation of the samples.
func (s *Slice) MeanStdDev() (mean, std float64) {
	return stat.MeanStdDev(s.Samples, nil)
}

// DisplayBuffer is a normalized 8-bit grayscale slice ready for rasterization
type DisplayBuffer struct {
	// Pix holds Width*Height intensities in row-major order
	Pix []byte

	// Width is the number of pixels per row
	Width int

	// Height is the number of rows
	Height int
}

// Len returns the number of pixels in the buffer.
func (b *DisplayBuffer) Len() int {
	return len(b.Pix)
}
