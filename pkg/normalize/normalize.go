// Package normalize maps float slices into 8-bit display intensities using the
// full observed range of each slice.
package normalize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"niftiview/internal/models"
)

// ErrDegenerateRange is returned when a slice has no finite samples or its
// finite samples are all equal.
var ErrDegenerateRange = errors.New("degenerate intensity range")

// Range returns the minimum and maximum finite sample of the slice. ok is
// false if the slice has no finite samples.
func Range(slice *models.Slice) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range slice.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		ok = true
	}
	return min, max, ok
}

// Normalize maps every sample s to round(255*(s-min)/(max-min)), where min
// and max are the slice's finite extremes. NaN and -Inf map to 0, +Inf to 255.
func Normalize(slice *models.Slice) (*models.DisplayBuffer, error) {
	min, max, ok := Range(slice)
	if !ok || max <= min {
		return nil, fmt.Errorf("%w: %d samples, min %v, max %v", ErrDegenerateRange, slice.Len(), min, max)
	}

	scaled := make([]float64, len(slice.Samples))
	copy(scaled, slice.Samples)
	span := max - min
	wide := math.IsInf(255*span, 0)
	if wide {
		// s-min or 255*(s-min) would overflow; work on halved samples and
		// divide before scaling.
		floats.Scale(0.5, scaled)
		floats.AddConst(-min/2, scaled)
		span = max/2 - min/2
	} else {
		floats.AddConst(-min, scaled)
		floats.Scale(255, scaled)
	}

	pix := make([]byte, len(scaled))
	for i, v := range scaled {
		if wide {
			v = v / span * 255
		} else {
			v /= span
		}
		pix[i] = quantize(v)
	}
	return &models.DisplayBuffer{
		Pix:    pix,
		Width:  slice.Width,
		Height: slice.Height,
	}, nil
}

func quantize(v float64) byte {
	switch {
	case math.IsNaN(v):
		return 0
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return byte(math.Round(v))
}
