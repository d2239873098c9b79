package normalize

import (
	"errors"
	"math"
	"testing"

	"niftiview/internal/models"
)

func newSlice(width, height int, samples ...float64) *models.Slice {
	return &models.Slice{Samples: samples, Width: width, Height: height}
}

// TestNormalizeKnownRange verifies the linear mapping for min=2, max=10
func TestNormalizeKnownRange(t *testing.T) {
	buf, err := Normalize(newSlice(3, 1, 2, 6, 10))
	if err != nil {
		t.Fatalf("Failed to normalize: %v", err)
	}

	expected := []byte{0, 128, 255}
	for i, want := range expected {
		if buf.Pix[i] != want {
			t.Errorf("Pixel %d: expected %d, got %d", i, want, buf.Pix[i])
		}
	}
	if buf.Width != 3 || buf.Height != 1 {
		t.Errorf("Expected 3x1 buffer, got %dx%d", buf.Width, buf.Height)
	}
}

// TestNormalizeShape verifies output length and range over a varied slice
func TestNormalizeShape(t *testing.T) {
	width, height := 7, 5
	samples := make([]float64, width*height)
	for i := range samples {
		samples[i] = math.Sin(float64(i)) * 1000
	}

	buf, err := Normalize(newSlice(width, height, samples...))
	if err != nil {
		t.Fatalf("Failed to normalize: %v", err)
	}
	if buf.Len() != len(samples) {
		t.Fatalf("Expected %d pixels, got %d", len(samples), buf.Len())
	}

	var sawMin, sawMax bool
	for _, p := range buf.Pix {
		sawMin = sawMin || p == 0
		sawMax = sawMax || p == 255
	}
	if !sawMin || !sawMax {
		t.Errorf("Expected full 0..255 range to be used, min seen %v max seen %v", sawMin, sawMax)
	}
}

// TestNormalizeDegenerate verifies constant, empty and all-NaN slices fail
func TestNormalizeDegenerate(t *testing.T) {
	cases := map[string]*models.Slice{
		"constant": newSlice(2, 2, 5, 5, 5, 5),
		"empty":    newSlice(0, 0),
		"all NaN":  newSlice(2, 1, math.NaN(), math.NaN()),
		"inf only": newSlice(2, 1, math.Inf(1), math.Inf(-1)),
	}
	for name, s := range cases {
		if _, err := Normalize(s); !errors.Is(err, ErrDegenerateRange) {
			t.Errorf("%s: expected ErrDegenerateRange, got %v", name, err)
		}
	}
}

// TestNormalizeNonFinite verifies non-finite samples do not poison the range
func TestNormalizeNonFinite(t *testing.T) {
	buf, err := Normalize(newSlice(5, 1, 0, math.NaN(), 100, math.Inf(1), math.Inf(-1)))
	if err != nil {
		t.Fatalf("Failed to normalize: %v", err)
	}

	expected := []byte{0, 0, 255, 255, 0}
	for i, want := range expected {
		if buf.Pix[i] != want {
			t.Errorf("Pixel %d: expected %d, got %d", i, want, buf.Pix[i])
		}
	}
}

func TestRange(t *testing.T) {
	min, max, ok := Range(newSlice(4, 1, -3, 8, math.NaN(), 1))
	if !ok || min != -3 || max != 8 {
		t.Errorf("Expected range [-3,8], got [%v,%v] ok=%v", min, max, ok)
	}

	if _, _, ok := Range(newSlice(0, 0)); ok {
		t.Error("Expected empty slice to have no range")
	}
}

// TestNormalizeDoesNotMutate verifies the input slice is left untouched
func TestNormalizeDoesNotMutate(t *testing.T) {
	s := newSlice(2, 1, 1, 3)
	if _, err := Normalize(s); err != nil {
		t.Fatal(err)
	}
	if s.Samples[0] != 1 || s.Samples[1] != 3 {
		t.Errorf("Input slice modified: %v", s.Samples)
	}
}

// TestNormalizeHalfwayRounding verifies exact half-way values round up for
// spans that are not powers of two
func TestNormalizeHalfwayRounding(t *testing.T) {
	cases := []struct {
		min, max, s float64
		want        byte
	}{
		{-841, 513, -164, 128},
		{-13, 407, 309, 196},
		{-193, 1687, 1499, 230},
	}
	for _, c := range cases {
		buf, err := Normalize(newSlice(3, 1, c.min, c.s, c.max))
		if err != nil {
			t.Fatalf("Failed to normalize %v..%v: %v", c.min, c.max, err)
		}
		if buf.Pix[1] != c.want {
			t.Errorf("min=%v max=%v s=%v: expected %d, got %d", c.min, c.max, c.s, c.want, buf.Pix[1])
		}
	}

	// exhaustive check over a small integer range
	for span := 1; span <= 600; span++ {
		samples := make([]float64, span+1)
		for i := range samples {
			samples[i] = float64(i - 37)
		}
		buf, err := Normalize(newSlice(len(samples), 1, samples...))
		if err != nil {
			t.Fatal(err)
		}
		for i, p := range buf.Pix {
			want := byte(math.Round(255 * float64(i) / float64(span)))
			if p != want {
				t.Fatalf("span %d sample %d: expected %d, got %d", span, i, want, p)
			}
		}
	}
}

// TestNormalizeWideRange verifies ranges whose width overflows float64
func TestNormalizeWideRange(t *testing.T) {
	buf, err := Normalize(newSlice(3, 1, -1e308, 0, 1e308))
	if err != nil {
		t.Fatalf("Failed to normalize: %v", err)
	}
	expected := []byte{0, 128, 255}
	for i, want := range expected {
		if buf.Pix[i] != want {
			t.Errorf("Pixel %d: expected %d, got %d", i, want, buf.Pix[i])
		}
	}

	buf, err = Normalize(newSlice(2, 1, -math.MaxFloat64, math.MaxFloat64))
	if err != nil {
		t.Fatalf("Failed to normalize: %v", err)
	}
	if buf.Pix[0] != 0 || buf.Pix[1] != 255 {
		t.Errorf("Expected [0 255], got %v", buf.Pix)
	}
}
