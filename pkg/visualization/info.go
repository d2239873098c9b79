package visualization

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"niftiview/pkg/volume"
)

// InfoText returns the plain-text summary shown in the info quadrant.
func InfoText(vol *volume.Volume) string {
	shape := vol.Shape()
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}

	spacing := make([]string, len(shape))
	for i := range shape {
		spacing[i] = fmt.Sprintf("%.3f", vol.Spacing(i))
	}

	volumes := 1
	if len(shape) > 3 {
		volumes = shape[3]
	}

	var b strings.Builder
	b.WriteString("NIfTI Image Info\n\n")
	fmt.Fprintf(&b, "Dimensions: %s\n", strings.Join(dims, "×"))
	fmt.Fprintf(&b, "Spacing: %s\n", strings.Join(spacing, ", "))
	fmt.Fprintf(&b, "Volumes: %d\n", volumes)
	fmt.Fprintf(&b, "Data type: %s\n", vol.ScalarKind())
	fmt.Fprintf(&b, "Size: %s\n", humanize.Bytes(uint64(vol.ByteSize())))
	return b.String()
}
