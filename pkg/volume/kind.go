package volume

// ScalarKind identifies the fixed-width encoding of stored samples.
type ScalarKind int

const (
	Unknown ScalarKind = iota
	UInt8
	Int16
	Int32
	Float32
	Float64
)

var kindNames = map[ScalarKind]string{
	UInt8:   "uint8",
	Int16:   "int16",
	Int32:   "int32",
	Float32: "float32",
	Float64: "float64",
}

var kindSizes = map[ScalarKind]int{
	UInt8:   1,
	Int16:   2,
	Int32:   4,
	Float32: 4,
	Float64: 8,
}

// String returns the human-readable name, or "unknown".
func (k ScalarKind) String() string {
	if name, found := kindNames[k]; found {
		return name
	}
	return "unknown"
}

// Size returns the number of bytes per sample, or 0 for unsupported kinds.
func (k ScalarKind) Size() int {
	return kindSizes[k]
}

// Supported reports whether samples of this kind can be stored and sliced.
func (k ScalarKind) Supported() bool {
	return k.Size() != 0
}
