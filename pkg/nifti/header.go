package nifti

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"niftiview/pkg/volume"
)

const (
	headerSize = 348

	// singleFileOffset is the minimum data offset of a .nii file: the header
	// plus the 4-byte extension flag.
	singleFileOffset = 352
)

// NIfTI-1 datatype codes for the supported scalar kinds.
const (
	DTUint8   = 2
	DTInt16   = 4
	DTInt32   = 8
	DTFloat32 = 16
	DTFloat64 = 64
)

var (
	magicSingle = [4]byte{'n', '+', '1', 0}
	magicPair   = [4]byte{'n', 'i', '1', 0}
)

var datatypeKinds = map[int16]volume.ScalarKind{
	DTUint8:   volume.UInt8,
	DTInt16:   volume.Int16,
	DTInt32:   volume.Int32,
	DTFloat32: volume.Float32,
	DTFloat64: volume.Float64,
}

// Header is a decoded NIfTI-1 header together with the byte order it was
// stored in.
type Header struct {
	RawHeader

	order binary.ByteOrder
}

// RawHeader is the 348-byte NIfTI-1 header. Field order and sizes follow
// the on-disk layout so it can be read and written with encoding/binary.
type RawHeader struct {
	SizeofHdr    int32
	_            [10]byte // data_type
	_            [18]byte // db_name
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte
	Dim          [8]int16
	IntentP1     float32
	IntentP2     float32
	IntentP3     float32
	IntentCode   int16
	Datatype     int16
	Bitpix       int16
	SliceStart   int16
	Pixdim       [8]float32
	VoxOffset    float32
	SclSlope     float32
	SclInter     float32
	SliceEnd     int16
	SliceCode    byte
	XYZTUnits    byte
	CalMax       float32
	CalMin       float32
	SliceDur     float32
	TOffset      float32
	GLMax        int32
	GLMin        int32
	Descrip      [80]byte
	AuxFile      [24]byte
	QformCode    int16
	SformCode    int16
	QuaternB     float32
	QuaternC     float32
	QuaternD     float32
	QOffsetX     float32
	QOffsetY     float32
	QOffsetZ     float32
	SrowX        [4]float32
	SrowY        [4]float32
	SrowZ        [4]float32
	IntentName   [16]byte
	Magic        [4]byte
}

// readHeader reads and validates a header, detecting the byte order from
// sizeof_hdr.
func readHeader(r io.Reader) (*Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidHeader, err)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw[:4]) == headerSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw[:4]) == headerSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: sizeof_hdr is not %d", ErrInvalidHeader, headerSize)
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(raw[:]), order, &h.RawHeader); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	h.order = order

	if h.Magic != magicSingle && h.Magic != magicPair {
		return nil, fmt.Errorf("%w: unrecognized magic %q", ErrInvalidHeader, h.Magic[:3])
	}
	if h.Dim[0] < 1 || h.Dim[0] > volume.MaxDims {
		return nil, fmt.Errorf("%w: dim[0] = %d", ErrInvalidHeader, h.Dim[0])
	}
	for i := 1; i <= int(h.Dim[0]); i++ {
		if h.Dim[i] <= 0 {
			return nil, fmt.Errorf("%w: dim[%d] = %d", ErrInvalidHeader, i, h.Dim[i])
		}
	}
	return h, nil
}

// SingleFile reports whether image data follows the header in the same file.
func (h *Header) SingleFile() bool {
	return h.Magic == magicSingle
}

// ByteOrder returns the byte order of the header and image data.
func (h *Header) ByteOrder() binary.ByteOrder {
	if h.order == nil {
		return binary.LittleEndian
	}
	return h.order
}

// Shape returns the populated entries of dim[1..dim[0]].
func (h *Header) Shape() []int {
	n := int(h.Dim[0])
	shape := make([]int, n)
	for i := range shape {
		shape[i] = int(h.Dim[i+1])
	}
	return shape
}

// Spacing returns pixdim[1..dim[0]].
func (h *Header) Spacing() []float64 {
	n := int(h.Dim[0])
	spacing := make([]float64, n)
	for i := range spacing {
		spacing[i] = float64(h.Pixdim[i+1])
	}
	return spacing
}

// ScalarKind maps the header datatype to a volume scalar kind.
func (h *Header) ScalarKind() (volume.ScalarKind, error) {
	kind, found := datatypeKinds[h.Datatype]
	if !found {
		return volume.Unknown, fmt.Errorf("%w: NIfTI datatype %d", volume.ErrUnsupportedScalarKind, h.Datatype)
	}
	return kind, nil
}

// Description returns the descrip field with trailing NULs removed.
func (h *Header) Description() string {
	return string(bytes.TrimRight(h.Descrip[:], "\x00"))
}

// dataOffset returns the byte offset of the image data in its file.
func (h *Header) dataOffset() int64 {
	off := int64(h.VoxOffset)
	if h.SingleFile() && off < singleFileOffset {
		off = singleFileOffset
	}
	if off < 0 {
		off = 0
	}
	return off
}

// newHeader builds a single-file little-endian header describing vol.
func newHeader(vol *volume.Volume, descrip string) (*Header, error) {
	var code int16
	for c, k := range datatypeKinds {
		if k == vol.ScalarKind() {
			code = c
		}
	}
	if code == 0 {
		return nil, fmt.Errorf("%w: %v", volume.ErrUnsupportedScalarKind, vol.ScalarKind())
	}

	h := &Header{
		RawHeader: RawHeader{
			SizeofHdr: headerSize,
			Regular:   'r',
			Datatype:  code,
			Bitpix:    int16(8 * vol.ScalarKind().Size()),
			VoxOffset: singleFileOffset,
			SclSlope:  1,
			Magic:     magicSingle,
		},
		order: binary.LittleEndian,
	}
	shape := vol.Shape()
	h.Dim[0] = int16(len(shape))
	h.Pixdim[0] = 1
	for i, d := range shape {
		if d > 32767 {
			return nil, fmt.Errorf("%w: dimension %d size %d exceeds int16", ErrInvalidHeader, i, d)
		}
		h.Dim[i+1] = int16(d)
		h.Pixdim[i+1] = float32(vol.Spacing(i))
	}
	copy(h.Descrip[:len(h.Descrip)-1], descrip)
	return h, nil
}
