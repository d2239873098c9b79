package nifti

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"niftiview/pkg/slicer"
	"niftiview/pkg/volume"
)

func testVolumes(t *testing.T) []*volume.Volume {
	shape := []int{3, 2, 2}
	spacing := []float64{0.5, 0.75, 2}
	n := 12

	u8 := make([]uint8, n)
	i16 := make([]int16, n)
	i32 := make([]int32, n)
	f32 := make([]float32, n)
	f64 := make([]float64, n)
	for i := 0; i < n; i++ {
		u8[i] = uint8(i + 200)
		i16[i] = int16(i*1000 - 5000)
		i32[i] = int32(i * -70000)
		f32[i] = float32(i) / 4
		f64[i] = float64(i) * 1e-3
	}

	var vols []*volume.Volume
	add := func(v *volume.Volume, err error) {
		require.NoError(t, err)
		vols = append(vols, v)
	}
	add(volume.New(shape, spacing, u8))
	add(volume.New(shape, spacing, i16))
	add(volume.New(shape, spacing, i32))
	add(volume.New(shape, spacing, f32))
	add(volume.New(shape, spacing, f64))
	return vols
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, vol := range testVolumes(t) {
		t.Run(vol.ScalarKind().String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, vol, "round trip"))
			assert.Equal(t, singleFileOffset+vol.ByteSize(), buf.Len())

			got, h, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, vol.ScalarKind(), got.ScalarKind())
			assert.Equal(t, vol.Shape(), got.Shape())
			assert.Equal(t, vol.Spacings(), got.Spacings())
			assert.Equal(t, vol.Raw(), got.Raw())
			assert.Equal(t, "round trip", h.Description())
			assert.True(t, h.SingleFile())
			assert.Equal(t, binary.LittleEndian, h.ByteOrder())
		})
	}
}

func TestWriteFileAndOpenGzip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}
	dir := t.TempDir()

	for _, vol := range testVolumes(t) {
		for _, name := range []string{"vol.nii", "vol.nii.gz"} {
			path := filepath.Join(dir, vol.ScalarKind().String()+"-"+name)
			require.NoError(t, WriteFile(path, vol, ""))

			got, _, err := Open(path)
			require.NoError(t, err, path)
			assert.Equal(t, vol.Raw(), got.Raw(), path)
		}
	}

	// gzip is detected from content, not the extension
	vol := testVolumes(t)[1]
	var zbuf bytes.Buffer
	zw := gzip.NewWriter(&zbuf)
	require.NoError(t, Encode(zw, vol, ""))
	require.NoError(t, zw.Close())
	path := filepath.Join(dir, "compressed.nii")
	require.NoError(t, os.WriteFile(path, zbuf.Bytes(), 0644))

	got, _, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, vol.Raw(), got.Raw())
}

// encodeBigEndian writes a big-endian stream with the given magic, returning
// the header bytes and image bytes separately.
func encodeBigEndian(t *testing.T, vol *volume.Volume, magic [4]byte) ([]byte, []byte) {
	h, err := newHeader(vol, "")
	require.NoError(t, err)
	h.Magic = magic
	if magic == magicPair {
		h.VoxOffset = 0
	}

	var hdr bytes.Buffer
	require.NoError(t, binary.Write(&hdr, binary.BigEndian, &h.RawHeader))
	var img bytes.Buffer
	require.NoError(t, binary.Write(&img, binary.BigEndian, vol.Raw()))
	return hdr.Bytes(), img.Bytes()
}

func TestDecodeBigEndian(t *testing.T) {
	vol := testVolumes(t)[1]
	hdr, img := encodeBigEndian(t, vol, magicSingle)

	stream := append(append(hdr, 0, 0, 0, 0), img...)
	got, h, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, h.ByteOrder())
	assert.Equal(t, vol.Raw(), got.Raw())
}

func TestOpenPair(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}
	dir := t.TempDir()
	vol := testVolumes(t)[3]
	hdr, img := encodeBigEndian(t, vol, magicPair)

	hdrPath := filepath.Join(dir, "brain.hdr")
	require.NoError(t, os.WriteFile(hdrPath, hdr, 0644))

	_, _, err := Open(hdrPath)
	assert.Error(t, err, "missing image file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "brain.img"), img, 0644))
	got, h, err := Open(hdrPath)
	require.NoError(t, err)
	assert.False(t, h.SingleFile())
	assert.Equal(t, vol.Raw(), got.Raw())

	_, _, err = Decode(bytes.NewReader(hdr))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDecodeErrors(t *testing.T) {
	vol := testVolumes(t)[0]
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, vol, ""))
	good := buf.Bytes()

	_, _, err := Decode(bytes.NewReader(good[:100]))
	assert.ErrorIs(t, err, ErrInvalidHeader, "short header")

	_, _, err = Decode(bytes.NewReader(good[:len(good)-1]))
	assert.ErrorIs(t, err, ErrShortData)

	bad := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(bad, 999)
	_, _, err = Decode(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrInvalidHeader, "bad sizeof_hdr")

	bad = append([]byte(nil), good...)
	copy(bad[344:], "xyz\x00")
	_, _, err = Decode(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrInvalidHeader, "bad magic")

	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(bad[42:], 0) // dim[1]
	_, _, err = Decode(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrInvalidHeader, "zero dimension")

	bad = append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(bad[70:], 128) // DT_RGB24
	_, _, err = Decode(bytes.NewReader(bad))
	assert.ErrorIs(t, err, volume.ErrUnsupportedScalarKind)

	// 7-D float64 with every dim at the int16 maximum overflows the image size
	huge := append([]byte(nil), good[:singleFileOffset]...)
	binary.LittleEndian.PutUint16(huge[40:], 7)
	for i := 1; i <= 7; i++ {
		binary.LittleEndian.PutUint16(huge[40+2*i:], 32767)
	}
	binary.LittleEndian.PutUint16(huge[70:], DTFloat64)
	huge = append(huge, 1, 2, 3)
	_, _, err = Decode(bytes.NewReader(huge))
	assert.ErrorIs(t, err, ErrInvalidHeader, "overflowing dims")

	// a large but representable image with truncated data
	huge = huge[:singleFileOffset]
	binary.LittleEndian.PutUint16(huge[40:], 3)
	huge = append(huge, 1, 2, 3)
	_, _, err = Decode(bytes.NewReader(huge))
	assert.ErrorIs(t, err, ErrShortData, "truncated large image")
}

func TestDecodedVolumeSlices(t *testing.T) {
	vol := testVolumes(t)[1]
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, vol, ""))

	got, _, err := Decode(&buf)
	require.NoError(t, err)
	defer got.Close()

	want, err := slicer.ExtractSlice(vol, slicer.Y, 1)
	require.NoError(t, err)
	s, err := slicer.ExtractSlice(got, slicer.Y, 1)
	require.NoError(t, err)
	assert.Equal(t, want.Samples, s.Samples)
}
