// Package nifti reads and writes NIfTI-1 volumes.
//
// Supported layouts are single-file .nii (magic "n+1") and header/image pairs
// .hdr/.img (magic "ni1"), each optionally gzip-compressed. Compression is
// detected from the stream content, not the file name. Image data is returned
// unscaled; scl_slope and scl_inter are available on the Header.
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"niftiview/pkg/volume"
)

var (
	// ErrInvalidHeader is returned for streams that do not start with a
	// usable NIfTI-1 header.
	ErrInvalidHeader = errors.New("invalid NIfTI header")

	// ErrShortData is returned when the image data ends before
	// product(dim) samples have been read.
	ErrShortData = errors.New("truncated NIfTI image data")
)

var gzipMagic = []byte{0x1f, 0x8b}

// Open decodes the volume at path. For a .hdr header the image data is read
// from the sibling .img (or .img.gz) file.
func Open(path string) (*volume.Volume, *Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r, err := decompress(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	h, err := readHeader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	if h.SingleFile() {
		vol, err := readData(r, h, headerSize)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return vol, h, nil
	}

	imgPath, err := imagePath(path)
	if err != nil {
		return nil, nil, err
	}
	img, err := os.Open(imgPath)
	if err != nil {
		return nil, nil, err
	}
	defer img.Close()

	ir, err := decompress(img)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", imgPath, err)
	}
	vol, err := readData(ir, h, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", imgPath, err)
	}
	return vol, h, nil
}

// Decode reads a single-file NIfTI-1 stream, optionally gzip-compressed.
func Decode(r io.Reader) (*volume.Volume, *Header, error) {
	dr, err := decompress(r)
	if err != nil {
		return nil, nil, err
	}
	h, err := readHeader(dr)
	if err != nil {
		return nil, nil, err
	}
	if !h.SingleFile() {
		return nil, nil, fmt.Errorf("%w: header/image pair cannot be decoded from a single stream", ErrInvalidHeader)
	}
	vol, err := readData(dr, h, headerSize)
	if err != nil {
		return nil, nil, err
	}
	return vol, h, nil
}

// decompress returns a reader over r that transparently inflates gzip data.
func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil || magic[0] != gzipMagic[0] || magic[1] != gzipMagic[1] {
		return br, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return zr, nil
}

// readData skips from pos to the header's data offset and decodes the samples.
func readData(r io.Reader, h *Header, pos int64) (*volume.Volume, error) {
	kind, err := h.ScalarKind()
	if err != nil {
		return nil, err
	}
	if skip := h.dataOffset() - pos; skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, fmt.Errorf("%w: seeking to vox_offset %d: %v", ErrShortData, h.dataOffset(), err)
		}
	}

	shape := h.Shape()
	size := kind.Size()
	for _, d := range shape {
		if size > math.MaxInt/d {
			return nil, fmt.Errorf("%w: image size %v overflows", ErrInvalidHeader, shape)
		}
		size *= d
	}

	// Grow the buffer as data arrives so a truncated stream with a huge
	// header fails without allocating the full image.
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(r, int64(size))); err != nil {
		return nil, fmt.Errorf("%w: want %d bytes: %v", ErrShortData, size, err)
	}
	if buf.Len() < size {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrShortData, size, buf.Len())
	}
	return volume.FromBytes(shape, h.Spacing(), kind, buf.Bytes(), h.ByteOrder())
}

// imagePath maps a .hdr path to its .img file, preferring an uncompressed one.
func imagePath(hdrPath string) (string, error) {
	lower := strings.ToLower(hdrPath)
	var stem string
	switch {
	case strings.HasSuffix(lower, ".hdr.gz"):
		stem = hdrPath[:len(hdrPath)-len(".hdr.gz")]
	case strings.HasSuffix(lower, ".hdr"):
		stem = hdrPath[:len(hdrPath)-len(".hdr")]
	default:
		return "", fmt.Errorf("%w: %s has a pair header but is not a .hdr file", ErrInvalidHeader, hdrPath)
	}
	for _, ext := range []string{".img", ".img.gz"} {
		if _, err := os.Stat(stem + ext); err == nil {
			return stem + ext, nil
		}
	}
	return "", fmt.Errorf("no image file found for %s", hdrPath)
}

// Encode writes vol as a little-endian single-file NIfTI-1 stream.
func Encode(w io.Writer, vol *volume.Volume, descrip string) error {
	h, err := newHeader(vol, descrip)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, &h.RawHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	// empty extension flag
	if _, err := w.Write([]byte{0, 0, 0, 0}); err != nil {
		return fmt.Errorf("writing extension flag: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, vol.Raw()); err != nil {
		return fmt.Errorf("writing image data: %w", err)
	}
	return nil
}

// WriteFile writes vol to path, gzip-compressed if path ends in .gz.
func WriteFile(path string, vol *volume.Volume, descrip string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		if err := Encode(bw, vol, descrip); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		return f.Close()
	}

	zw := gzip.NewWriter(bw)
	if err := Encode(zw, vol, descrip); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
