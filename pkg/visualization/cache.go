package visualization

import (
	"encoding/binary"
	"fmt"

	"github.com/coocood/freecache"

	"niftiview/internal/models"
	"niftiview/pkg/logging"
	"niftiview/pkg/slicer"
)

// sliceCache keeps normalized display buffers keyed by axis, index and frame.
// A nil cache never hits.
type sliceCache struct {
	c *freecache.Cache
}

// cacheOverhead is the freecache entry header plus the width/height prefix
// and a generous key allowance.
const cacheOverhead = 24 + 8 + 32

// cacheEntryLimit returns the largest plane, in pixels, that a cache of size
// bytes will store. freecache rejects entries over 1/1024 of its capacity.
func cacheEntryLimit(size int) int {
	return max(0, size/1024-cacheOverhead)
}

func newSliceCache(size int) *sliceCache {
	if size <= 0 {
		return nil
	}
	return &sliceCache{c: freecache.NewCache(size)}
}

func cacheKey(axis slicer.Axis, index, frame int) []byte {
	return []byte(fmt.Sprintf("%s/%d/%d", axis, index, frame))
}

func (sc *sliceCache) get(axis slicer.Axis, index, frame int) (*models.DisplayBuffer, bool) {
	if sc == nil {
		return nil, false
	}
	value, err := sc.c.Get(cacheKey(axis, index, frame))
	if err != nil || len(value) < 8 {
		return nil, false
	}
	buf := &models.DisplayBuffer{
		Width:  int(binary.LittleEndian.Uint32(value)),
		Height: int(binary.LittleEndian.Uint32(value[4:])),
		Pix:    value[8:],
	}
	if buf.Width*buf.Height != len(buf.Pix) {
		return nil, false
	}
	return buf, true
}

func (sc *sliceCache) put(axis slicer.Axis, index, frame int, buf *models.DisplayBuffer) {
	if sc == nil {
		return
	}
	value := make([]byte, 8+len(buf.Pix))
	binary.LittleEndian.PutUint32(value, uint32(buf.Width))
	binary.LittleEndian.PutUint32(value[4:], uint32(buf.Height))
	copy(value[8:], buf.Pix)
	if err := sc.c.Set(cacheKey(axis, index, frame), value, 0); err != nil {
		logging.Debugf("Not caching %s slice %d: %v", axis.Plane(), index, err)
	}
}

// hits returns the number of cache hits so far.
func (sc *sliceCache) hits() int64 {
	if sc == nil {
		return 0
	}
	return sc.c.HitCount()
}
