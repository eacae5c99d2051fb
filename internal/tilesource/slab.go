// Package tilesource resolves a (level, col, row) tile address to encoded
// bytes: from a physical slab file on disk, or from a remote on-demand
// source. Grounded on the teacher's internal/pmtiles directory (an
// offset/length table serving the same purpose for a Hilbert-ordered
// single archive) and internal/tile/diskstore.go (lock-free ReadAt access
// to a backing file), adapted from PMTiles' one-big-archive model to the
// spec's one-file-per-slab layout (§4.3, §6.3).
package tilesource

import (
	"fmt"

	"github.com/rok4/tileserver/internal/catalog"
)

// SlabCoord identifies the slab a tile belongs to, plus its position
// within that slab (spec §4.3: "slab coordinates are (floor(c/sw),
// floor(r/sh)), and the within-slab index is (c mod sw) + (r mod sh)*sw").
type SlabCoord struct {
	SlabCol, SlabRow int
	Index            int
}

// LocateSlab computes the slab a tile (col, row) lives in, given the
// level's storage layout.
func LocateSlab(storage catalog.StorageDescriptor, col, row int) SlabCoord {
	sw, sh := storage.SlabW, storage.SlabH
	slabCol := floorDiv(col, sw)
	slabRow := floorDiv(row, sh)
	withinCol := col - slabCol*sw
	withinRow := row - slabRow*sh
	return SlabCoord{SlabCol: slabCol, SlabRow: slabRow, Index: withinRow*sw + withinCol}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// headerEntryCount returns the number of (offset, size) pairs a slab's
// header holds: sw*sh tiles, one pair each (spec §6.3).
func headerEntryCount(storage catalog.StorageDescriptor) int {
	return storage.SlabW * storage.SlabH
}

// headerSize returns the byte length of a slab's leading offset/size
// table: 2 uint32 values per tile slot (spec §6.3 "2*sw*sh 32-bit
// big-endian integers").
func headerSize(storage catalog.StorageDescriptor) int64 {
	return int64(headerEntryCount(storage)) * 8
}

// SlabHeader is the parsed offset/size table at the head of a slab file.
type SlabHeader struct {
	Offsets []uint32
	Sizes   []uint32
}

// EntryAt returns the offset and size recorded for within-slab index idx.
// A zero size (with zero offset) means the tile is absent from this slab
// (spec §4.3 "Absent offset/size ⇒ the tile is missing in this slab").
func (h SlabHeader) EntryAt(idx int) (offset, size uint32, present bool) {
	if idx < 0 || idx >= len(h.Offsets) {
		return 0, 0, false
	}
	offset, size = h.Offsets[idx], h.Sizes[idx]
	return offset, size, size > 0
}

// ParseSlabHeader reads the fixed-size offset/size table from the front of
// a slab file's bytes (spec §6.3: offsets array followed by sizes array,
// both sw*sh long, big-endian uint32).
func ParseSlabHeader(storage catalog.StorageDescriptor, raw []byte) (SlabHeader, error) {
	n := headerEntryCount(storage)
	want := int(headerSize(storage))
	if len(raw) < want {
		return SlabHeader{}, fmt.Errorf("tilesource: slab header truncated: got %d bytes, want %d", len(raw), want)
	}
	h := SlabHeader{Offsets: make([]uint32, n), Sizes: make([]uint32, n)}
	for i := 0; i < n; i++ {
		h.Offsets[i] = beUint32(raw[i*4:])
	}
	base := n * 4
	for i := 0; i < n; i++ {
		h.Sizes[i] = beUint32(raw[base+i*4:])
	}
	return h, nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// radixPath builds the slab's on-disk path from its slab coordinates using
// a base-36-like alphabet split into storage.PathDepth subdirectory levels
// (spec §6.3 "slab files named by the tile's slab coordinates formatted in
// a base-36-like alphabet, split into configurable-depth subdirectories").
// Grounded on the teacher's own radix path builder for tile caches
// (internal/cog reader paths), generalized to a configurable depth.
func radixPath(storage catalog.StorageDescriptor, slabCol, slabRow int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	key := uint64(slabRow)<<32 | uint64(uint32(slabCol))
	depth := storage.PathDepth
	if depth < 1 {
		depth = 1
	}
	digits := make([]byte, depth+1)
	for i := len(digits) - 1; i >= 0; i-- {
		digits[i] = alphabet[key%uint64(len(alphabet))]
		key /= uint64(len(alphabet))
	}
	path := storage.BasePath
	for i := 0; i < depth; i++ {
		path += "/" + string(digits[i])
	}
	path += "/" + string(digits[depth]) + ".slab"
	return path
}
