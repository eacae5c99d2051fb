package tilesource

import (
	"errors"
	"fmt"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rok4/tileserver/internal/catalog"
)

// TileReadError wraps a slab I/O failure (spec §4.3, §7: "TileReadError:
// Slab I/O failure, tile-local, promoted to nodata tile").
type TileReadError struct {
	Path string
	Err  error
}

func (e *TileReadError) Error() string {
	return fmt.Sprintf("tilesource: read %s: %v", e.Path, e.Err)
}
func (e *TileReadError) Unwrap() error { return e.Err }

// ErrTileMissing is returned when a slab exists but has no entry for the
// requested tile, or the slab file itself is absent — both resolve to
// nodata, never an error response (spec §4.3 "Absent slab file ⇒ nodata").
var ErrTileMissing = errors.New("tilesource: tile missing")

type openSlab struct {
	mu     sync.Mutex
	file   *os.File
	header SlabHeader
}

// DiskStore reads encoded tile bytes from per-level slab files, following
// spec §4.3/§6.3. Grounded on the teacher's DiskTileStore
// (internal/tile/diskstore.go): a read-only file handle per backing file,
// accessed via ReadAt with no locking on the hot read path, plus a small
// LRU of open handles since a pyramid's levels accumulate many slab files
// over its lifetime and the teacher never reuses descriptors beyond a
// single run.
type DiskStore struct {
	handles *lru.Cache[string, *openSlab]
}

// NewDiskStore builds a DiskStore caching up to maxOpenFiles slab file
// handles at once.
func NewDiskStore(maxOpenFiles int) (*DiskStore, error) {
	if maxOpenFiles < 1 {
		maxOpenFiles = 256
	}
	cache, err := lru.NewWithEvict[string, *openSlab](maxOpenFiles, func(_ string, v *openSlab) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.file.Close()
	})
	if err != nil {
		return nil, err
	}
	return &DiskStore{handles: cache}, nil
}

// ReadTile resolves (col, row) in the given level's storage to encoded
// bytes. A missing slab file or a missing header entry both return
// ErrTileMissing (caller substitutes the level's cached nodata tile); any
// other I/O failure returns *TileReadError.
func (d *DiskStore) ReadTile(storage catalog.StorageDescriptor, col, row int) ([]byte, error) {
	loc := LocateSlab(storage, col, row)
	path := radixPath(storage, loc.SlabCol, loc.SlabRow)

	slab, err := d.open(path, storage)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrTileMissing
	}
	if err != nil {
		return nil, &TileReadError{Path: path, Err: err}
	}

	slab.mu.Lock()
	offset, size, present := slab.header.EntryAt(loc.Index)
	slab.mu.Unlock()
	if !present {
		return nil, ErrTileMissing
	}

	buf := make([]byte, size)
	if _, err := slab.file.ReadAt(buf, int64(offset)); err != nil {
		return nil, &TileReadError{Path: path, Err: err}
	}
	return buf, nil
}

func (d *DiskStore) open(path string, storage catalog.StorageDescriptor) (*openSlab, error) {
	if s, ok := d.handles.Get(path); ok {
		return s, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	hdr := make([]byte, headerSize(storage))
	if _, err := f.ReadAt(hdr, 0); err != nil {
		f.Close()
		return nil, err
	}
	header, err := ParseSlabHeader(storage, hdr)
	if err != nil {
		f.Close()
		return nil, err
	}
	s := &openSlab{file: f, header: header}
	d.handles.Add(path, s)
	return s, nil
}

// Close releases all cached file handles.
func (d *DiskStore) Close() {
	d.handles.Purge()
}
