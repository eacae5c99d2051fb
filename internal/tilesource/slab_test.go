package tilesource

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/rok4/tileserver/internal/catalog"
)

func testStorage(base string) catalog.StorageDescriptor {
	return catalog.StorageDescriptor{BasePath: base, SlabW: 16, SlabH: 16, PathDepth: 2}
}

func TestLocateSlab(t *testing.T) {
	storage := testStorage("/data")
	loc := LocateSlab(storage, 511, 341)
	if loc.SlabCol != 31 || loc.SlabRow != 21 {
		t.Fatalf("slab coord = (%d,%d), want (31,21)", loc.SlabCol, loc.SlabRow)
	}
	wantIdx := (511 % 16) + (341%16)*16
	if loc.Index != wantIdx {
		t.Fatalf("within-slab index = %d, want %d", loc.Index, wantIdx)
	}
}

func writeSlabFile(t *testing.T, path string, storage catalog.StorageDescriptor, tiles map[int][]byte) {
	t.Helper()
	n := headerEntryCount(storage)
	offsets := make([]uint32, n)
	sizes := make([]uint32, n)

	var body []byte
	cursor := uint32(headerSize(storage))
	for i := 0; i < n; i++ {
		data, ok := tiles[i]
		if !ok {
			continue
		}
		offsets[i] = cursor
		sizes[i] = uint32(len(data))
		body = append(body, data...)
		cursor += uint32(len(data))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	for _, v := range offsets {
		binary.Write(f, binary.BigEndian, v)
	}
	for _, v := range sizes {
		binary.Write(f, binary.BigEndian, v)
	}
	f.Write(body)
}

func TestDiskStoreReadTileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage := testStorage(dir)
	loc := LocateSlab(storage, 3, 5)
	path := radixPath(storage, loc.SlabCol, loc.SlabRow)

	payload := []byte("fake-jpeg-bytes")
	writeSlabFile(t, path, storage, map[int][]byte{loc.Index: payload})

	ds, err := NewDiskStore(8)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	defer ds.Close()

	got, err := ds.ReadTile(storage, 3, 5)
	if err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("ReadTile = %q, want %q", got, payload)
	}
}

func TestDiskStoreMissingTileEntry(t *testing.T) {
	dir := t.TempDir()
	storage := testStorage(dir)
	loc := LocateSlab(storage, 0, 0)
	path := radixPath(storage, loc.SlabCol, loc.SlabRow)
	writeSlabFile(t, path, storage, map[int][]byte{})

	ds, err := NewDiskStore(8)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	defer ds.Close()

	if _, err := ds.ReadTile(storage, 0, 0); err != ErrTileMissing {
		t.Fatalf("ReadTile = %v, want ErrTileMissing", err)
	}
}

func TestDiskStoreAbsentSlabFile(t *testing.T) {
	storage := testStorage(t.TempDir())
	ds, err := NewDiskStore(8)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	defer ds.Close()

	if _, err := ds.ReadTile(storage, 100, 100); err != ErrTileMissing {
		t.Fatalf("ReadTile = %v, want ErrTileMissing", err)
	}
}
