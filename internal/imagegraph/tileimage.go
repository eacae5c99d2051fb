package imagegraph

import (
	"github.com/rok4/tileserver/internal/codec"
	"github.com/rok4/tileserver/internal/geom"
)

// TileImage is a leaf Node wrapping an already-decoded codec.Image plus the
// ground bbox it covers. Grounded on the teacher's TileData
// (internal/tile/tiledata.go), generalized from a fixed RGBA buffer to
// either u8 or f32 samples per codec.Image.
type TileImage struct {
	img   *codec.Image
	bbox  geom.BoundingBox[float64]
	kind  SampleKind
}

// NewTileImage wraps a decoded image as a leaf node covering bbox.
func NewTileImage(img *codec.Image, bbox geom.BoundingBox[float64]) *TileImage {
	kind := SampleU8
	if img.Pix8 == nil {
		kind = SampleF32
	}
	return &TileImage{img: img, bbox: bbox, kind: kind}
}

func (t *TileImage) Width() int    { return t.img.Width }
func (t *TileImage) Height() int   { return t.img.Height }
func (t *TileImage) Channels() int { return t.img.Channels }
func (t *TileImage) BBox() geom.BoundingBox[float64] { return t.bbox }

func (t *TileImage) GetLine(y int, buf *Buffer) (int, error) {
	if y < 0 || y >= t.img.Height {
		return 0, dimsError("TileImage.GetLine", y, t.img.Height)
	}
	w, c := t.img.Width, t.img.Channels
	n := w * c
	start := y * n
	if t.kind == SampleU8 {
		copy(buf.U8[:n], t.img.Pix8[start:start+n])
	} else {
		copy(buf.F32[:n], t.img.Pix32[start:start+n])
	}
	return n, nil
}
