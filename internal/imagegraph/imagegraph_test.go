package imagegraph

import (
	"testing"

	"github.com/rok4/tileserver/internal/codec"
	"github.com/rok4/tileserver/internal/geom"
)

func solidImage(w, h, channels int, val uint8) *TileImage {
	img := codec.NewImage8(w, h, channels)
	for i := range img.Pix8 {
		img.Pix8[i] = val
	}
	bbox := geom.BoundingBox[float64]{Xmin: 0, Ymin: 0, Xmax: float64(w), Ymax: float64(h), SRS: "epsg:3857"}
	return NewTileImage(img, bbox)
}

func TestTileImageGetLine(t *testing.T) {
	t1 := solidImage(4, 4, 3, 200)
	buf := NewBuffer(SampleU8, 4, 3)
	n, err := t1.GetLine(0, buf)
	if err != nil {
		t.Fatalf("GetLine: %v", err)
	}
	if n != 12 {
		t.Fatalf("n = %d, want 12", n)
	}
	for _, v := range buf.U8 {
		if v != 200 {
			t.Errorf("pixel = %d, want 200", v)
		}
	}
}

func TestCropWindowsPixelsAndBBox(t *testing.T) {
	img := solidImage(8, 8, 1, 10)
	crop := NewCrop(img, 2, 2, 4, 4)
	if crop.Width() != 4 || crop.Height() != 4 {
		t.Fatalf("crop dims = %dx%d, want 4x4", crop.Width(), crop.Height())
	}
	b := crop.BBox()
	if b.Xmin != 2 || b.Xmax != 6 {
		t.Errorf("crop bbox X = [%v,%v], want [2,6]", b.Xmin, b.Xmax)
	}
	buf := NewBuffer(SampleU8, 4, 1)
	if _, err := crop.GetLine(0, buf); err != nil {
		t.Fatalf("GetLine: %v", err)
	}
	for _, v := range buf.U8 {
		if v != 10 {
			t.Errorf("cropped pixel = %d, want 10", v)
		}
	}
}

func TestResampleNearestPreservesConstant(t *testing.T) {
	img := solidImage(4, 4, 1, 77)
	r := NewResample(img, 8, 8, KernelNearest)
	buf := NewBuffer(SampleU8, 8, 1)
	for y := 0; y < 8; y++ {
		if _, err := r.GetLine(y, buf); err != nil {
			t.Fatalf("GetLine(%d): %v", y, err)
		}
		for _, v := range buf.U8 {
			if v != 77 {
				t.Errorf("row %d: pixel = %d, want 77", y, v)
			}
		}
	}
}

func TestResampleLinearPreservesConstant(t *testing.T) {
	img := solidImage(4, 4, 1, 100)
	r := NewResample(img, 6, 6, KernelLinear)
	buf := NewBuffer(SampleU8, 6, 1)
	if _, err := r.GetLine(3, buf); err != nil {
		t.Fatalf("GetLine: %v", err)
	}
	for _, v := range buf.U8 {
		if v < 99 || v > 101 {
			t.Errorf("pixel = %d, want ~100", v)
		}
	}
}

func TestEmptyNodeFillsConstant(t *testing.T) {
	bbox := geom.BoundingBox[float64]{Xmin: 0, Ymin: 0, Xmax: 10, Ymax: 10, SRS: "epsg:3857"}
	e := NewEmpty(4, 4, 2, bbox, []float32{0.5, 0.25})
	buf := NewBuffer(SampleF32, 4, 2)
	if _, err := e.GetLine(0, buf); err != nil {
		t.Fatalf("GetLine: %v", err)
	}
	for x := 0; x < 4; x++ {
		if buf.F32[x*2] != 0.5 || buf.F32[x*2+1] != 0.25 {
			t.Errorf("pixel %d = (%v,%v), want (0.5,0.25)", x, buf.F32[x*2], buf.F32[x*2+1])
		}
	}
}

func TestExtendedCompoundTopmostPicksOpaqueLayer(t *testing.T) {
	bbox := geom.BoundingBox[float64]{Xmin: 0, Ymin: 0, Xmax: 4, Ymax: 4, SRS: "epsg:3857"}
	bottom := NewEmpty(4, 4, 2, bbox, []float32{1, 1}) // opaque white
	top := NewEmpty(4, 4, 2, bbox, []float32{0, 0})    // transparent black

	c := NewExtendedCompound([]Node{bottom, top}, true, CompositeTopmost)
	buf := NewBuffer(SampleF32, 4, 2)
	if _, err := c.GetLine(0, buf); err != nil {
		t.Fatalf("GetLine: %v", err)
	}
	if buf.F32[0] != 1 {
		t.Errorf("topmost transparent layer should fall through to bottom opaque layer, got %v", buf.F32[0])
	}
}

func TestExtendedCompoundBlendsAlpha(t *testing.T) {
	bbox := geom.BoundingBox[float64]{Xmin: 0, Ymin: 0, Xmax: 2, Ymax: 2, SRS: "epsg:3857"}
	bottom := NewEmpty(2, 2, 2, bbox, []float32{0, 1}) // opaque black
	top := NewEmpty(2, 2, 2, bbox, []float32{1, 0.5})  // half-alpha white

	c := NewExtendedCompound([]Node{bottom, top}, true, CompositeBlend)
	buf := NewBuffer(SampleF32, 2, 2)
	if _, err := c.GetLine(0, buf); err != nil {
		t.Fatalf("GetLine: %v", err)
	}
	if buf.F32[0] < 0.49 || buf.F32[0] > 0.51 {
		t.Errorf("blended color = %v, want ~0.5", buf.F32[0])
	}
}
