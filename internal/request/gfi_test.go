package request

import (
	"testing"

	"github.com/rok4/tileserver/internal/catalog"
	"github.com/rok4/tileserver/internal/geom"
	"github.com/rok4/tileserver/internal/imagegraph"
)

// fakeNode is a minimal imagegraph.Node backed by a flat row-major buffer,
// used to exercise samplePixel without assembling a real image graph.
type fakeNode struct {
	w, h, ch int
	pix      []uint8
}

func (n *fakeNode) Width() int                     { return n.w }
func (n *fakeNode) Height() int                     { return n.h }
func (n *fakeNode) Channels() int                   { return n.ch }
func (n *fakeNode) BBox() geom.BoundingBox[float64] { return geom.BoundingBox[float64]{} }
func (n *fakeNode) GetLine(y int, buf *imagegraph.Buffer) (int, error) {
	copy(buf.U8, n.pix[y*n.w*n.ch:(y+1)*n.w*n.ch])
	return n.w * n.ch, nil
}

func TestSamplePixelReadsRequestedColumn(t *testing.T) {
	node := &fakeNode{w: 2, h: 2, ch: 3, pix: []uint8{
		10, 11, 12, 20, 21, 22, // row 0
		30, 31, 32, 40, 41, 42, // row 1
	}}
	values, err := samplePixel(node, 1, 1)
	if err != nil {
		t.Fatalf("samplePixel: %v", err)
	}
	want := []float32{40, 41, 42}
	for i, v := range want {
		if values[i] != v {
			t.Errorf("values[%d] = %v, want %v", i, values[i], v)
		}
	}
}

func TestPixelCoordOutOfBounds(t *testing.T) {
	p := Params{"i": "5"}
	if _, err := pixelCoord(p, "i", "x", 5); err == nil {
		t.Fatal("expected out-of-bounds error for i == bound")
	}
}

func TestPixelCoordFallsBackToLegacyName(t *testing.T) {
	p := Params{"x": "3"}
	got, err := pixelCoord(p, "i", "x", 10)
	if err != nil {
		t.Fatalf("pixelCoord: %v", err)
	}
	if got != 3 {
		t.Errorf("pixelCoord = %d, want 3 (from legacy X)", got)
	}
}

func TestRenderFeatureInfoTextPlain(t *testing.T) {
	results := []FeatureInfoResult{{LayerID: "orthos", Values: []float32{128, 64, 32}}}
	body, mime := RenderFeatureInfo(results, "text/plain")
	if mime != "text/plain" {
		t.Errorf("mime = %q, want text/plain", mime)
	}
	if body != "orthos:128,64,32\n" {
		t.Errorf("body = %q", body)
	}
}

func TestRenderFeatureInfoXMLFallback(t *testing.T) {
	results := []FeatureInfoResult{{LayerID: "orthos", Values: []float32{5}}}
	body, mime := RenderFeatureInfo(results, "application/vnd.ogc.gml")
	if mime != "text/xml" {
		t.Errorf("mime = %q, want text/xml", mime)
	}
	if body == "" {
		t.Fatal("expected non-empty XML body")
	}
}

func TestFetchWMTSFeatureInfoNotImplementedWhenUnconfigured(t *testing.T) {
	layer := &catalog.Layer{ID: "orthos"}
	req := &GetFeatureInfoWMTSRequest{
		Tile: &GetTileRequest{Layer: layer},
	}
	body, _, status, err := FetchWMTSFeatureInfo(nil, req, nil)
	if err != nil {
		t.Fatalf("FetchWMTSFeatureInfo: %v", err)
	}
	if status != 501 {
		t.Errorf("status = %d, want 501", status)
	}
	if body != nil {
		t.Errorf("body = %v, want nil", body)
	}
}
