package catalog

import (
	"testing"

	"github.com/rok4/tileserver/internal/geom"
)

func makeLevel(id string, res float64) *Level {
	return &Level{
		TileMatrixID: id,
		TM:           TileMatrix{ID: id, Resolution: res, TileW: 256, TileH: 256, MatrixW: 1000, MatrixH: 1000},
	}
}

func TestBestLevelWithinWindow(t *testing.T) {
	p := &Pyramid{Levels: map[string]*Level{
		"0": makeLevel("0", 1.0),
		"1": makeLevel("1", 2.0),
		"2": makeLevel("2", 4.0),
	}}
	lvl, err := p.BestLevel(1.0)
	if err != nil {
		t.Fatal(err)
	}
	if lvl.TileMatrixID != "0" {
		t.Errorf("BestLevel(1.0) = %s, want 0", lvl.TileMatrixID)
	}

	// 3.8 / 4.0 = 0.95, in window; 3.8/2.0=1.9 outside window.
	lvl, err = p.BestLevel(3.8)
	if err != nil {
		t.Fatal(err)
	}
	if lvl.TileMatrixID != "2" {
		t.Errorf("BestLevel(3.8) = %s, want 2", lvl.TileMatrixID)
	}
}

func TestBestLevelOversampled(t *testing.T) {
	p := &Pyramid{Levels: map[string]*Level{
		"0": makeLevel("0", 1.0),
		"1": makeLevel("1", 2.0),
	}}
	// r=0.1: d against level 0 is 0.1 (<0.8), against level 1 is 0.05 (<0.8).
	// Coarsest level with d<0.8 wins: level 1.
	lvl, err := p.BestLevel(0.1)
	if err != nil {
		t.Fatal(err)
	}
	if lvl.TileMatrixID != "1" {
		t.Errorf("BestLevel(0.1) = %s, want 1 (coarsest under-0.8)", lvl.TileMatrixID)
	}
}

func TestBestLevelOnDemandNoMatch(t *testing.T) {
	p := &Pyramid{OnDemand: true, Levels: map[string]*Level{
		"0": makeLevel("0", 1.0),
	}}
	_, err := p.BestLevel(100.0)
	if err == nil {
		t.Fatal("expected ErrNoSuitableLevel")
	}
	if _, ok := err.(*ErrNoSuitableLevel); !ok {
		t.Errorf("got %T, want *ErrNoSuitableLevel", err)
	}
}

func TestLowestHighestLevel(t *testing.T) {
	p := &Pyramid{Levels: map[string]*Level{
		"0": makeLevel("0", 1.0),
		"1": makeLevel("1", 2.0),
		"2": makeLevel("2", 4.0),
	}}
	if p.LowestLevel().TileMatrixID != "0" {
		t.Errorf("LowestLevel should be finest resolution (0)")
	}
	if p.HighestLevel().TileMatrixID != "2" {
		t.Errorf("HighestLevel should be coarsest resolution (2)")
	}
}

func TestTileMatrixTileRange(t *testing.T) {
	tm := TileMatrix{ID: "0", Resolution: 1.0, X0: 0, Y0: 1000, TileW: 100, TileH: 100, MatrixW: 10, MatrixH: 10}
	bb := mustBBox(t, 150, 700, 350, 900)
	colMin, colMax, rowMin, rowMax := tm.TileRange(bb)
	if colMin != 1 || colMax != 3 {
		t.Errorf("cols = [%d,%d], want [1,3]", colMin, colMax)
	}
	if rowMin != 1 || rowMax != 2 {
		t.Errorf("rows = [%d,%d], want [1,2]", rowMin, rowMax)
	}
}

func mustBBox(t *testing.T, xmin, ymin, xmax, ymax float64) geom.BoundingBox[float64] {
	t.Helper()
	return geom.BoundingBox[float64]{Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax}
}
