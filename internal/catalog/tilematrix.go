package catalog

import "github.com/rok4/tileserver/internal/geom"

// TileMatrix is one resolution level of a pyramid: a grid of equally-sized
// tiles with a fixed top-left anchor in CRS units (spec §3.1, GLOSSARY).
type TileMatrix struct {
	ID         string
	Resolution float64
	X0, Y0     float64 // top-left of tile (0,0) in CRS units
	TileW      int
	TileH      int
	MatrixW    int
	MatrixH    int
}

// TopLeft returns the CRS-space top-left corner of tile (col, row), per the
// addressing formula in spec §4.2.
func (tm TileMatrix) TopLeft(col, row int) (x, y float64) {
	x = tm.X0 + float64(col)*float64(tm.TileW)*tm.Resolution
	y = tm.Y0 - float64(row)*float64(tm.TileH)*tm.Resolution
	return
}

// TileRange maps a bounding box in the TileMatrix's CRS to the covering
// range of tile indices, clamped to [0, MatrixW) / [0, MatrixH) (spec §4.2).
func (tm TileMatrix) TileRange(bb geom.BoundingBox[float64]) (colMin, colMax, rowMin, rowMax int) {
	span := float64(tm.TileW) * tm.Resolution
	spanH := float64(tm.TileH) * tm.Resolution

	colMin = int(floor((bb.Xmin - tm.X0) / span))
	colMax = int(ceil((bb.Xmax-tm.X0)/span)) - 1
	rowMin = int(floor((tm.Y0 - bb.Ymax) / spanH))
	rowMax = int(ceil((tm.Y0-bb.Ymin)/spanH)) - 1

	colMin = clamp(colMin, 0, tm.MatrixW-1)
	colMax = clamp(colMax, 0, tm.MatrixW-1)
	rowMin = clamp(rowMin, 0, tm.MatrixH-1)
	rowMax = clamp(rowMax, 0, tm.MatrixH-1)
	return
}

func floor(f float64) float64 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return float64(i)
}

func ceil(f float64) float64 {
	i := int64(f)
	if f > 0 && float64(i) != f {
		i++
	}
	return float64(i)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TileMatrixSet is an ordered family of TileMatrices over a single CRS
// (spec §3.1, GLOSSARY). The server looks matrices up by id; ordering is
// not relied upon.
type TileMatrixSet struct {
	ID       string
	Title    string
	Abstract string
	Keywords []string
	CRS      geom.CRS
	Matrices map[string]TileMatrix
}

// Matrix looks a TileMatrix up by id.
func (t TileMatrixSet) Matrix(id string) (TileMatrix, bool) {
	tm, ok := t.Matrices[id]
	return tm, ok
}
