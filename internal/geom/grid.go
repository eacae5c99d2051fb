package geom

import (
	"fmt"
	"math"
)

// ReprojectionFailedError is returned when every sample point in a
// reprojection attempt fails to transform (spec §4.1, §7).
type ReprojectionFailedError struct {
	From, To string
}

func (e *ReprojectionFailedError) Error() string {
	return fmt.Sprintf("reprojection failed: no sample transformed from %s to %s", e.From, e.To)
}

// transformPoint maps (x,y) in src's CRS to dst's CRS by composing
// src.ToWGS84 and dst.FromWGS84. ok is false if either CRS lacks a
// projection backend.
func transformPoint(x, y float64, src, dst CRS) (dx, dy float64, ok bool) {
	if !src.IsProjLibCompatible || !dst.IsProjLibCompatible {
		return 0, 0, false
	}
	lon, lat := src.Transform().ToWGS84(x, y)
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return 0, 0, false
	}
	dx, dy = dst.Transform().FromWGS84(lon, lat)
	if math.IsNaN(dx) || math.IsNaN(dy) || math.IsInf(dx, 0) || math.IsInf(dy, 0) {
		return 0, 0, false
	}
	return dx, dy, true
}

// ReprojectBBox samples the four corners of bbox and a regular
// (interiorSamples+1) x (interiorSamples+1) lattice spanning the box, edges
// included, transforms each sample from src to dst,
// and returns the axis-aligned bounding rectangle of the transformed
// samples (spec §4.1 Grid::reproject). interiorSamples <= 0 means corners
// only. If no sample transforms successfully the box is reported via
// ReprojectionFailedError (spec §7: handled by the caller as an empty tile
// set, not propagated as a hard error).
func ReprojectBBox(bbox BoundingBox[float64], src, dst CRS, interiorSamples int) (BoundingBox[float64], error) {
	if src.Equal(dst) {
		return bbox, nil
	}

	var (
		xmin, ymin = math.Inf(1), math.Inf(1)
		xmax, ymax = math.Inf(-1), math.Inf(-1)
		any        bool
	)

	accumulate := func(x, y float64) {
		dx, dy, ok := transformPoint(x, y, src, dst)
		if !ok {
			return
		}
		any = true
		xmin = math.Min(xmin, dx)
		ymin = math.Min(ymin, dy)
		xmax = math.Max(xmax, dx)
		ymax = math.Max(ymax, dy)
	}

	accumulate(bbox.Xmin, bbox.Ymin)
	accumulate(bbox.Xmin, bbox.Ymax)
	accumulate(bbox.Xmax, bbox.Ymin)
	accumulate(bbox.Xmax, bbox.Ymax)

	if interiorSamples > 0 {
		w, h := bbox.Width(), bbox.Height()
		for i := 0; i <= interiorSamples; i++ {
			for j := 0; j <= interiorSamples; j++ {
				x := bbox.Xmin + w*float64(i)/float64(interiorSamples)
				y := bbox.Ymin + h*float64(j)/float64(interiorSamples)
				accumulate(x, y)
			}
		}
	}

	if !any {
		return BoundingBox[float64]{}, &ReprojectionFailedError{From: src.Code, To: dst.Code}
	}
	return BoundingBox[float64]{Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax, SRS: dst.Code}, nil
}

// Grid is a table of source coordinates for each output pixel, used by the
// imagegraph Reproject node (spec §4.5, GLOSSARY). To bound the cost of
// per-pixel inverse projection, exact transforms are computed only at grid
// points spaced `Stride` pixels apart and bilinearly interpolated in
// between — the "sampling density adaptive to the input/output resolution
// ratio" rule from spec §4.1, mirroring the teacher's per-tile (not
// per-pixel) overview-level selection in internal/tile/resample.go, which
// applies the same amortization idea to a different quantity.
type Grid struct {
	Width, Height int
	Stride        int
	cols, rows    int // number of sample points per axis
	sx, sy        []float64
}

// NewGrid builds a per-pixel source-coordinate grid for an output image of
// the given pixel dimensions covering outBBox, reprojecting from dst back
// into src (the pyramid's native CRS) so that each output pixel's sample
// coordinate can be looked up directly. stride selects the sampling
// density; it is clamped to >=1 and <= min(width,height).
func NewGrid(width, height int, outBBox BoundingBox[float64], dst, src CRS, stride int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", width, height)
	}
	if stride < 1 {
		stride = 1
	}
	if stride > width {
		stride = width
	}
	if stride > height {
		stride = height
	}

	cols := width/stride + 2
	rows := height/stride + 2

	g := &Grid{Width: width, Height: height, Stride: stride, cols: cols, rows: rows}
	g.sx = make([]float64, cols*rows)
	g.sy = make([]float64, cols*rows)

	pxSizeX := outBBox.Width() / float64(width)
	pxSizeY := outBBox.Height() / float64(height)

	var anyOK bool
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			px := float64(c*stride) + 0.5
			py := float64(r*stride) + 0.5
			x := outBBox.Xmin + px*pxSizeX
			y := outBBox.Ymax - py*pxSizeY
			sx, sy, ok := transformPoint(x, y, dst, src)
			idx := r*cols + c
			if ok {
				anyOK = true
				g.sx[idx] = sx
				g.sy[idx] = sy
			} else {
				g.sx[idx] = math.NaN()
				g.sy[idx] = math.NaN()
			}
		}
	}
	if !anyOK {
		return nil, &ReprojectionFailedError{From: dst.Code, To: src.Code}
	}
	return g, nil
}

// Sample returns the source CRS coordinate corresponding to output pixel
// (x, y), bilinearly interpolated between the nearest computed grid
// points. ok is false if every surrounding grid point failed to transform.
func (g *Grid) Sample(x, y int) (sx, sy float64, ok bool) {
	fc := float64(x) / float64(g.Stride)
	fr := float64(y) / float64(g.Stride)
	c0 := int(fc)
	r0 := int(fr)
	if c0 >= g.cols-1 {
		c0 = g.cols - 2
	}
	if r0 >= g.rows-1 {
		r0 = g.rows - 2
	}
	tc := fc - float64(c0)
	tr := fr - float64(r0)

	idx00 := r0*g.cols + c0
	idx10 := r0*g.cols + c0 + 1
	idx01 := (r0+1)*g.cols + c0
	idx11 := (r0+1)*g.cols + c0 + 1

	x00, y00, ok00 := g.sx[idx00], g.sy[idx00], !math.IsNaN(g.sx[idx00])
	x10, y10, ok10 := g.sx[idx10], g.sy[idx10], !math.IsNaN(g.sx[idx10])
	x01, y01, ok01 := g.sx[idx01], g.sy[idx01], !math.IsNaN(g.sx[idx01])
	x11, y11, ok11 := g.sx[idx11], g.sy[idx11], !math.IsNaN(g.sx[idx11])

	if !ok00 && !ok10 && !ok01 && !ok11 {
		return 0, 0, false
	}
	// Fall back to nearest valid corner when some samples are missing,
	// rather than interpolating through NaN.
	if !ok00 || !ok10 || !ok01 || !ok11 {
		if ok00 {
			return x00, y00, true
		}
		if ok10 {
			return x10, y10, true
		}
		if ok01 {
			return x01, y01, true
		}
		return x11, y11, true
	}

	top := x00*(1-tc) + x10*tc
	bot := x01*(1-tc) + x11*tc
	sx = top*(1-tr) + bot*tr

	topY := y00*(1-tc) + y10*tc
	botY := y01*(1-tc) + y11*tc
	sy = topY*(1-tr) + botY*tr
	return sx, sy, true
}
