package imagegraph

import (
	"github.com/rok4/tileserver/internal/geom"
)

// Reproject resamples src from its native CRS into dstBBox/dstCRS pixel
// space using a geom.Grid for the per-pixel inverse transform (spec §4.1,
// §4.5 "Reproject"). Since src's rows are needed in essentially random
// order once the projection twists the grid, Reproject materializes src
// fully on first use rather than pulling single lines, unlike the other
// nodes in this package — grounded on the teacher's per-pixel inverse
// projection in renderTile (internal/tile/resample.go), which has the same
// all-of-source-visible requirement.
type Reproject struct {
	src     Node
	dstBBox geom.BoundingBox[float64]
	dstCRS  geom.CRS
	srcCRS  geom.CRS
	width   int
	height  int
	kernel  Kernel
	grid    *geom.Grid

	materialized bool
	kind         SampleKind
	rows         [][]float32 // src.Height() rows, each src.Width()*channels long
}

// NewReproject builds a Reproject node. stride controls the Grid's sampling
// density (spec §4.1's "adaptive to the input/output resolution ratio").
func NewReproject(src Node, dstBBox geom.BoundingBox[float64], srcCRS, dstCRS geom.CRS, width, height, stride int, kernel Kernel) (*Reproject, error) {
	grid, err := geom.NewGrid(width, height, dstBBox, dstCRS, srcCRS, stride)
	if err != nil {
		return nil, err
	}
	return &Reproject{
		src: src, dstBBox: dstBBox, dstCRS: dstCRS, srcCRS: srcCRS,
		width: width, height: height, kernel: kernel, grid: grid,
	}, nil
}

func (r *Reproject) Width() int    { return r.width }
func (r *Reproject) Height() int   { return r.height }
func (r *Reproject) Channels() int { return r.src.Channels() }
func (r *Reproject) BBox() geom.BoundingBox[float64] { return r.dstBBox }

func (r *Reproject) materialize(kind SampleKind) error {
	if r.materialized && r.kind == kind {
		return nil
	}
	sh, sw, ch := r.src.Height(), r.src.Width(), r.src.Channels()
	rows := make([][]float32, sh)
	for y := 0; y < sh; y++ {
		buf := NewBuffer(kind, sw, ch)
		if _, err := r.src.GetLine(y, buf); err != nil {
			return err
		}
		row := make([]float32, sw*ch)
		for i := range row {
			row[i] = buf.At(i)
		}
		rows[y] = row
	}
	r.rows = rows
	r.kind = kind
	r.materialized = true
	return nil
}

func (r *Reproject) GetLine(y int, buf *Buffer) (int, error) {
	if y < 0 || y >= r.height {
		return 0, dimsError("Reproject.GetLine", y, r.height)
	}
	if err := r.materialize(buf.Kind); err != nil {
		return 0, err
	}
	srcB := r.src.BBox()
	sw, sh, ch := r.src.Width(), r.src.Height(), r.src.Channels()
	pxW := srcB.Width() / float64(sw)
	pxH := srcB.Height() / float64(sh)

	for x := 0; x < r.width; x++ {
		sx, sy, ok := r.grid.Sample(x, y)
		if !ok {
			for c := 0; c < ch; c++ {
				buf.Set(x*ch+c, 0)
			}
			continue
		}
		fx := (sx - srcB.Xmin) / pxW
		fy := (srcB.Ymax - sy) / pxH
		r.sampleAt(fx, fy, sw, sh, ch, buf, x)
	}
	return r.width * ch, nil
}

// sampleAt reads pixel (fx,fy) from the materialized rows using nearest or
// bilinear interpolation (spec §4.5 resample kernels apply to Reproject the
// same as to Resample, restricted to these two for the per-pixel inverse
// case per §9 open question resolution in DESIGN.md).
func (r *Reproject) sampleAt(fx, fy float64, sw, sh, ch int, buf *Buffer, outX int) {
	if r.kernel == KernelNearest {
		ix := clampInt(int(fx+0.5), 0, sw-1)
		iy := clampInt(int(fy+0.5), 0, sh-1)
		row := r.rows[iy]
		for c := 0; c < ch; c++ {
			buf.Set(outX*ch+c, row[ix*ch+c])
		}
		return
	}
	x0 := clampInt(int(fx), 0, sw-1)
	y0 := clampInt(int(fy), 0, sh-1)
	x1 := clampInt(x0+1, 0, sw-1)
	y1 := clampInt(y0+1, 0, sh-1)
	tx := fx - float64(x0)
	ty := fy - float64(y0)
	row0, row1 := r.rows[y0], r.rows[y1]
	for c := 0; c < ch; c++ {
		v00 := row0[x0*ch+c]
		v10 := row0[x1*ch+c]
		v01 := row1[x0*ch+c]
		v11 := row1[x1*ch+c]
		top := float64(v00)*(1-tx) + float64(v10)*tx
		bot := float64(v01)*(1-tx) + float64(v11)*tx
		buf.Set(outX*ch+c, float32(top*(1-ty)+bot*ty))
	}
}
