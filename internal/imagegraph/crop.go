package imagegraph

import "github.com/rok4/tileserver/internal/geom"

// Crop windows a Node to a pixel rectangle, translating the bbox to match
// (spec §4.5 "Crop"). Grounded on the teacher's sub-image extraction in
// downsampleQuadrant (internal/tile/downsample.go), generalized to a lazy
// node instead of an eager image.Image copy.
type Crop struct {
	src                Node
	offX, offY         int
	width, height      int
	bbox               geom.BoundingBox[float64]
}

// NewCrop windows src to the pixel rectangle [offX,offY,offX+width,offY+height)
// and computes the corresponding sub-bbox assuming src's bbox maps linearly
// onto its pixel grid.
func NewCrop(src Node, offX, offY, width, height int) *Crop {
	sw, sh := src.Width(), src.Height()
	b := src.BBox()
	pxW := (b.Xmax - b.Xmin) / float64(sw)
	pxH := (b.Ymax - b.Ymin) / float64(sh)
	cropBBox := geom.BoundingBox[float64]{
		Xmin: b.Xmin + float64(offX)*pxW,
		Xmax: b.Xmin + float64(offX+width)*pxW,
		Ymax: b.Ymax - float64(offY)*pxH,
		Ymin: b.Ymax - float64(offY+height)*pxH,
		SRS:  b.SRS,
	}
	return &Crop{src: src, offX: offX, offY: offY, width: width, height: height, bbox: cropBBox}
}

func (c *Crop) Width() int    { return c.width }
func (c *Crop) Height() int   { return c.height }
func (c *Crop) Channels() int { return c.src.Channels() }
func (c *Crop) BBox() geom.BoundingBox[float64] { return c.bbox }

func (c *Crop) GetLine(y int, buf *Buffer) (int, error) {
	if y < 0 || y >= c.height {
		return 0, dimsError("Crop.GetLine", y, c.height)
	}
	full := NewBuffer(buf.Kind, c.src.Width(), c.src.Channels())
	if _, err := c.src.GetLine(c.offY+y, full); err != nil {
		return 0, err
	}
	ch := c.Channels()
	n := c.width * ch
	start := c.offX * ch
	if buf.Kind == SampleU8 {
		copy(buf.U8[:n], full.U8[start:start+n])
	} else {
		copy(buf.F32[:n], full.F32[start:start+n])
	}
	return n, nil
}
