package imagegraph

import "github.com/rok4/tileserver/internal/geom"

// Empty is a constant-value node used for nodata fill (spec §4.5 "Empty",
// GLOSSARY "nodata"). Grounded on the teacher's FillColor handling in
// transformRebuild/fillEmptyTiles (internal/tile/transform.go).
type Empty struct {
	width, height, channels int
	bbox                    geom.BoundingBox[float64]
	value                   []float32 // one value per channel
}

func NewEmpty(width, height, channels int, bbox geom.BoundingBox[float64], value []float32) *Empty {
	v := make([]float32, channels)
	copy(v, value)
	return &Empty{width: width, height: height, channels: channels, bbox: bbox, value: v}
}

func (e *Empty) Width() int    { return e.width }
func (e *Empty) Height() int   { return e.height }
func (e *Empty) Channels() int { return e.channels }
func (e *Empty) BBox() geom.BoundingBox[float64] { return e.bbox }

func (e *Empty) GetLine(y int, buf *Buffer) (int, error) {
	if y < 0 || y >= e.height {
		return 0, dimsError("Empty.GetLine", y, e.height)
	}
	for x := 0; x < e.width; x++ {
		for c := 0; c < e.channels; c++ {
			buf.Set(x*e.channels+c, e.value[c])
		}
	}
	return e.width * e.channels, nil
}
