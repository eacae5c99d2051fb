package request

import (
	"github.com/rok4/tileserver/internal/codec"
	"github.com/rok4/tileserver/internal/imagegraph"
)

// Materialize pulls every row of node into a codec.Image ready for
// encoding. Tile leaves produced by fetchTile are always 8-bit (spec
// §4.5's f32 path is reserved for BIL sources decoded with
// float32Samples=true, which this pipeline never requests), so the pull
// uses SampleU8 throughout the graph.
func Materialize(node imagegraph.Node) (*codec.Image, error) {
	w, h, ch := node.Width(), node.Height(), node.Channels()
	img := codec.NewImage8(w, h, ch)
	buf := imagegraph.NewBuffer(imagegraph.SampleU8, w, ch)
	for y := 0; y < h; y++ {
		if _, err := node.GetLine(y, buf); err != nil {
			return nil, err
		}
		copy(img.Pix8[y*w*ch:(y+1)*w*ch], buf.U8)
	}
	return img, nil
}
