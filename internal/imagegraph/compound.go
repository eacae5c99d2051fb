package imagegraph

import "github.com/rok4/tileserver/internal/geom"

// CompositeMode selects how ExtendedCompound merges its layers
// (spec §4.5 "ExtendedCompound").
type CompositeMode int

const (
	// CompositeBlend alpha-composites layers bottom to top (source-over).
	CompositeBlend CompositeMode = iota
	// CompositeTopmost takes the first layer (top to bottom) whose pixel
	// has a non-zero alpha, ignoring everything beneath it.
	CompositeTopmost
)

// ExtendedCompound merges aligned layers sharing the same pixel grid and
// bbox into one node, either by alpha blending or by picking the topmost
// contributor that is not fully transparent (spec §4.5). Grounded on the teacher's draw.Draw
// overlay step in transform.go's fillEmptyTiles path, generalized from a
// fixed two-image overlay to an arbitrary layer stack with a pull
// interface.
//
// Layers are ordered bottom to top. The last channel of each layer is
// treated as its alpha channel when hasAlpha is true; otherwise every
// layer is opaque.
type ExtendedCompound struct {
	layers   []Node
	hasAlpha bool
	mode     CompositeMode
}

func NewExtendedCompound(layers []Node, hasAlpha bool, mode CompositeMode) *ExtendedCompound {
	return &ExtendedCompound{layers: layers, hasAlpha: hasAlpha, mode: mode}
}

func (c *ExtendedCompound) Width() int  { return c.layers[0].Width() }
func (c *ExtendedCompound) Height() int { return c.layers[0].Height() }
func (c *ExtendedCompound) Channels() int {
	return c.layers[0].Channels()
}
func (c *ExtendedCompound) BBox() geom.BoundingBox[float64] { return c.layers[0].BBox() }

func (c *ExtendedCompound) GetLine(y int, buf *Buffer) (int, error) {
	ch := c.Channels()
	w := c.Width()
	if y < 0 || y >= c.Height() {
		return 0, dimsError("ExtendedCompound.GetLine", y, c.Height())
	}

	rows := make([]*Buffer, len(c.layers))
	for i, layer := range c.layers {
		rows[i] = NewBuffer(buf.Kind, w, ch)
		if _, err := layer.GetLine(y, rows[i]); err != nil {
			return 0, err
		}
	}

	colorChannels := ch
	if c.hasAlpha {
		colorChannels = ch - 1
	}

	switch c.mode {
	case CompositeTopmost:
		for x := 0; x < w; x++ {
			found := false
			for i := len(rows) - 1; i >= 0; i-- {
				alpha := float32(1)
				if c.hasAlpha {
					alpha = rows[i].At(x*ch + colorChannels)
				}
				if alpha <= 0 {
					continue
				}
				for cc := 0; cc < ch; cc++ {
					buf.Set(x*ch+cc, rows[i].At(x*ch+cc))
				}
				found = true
				break
			}
			if !found {
				for cc := 0; cc < ch; cc++ {
					buf.Set(x*ch+cc, 0)
				}
			}
		}
	default: // CompositeBlend
		for x := 0; x < w; x++ {
			var acc [8]float32 // color channels accumulated so far, premultiplied
			var accAlpha float32
			for _, row := range rows {
				alpha := float32(1)
				if c.hasAlpha {
					alpha = row.At(x*ch + colorChannels)
				}
				for cc := 0; cc < colorChannels; cc++ {
					src := row.At(x*ch + cc)
					acc[cc] = src*alpha + acc[cc]*(1-alpha)
				}
				accAlpha = alpha + accAlpha*(1-alpha)
			}
			for cc := 0; cc < colorChannels; cc++ {
				buf.Set(x*ch+cc, acc[cc])
			}
			if c.hasAlpha {
				buf.Set(x*ch+colorChannels, accAlpha)
			}
		}
	}
	return w * ch, nil
}
