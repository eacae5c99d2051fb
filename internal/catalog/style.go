package catalog

import (
	"image/color"
	"sort"
)

// PaletteEntry is one control point of a Style's f64 -> RGBA mapping.
type PaletteEntry struct {
	Value float64
	Color color.RGBA
}

// Palette is a monotone mapping f64 -> RGBA with linear interpolation
// between the two surrounding entries (spec §3.1, §4.5 "Palette
// application").
type Palette struct {
	entries []PaletteEntry // kept sorted by Value
}

// NewPalette builds a Palette from unordered entries.
func NewPalette(entries []PaletteEntry) Palette {
	sorted := append([]PaletteEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })
	return Palette{entries: sorted}
}

// Lookup maps a sample value to an RGBA color by locating the two
// surrounding palette keys and blending linearly in each channel (spec
// §4.5). Values outside the palette's range clamp to the nearest entry.
func (p Palette) Lookup(v float64) color.RGBA {
	n := len(p.entries)
	if n == 0 {
		return color.RGBA{}
	}
	if v <= p.entries[0].Value {
		return p.entries[0].Color
	}
	if v >= p.entries[n-1].Value {
		return p.entries[n-1].Color
	}
	lo, hi := 0, n-1
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if p.entries[mid].Value <= v {
			lo = mid
		} else {
			hi = mid
		}
	}
	a, b := p.entries[lo], p.entries[hi]
	t := (v - a.Value) / (b.Value - a.Value)
	return color.RGBA{
		R: lerpByte(a.Color.R, b.Color.R, t),
		G: lerpByte(a.Color.G, b.Color.G, t),
		B: lerpByte(a.Color.B, b.Color.B, t),
		A: lerpByte(a.Color.A, b.Color.A, t),
	}
}

func lerpByte(a, b uint8, t float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*t
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

// Style is a named rendering variant of a Layer (spec §3.1).
type Style struct {
	ID         string
	Titles     []string
	Abstracts  []string
	Keywords   []string
	LegendURLs []string
	Palette    *Palette // nil when the style carries no palette/LUT
}
