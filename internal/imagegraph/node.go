// Package imagegraph implements the lazy image node graph of spec §4.5:
// decoded tiles, crops, resampling, reprojection, alpha compositing and
// constant/empty nodes, all composed behind a pull-line interface so a
// GetMap response can be assembled without materializing intermediate
// full-resolution buffers. Grounded on the teacher's image-producing
// pipeline (internal/tile/resample.go, downsample.go, transform.go),
// generalized from "always return a whole *image.RGBA" to pull-per-row.
package imagegraph

import (
	"fmt"
	"math"

	"github.com/rok4/tileserver/internal/geom"
)

// SampleKind selects the numeric representation GetLine fills (spec §4.5
// "Numeric semantics": internal pixel buffers are either u8 or f32).
type SampleKind int

const (
	SampleU8 SampleKind = iota
	SampleF32
)

// Buffer holds one scanline's worth of pixel-interleaved samples in either
// representation.
type Buffer struct {
	Kind SampleKind
	U8   []uint8
	F32  []float32
}

// NewBuffer allocates a Buffer able to hold width*channels samples.
func NewBuffer(kind SampleKind, width, channels int) *Buffer {
	n := width * channels
	if kind == SampleU8 {
		return &Buffer{Kind: kind, U8: make([]uint8, n)}
	}
	return &Buffer{Kind: kind, F32: make([]float32, n)}
}

// Len returns the sample count regardless of representation.
func (b *Buffer) Len() int {
	if b.Kind == SampleU8 {
		return len(b.U8)
	}
	return len(b.F32)
}

// At/Set read and write a single sample, converting between u8 and f32 via
// linear scaling by 255 with saturating clamp (spec §4.5).
func (b *Buffer) At(i int) float32 {
	if b.Kind == SampleU8 {
		return float32(b.U8[i]) / 255.0
	}
	return b.F32[i]
}

func (b *Buffer) Set(i int, v float32) {
	if b.Kind == SampleU8 {
		b.U8[i] = clampToByte(v * 255.0)
		return
	}
	b.F32[i] = v
}

func clampToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Node is a lazy image: width/height/channels/bbox plus a pull-line
// fetch (spec §4.5).
type Node interface {
	Width() int
	Height() int
	Channels() int
	BBox() geom.BoundingBox[float64]
	// GetLine fills buf with row y's samples (0-indexed from the top) and
	// returns the number of samples written. buf must be sized for
	// Width()*Channels() samples.
	GetLine(y int, buf *Buffer) (int, error)
}

// dimsError is a small helper for bounds-checking GetLine calls.
func dimsError(op string, y, height int) error {
	return fmt.Errorf("imagegraph: %s: row %d out of range [0,%d)", op, y, height)
}

// clampFloat clamps v to [lo, hi].
func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
