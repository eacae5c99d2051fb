package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BIL (Band Interleaved by Line) is a headerless raw raster format: the
// pixel samples only, written row-major, band-interleaved per line.
// Grounded on original_source/rok4/BilEncoder.cpp (a direct memcpy of the
// decoded tile buffer, no container). We support both 8-bit and float32
// BIL, matching codec.Image's two storage modes.
type bilDecoder struct{}

func (bilDecoder) Decode(encoded []byte) (*Image, error) {
	// BIL carries no self-describing header; callers must know the
	// dimensions out of band (the Level's declared channel count and the
	// tile matrix's tile size). Decode therefore always fails; callers
	// pass that geometry to DecodeBILInto instead.
	return nil, fmt.Errorf("codec: BIL requires DecodeBILInto with known tile geometry")
}

// DecodeBILInto decodes headerless BIL bytes into an Image of the given
// dimensions. Used instead of Decoder.Decode because BIL alone carries no
// width/height/channel metadata.
func DecodeBILInto(encoded []byte, width, height, channels int, float32Samples bool) (*Image, error) {
	if float32Samples {
		n := width * height * channels
		if len(encoded) < n*4 {
			return nil, fmt.Errorf("codec: BIL float32 buffer too short: got %d bytes, want %d", len(encoded), n*4)
		}
		img := &Image{Width: width, Height: height, Channels: channels, Pix32: make([]float32, n)}
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(encoded[i*4:])
			img.Pix32[i] = math.Float32frombits(bits)
		}
		return img, nil
	}
	n := width * height * channels
	if len(encoded) < n {
		return nil, fmt.Errorf("codec: BIL buffer too short: got %d bytes, want %d", len(encoded), n)
	}
	img := NewImage8(width, height, channels)
	copy(img.Pix8, encoded[:n])
	return img, nil
}

// BILEncoder streams raw pixel samples with no container, matching the
// teacher's flat byte-copy idiom (spec §4.4, §6.2 "image/x-bil").
type BILEncoder struct {
	bufferedStream
}

func (e *BILEncoder) Reset(img *Image) error {
	e.buf.Reset()
	e.status = 200
	switch {
	case img.Pix8 != nil:
		e.buf.Write(img.Pix8)
	case img.Pix32 != nil:
		tmp := make([]byte, 4)
		for _, v := range img.Pix32 {
			binary.LittleEndian.PutUint32(tmp, math.Float32bits(v))
			e.buf.Write(tmp)
		}
	default:
		e.status = 500
		return fmt.Errorf("codec: BIL encoder got an empty image")
	}
	return nil
}

func (e *BILEncoder) Mime() string       { return "image/x-bil" }
func (e *BILEncoder) MinReadBuffer() int { return 1 }
