package codec

import (
	"bytes"
	"image/png"
)

type pngDecoder struct{}

func (pngDecoder) Decode(encoded []byte) (*Image, error) {
	img, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	return FromStdImage(img, 4), nil
}

// PNGEncoder encodes tiles as PNG, grounded on the teacher's
// internal/encode/png.go (png.BestSpeed, matching its preference for
// generation throughput over ratio).
type PNGEncoder struct {
	bufferedStream
}

func (e *PNGEncoder) Reset(img *Image) error {
	e.buf.Reset()
	e.status = 200
	rgba, err := img.ToRGBA()
	if err != nil {
		e.status = 500
		return err
	}
	enc := &png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&e.buf, rgba); err != nil {
		e.status = 500
		return err
	}
	return nil
}

func (e *PNGEncoder) Mime() string       { return "image/png" }
func (e *PNGEncoder) MinReadBuffer() int { return 1 }
