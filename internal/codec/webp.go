package codec

import (
	"bytes"

	"github.com/gen2brain/webp"
)

// WebP decode/encode both go through github.com/gen2brain/webp, a pure-Go
// (WASM-via-wazero) port — the teacher's only direct third-party
// dependency (SPEC_FULL §1) — rather than cgo, so this codec has no
// build-tag split the way the teacher's encoder does
// (internal/encode/webp.go / webp_stub.go).
type webpDecoder struct{}

func (webpDecoder) Decode(encoded []byte) (*Image, error) {
	img, err := webp.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	return FromStdImage(img, 4), nil
}

// WebPEncoder encodes tiles as WebP (SPEC_FULL §1: fifth pyramid format).
type WebPEncoder struct {
	Quality int
	bufferedStream
}

func (e *WebPEncoder) Reset(img *Image) error {
	e.buf.Reset()
	e.status = 200
	rgba, err := img.ToRGBA()
	if err != nil {
		e.status = 500
		return err
	}
	quality := e.Quality
	if quality <= 0 {
		quality = 85
	}
	if err := webp.Encode(&e.buf, rgba, webp.Options{Quality: float32(quality)}); err != nil {
		e.status = 500
		return err
	}
	return nil
}

func (e *WebPEncoder) Mime() string       { return "image/webp" }
func (e *WebPEncoder) MinReadBuffer() int { return 1 }
