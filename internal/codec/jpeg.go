package codec

import (
	"bytes"
	"image/jpeg"
)

// jpegMinReadBuffer documents the minimum buffer size the JPEG encoder is
// guaranteed to make progress with per Read call. Ported from the
// teacher's default-quality convention (internal/encode/jpeg.go); the
// underlying image/jpeg writer buffers its own scanlines internally so in
// practice any buffer works, but the request layer's contract (spec §4.4,
// §9 Open Question) is pinned at 1024 to match the inherited library
// assumption.
const jpegMinReadBuffer = 1024

type jpegDecoder struct{}

func (jpegDecoder) Decode(encoded []byte) (*Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	return FromStdImage(img, 3), nil
}

// JPEGEncoder encodes tiles as JPEG (spec §4.4). Grounded on the teacher's
// internal/encode/jpeg.go, generalized from a whole-buffer Encode() into
// the pull-stream Encoder contract: Reset encodes the full image into an
// internal buffer up front (image/jpeg has no incremental writer), and
// Read drains it in caller-sized chunks.
type JPEGEncoder struct {
	Quality int
	bufferedStream
}

func (e *JPEGEncoder) Reset(img *Image) error {
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
	if err := jpeg.Encode(&e.buf, rgba, &jpeg.Options{Quality: quality}); err != nil {
		e.status = 500
		return err
	}
	return nil
}

func (e *JPEGEncoder) Mime() string       { return "image/jpeg" }
func (e *JPEGEncoder) MinReadBuffer() int { return jpegMinReadBuffer }
