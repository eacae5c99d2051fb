// Package codec implements the tile decode/encode contracts of spec §4.4.
//
// Every decoder exposes a single-shot Decode(encoded) -> Image call.
// Every encoder is a pull stream: the caller repeatedly invokes Read(buf)
// until Eof() is true, exactly mirroring the teacher's incremental
// progress-bar / channel-draining style (internal/tile/generator.go) but
// applied to byte production instead of tile counts.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/rok4/tileserver/internal/catalog"
)

// Image is the raw decoded pixel buffer passed between codec and
// imagegraph. Samples are pixel-interleaved, either 8-bit (Pix8 non-nil)
// or float32 (Pix32 non-nil); exactly one is set (spec §4.5 "Numeric
// semantics").
type Image struct {
	Width, Height, Channels int
	Pix8                    []uint8
	Pix32                   []float32
}

// NewImage8 allocates a zeroed 8-bit image.
func NewImage8(w, h, channels int) *Image {
	return &Image{Width: w, Height: h, Channels: channels, Pix8: make([]uint8, w*h*channels)}
}

// ToRGBA exposes the decoded image as a stdlib image.Image for encoders
// that wrap image/jpeg, image/png, etc. It only supports 8-bit images with
// 1, 3 or 4 channels; callers decide palette application before this step.
// The result is a non-premultiplied image.NRGBA, so 4-channel samples are
// carried over unchanged.
func (img *Image) ToRGBA() (image.Image, error) {
	if img.Pix8 == nil {
		return nil, fmt.Errorf("codec: ToRGBA requires an 8-bit image")
	}
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	switch img.Channels {
	case 4:
		copy(out.Pix, img.Pix8)
	case 3:
		for i, j := 0, 0; i < len(img.Pix8); i, j = i+3, j+4 {
			out.Pix[j] = img.Pix8[i]
			out.Pix[j+1] = img.Pix8[i+1]
			out.Pix[j+2] = img.Pix8[i+2]
			out.Pix[j+3] = 255
		}
	case 1:
		for i, j := 0, 0; i < len(img.Pix8); i, j = i+1, j+4 {
			v := img.Pix8[i]
			out.Pix[j], out.Pix[j+1], out.Pix[j+2], out.Pix[j+3] = v, v, v, 255
		}
	default:
		return nil, fmt.Errorf("codec: unsupported channel count %d", img.Channels)
	}
	return out, nil
}

// FromStdImage converts a stdlib image.Image (always RGBA-ish) into our
// pixel-interleaved 8-bit Image, preserving channel count. Samples are read
// non-premultiplied, matching ToRGBA.
func FromStdImage(src image.Image, channels int) *Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := NewImage8(w, h, channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			idx := (y*w + x) * channels
			switch channels {
			case 1:
				out.Pix8[idx] = c.R
			case 3:
				out.Pix8[idx] = c.R
				out.Pix8[idx+1] = c.G
				out.Pix8[idx+2] = c.B
			default: // 4
				out.Pix8[idx] = c.R
				out.Pix8[idx+1] = c.G
				out.Pix8[idx+2] = c.B
				out.Pix8[idx+3] = c.A
			}
		}
	}
	return out
}

// Decoder decodes a full encoded tile into a raw pixel buffer (spec §4.4).
type Decoder interface {
	Decode(encoded []byte) (*Image, error)
}

// Encoder is a pull stream producing an encoded image (spec §4.4). A short
// read does not imply EOF; callers loop until Eof() is true. MinReadBuffer
// documents the smallest buffer the encoder is guaranteed to make forward
// progress with per call (spec §9 Open Question); encoders that don't
// require a minimum return 1.
type Encoder interface {
	// Reset prepares the encoder to stream img from the beginning.
	Reset(img *Image) error
	// Read writes into buf, returning the number of bytes written. A
	// return of 0 with Eof()==false means the encoder needs a larger
	// buffer to make progress (spec §4.4, JPEG/PNG library re-entry rule).
	Read(buf []byte) (int, error)
	Eof() bool
	Mime() string
	HTTPStatus() int
	MinReadBuffer() int
}

// DecoderFor returns the Decoder for a pyramid Format.
func DecoderFor(f catalog.Format) (Decoder, error) {
	switch f {
	case catalog.FormatJPEG:
		return jpegDecoder{}, nil
	case catalog.FormatPNG:
		return pngDecoder{}, nil
	case catalog.FormatTIFF:
		return tiffDecoder{}, nil
	case catalog.FormatBIL:
		return bilDecoder{}, nil
	case catalog.FormatWebP:
		return webpDecoder{}, nil
	default:
		return nil, fmt.Errorf("codec: unsupported decode format %q", f)
	}
}

// EncoderFor returns a fresh Encoder for a pyramid Format. quality is used
// by lossy formats (JPEG, WebP) and ignored otherwise.
func EncoderFor(f catalog.Format, quality int) (Encoder, error) {
	switch f {
	case catalog.FormatJPEG:
		return &JPEGEncoder{Quality: quality}, nil
	case catalog.FormatPNG:
		return &PNGEncoder{}, nil
	case catalog.FormatTIFF:
		return &TIFFEncoder{}, nil
	case catalog.FormatBIL:
		return &BILEncoder{}, nil
	case catalog.FormatWebP:
		return &WebPEncoder{Quality: quality}, nil
	default:
		return nil, fmt.Errorf("codec: unsupported encode format %q", f)
	}
}

// bufferedStream is the common pull-stream state shared by every encoder:
// Reset builds the whole output in memory (PNG/JPEG/WebP via their
// stdlib-or-wrapper one-shot APIs, TIFF/BIL by direct byte assembly in
// tiff.go and bil.go) and Read then hands it out incrementally.
type bufferedStream struct {
	buf    bytes.Buffer
	status int
}

func (s *bufferedStream) Read(p []byte) (int, error) {
	n, err := s.buf.Read(p)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

func (s *bufferedStream) Eof() bool {
	return s.buf.Len() == 0
}

func (s *bufferedStream) HTTPStatus() int {
	if s.status == 0 {
		return 200
	}
	return s.status
}
