package codec

import (
	"bytes"
	"testing"

	"github.com/rok4/tileserver/internal/catalog"
)

// testImage builds an 8-bit gradient pattern, grounded on the teacher's
// internal/encode/encoder_test.go testImage helper.
func testImage(w, h, channels int) *Image {
	img := NewImage8(w, h, channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := (y*w + x) * channels
			for c := 0; c < channels; c++ {
				img.Pix8[idx+c] = uint8((x + y + c*37) % 256)
			}
		}
	}
	return img
}

func drain(t *testing.T, enc Encoder, img *Image) []byte {
	t.Helper()
	if err := enc.Reset(img); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	var out bytes.Buffer
	buf := make([]byte, 4096)
	for !enc.Eof() {
		n, err := enc.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		out.Write(buf[:n])
		if n == 0 && !enc.Eof() {
			t.Fatalf("encoder stalled: 0 bytes written before eof")
		}
	}
	return out.Bytes()
}

func TestPNGRoundTrip(t *testing.T) {
	img := testImage(17, 13, 4)
	enc := &PNGEncoder{}
	data := drain(t, enc, img)

	dec := pngDecoder{}
	got, err := dec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Width != img.Width || got.Height != img.Height {
		t.Fatalf("dims = %dx%d, want %dx%d", got.Width, got.Height, img.Width, img.Height)
	}
	if !bytes.Equal(got.Pix8, img.Pix8) {
		t.Errorf("PNG round trip not byte-identical (spec §8 lossless property)")
	}
}

func TestTIFFRoundTrip(t *testing.T) {
	for _, channels := range []int{1, 3, 4} {
		img := testImage(9, 5, channels)
		enc := &TIFFEncoder{}
		data := drain(t, enc, img)

		dec := tiffDecoder{}
		got, err := dec.Decode(data)
		if err != nil {
			t.Fatalf("channels=%d Decode: %v", channels, err)
		}
		if got.Width != img.Width || got.Height != img.Height || got.Channels != img.Channels {
			t.Fatalf("channels=%d dims = %dx%dx%d, want %dx%dx%d",
				channels, got.Width, got.Height, got.Channels, img.Width, img.Height, img.Channels)
		}
		if !bytes.Equal(got.Pix8, img.Pix8) {
			t.Errorf("channels=%d TIFF round trip not byte-identical", channels)
		}
	}
}

func TestBILRoundTrip(t *testing.T) {
	img := testImage(8, 4, 3)
	enc := &BILEncoder{}
	data := drain(t, enc, img)

	got, err := DecodeBILInto(data, img.Width, img.Height, img.Channels, false)
	if err != nil {
		t.Fatalf("DecodeBILInto: %v", err)
	}
	if !bytes.Equal(got.Pix8, img.Pix8) {
		t.Errorf("BIL round trip not byte-identical")
	}
}

func TestEncoderForUnsupportedFormat(t *testing.T) {
	if _, err := EncoderFor(catalog.Format("image/does-not-exist"), 85); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestJPEGMinReadBuffer(t *testing.T) {
	enc := &JPEGEncoder{Quality: 85}
	if enc.MinReadBuffer() != 1024 {
		t.Errorf("JPEG MinReadBuffer = %d, want 1024 (spec §9 open question)", enc.MinReadBuffer())
	}
}
