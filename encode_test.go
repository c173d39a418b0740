package vkc

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodePNGRoundTrip(t *testing.T) {
	const w, h = 4, 2

	pixels := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pixels[i*4+0] = byte(i * 16)
		pixels[i*4+1] = byte(255 - i*16)
		pixels[i*4+2] = 7
		pixels[i*4+3] = 255
	}

	path := filepath.Join(t.TempDir(), "out.png")
	if err := EncodePNG(w, h, pixels, path); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening encoded file: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}

	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("decoded size %v, want %dx%d", img.Bounds(), w, h)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			r, g, b, a := img.At(x, y).RGBA()
			if byte(r>>8) != pixels[i] || byte(g>>8) != pixels[i+1] ||
				byte(b>>8) != pixels[i+2] || byte(a>>8) != pixels[i+3] {
				t.Fatalf("pixel (%d,%d) differs after round trip", x, y)
			}
		}
	}
}

func TestEncodePNGLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")

	err := EncodePNG(4, 4, make([]byte, 10), path)
	if !errors.Is(err, ErrEncode) {
		t.Errorf("got %v, want ErrEncode", err)
	}
}

func TestEncodePNGBadPath(t *testing.T) {
	err := EncodePNG(1, 1, make([]byte, 4), filepath.Join(t.TempDir(), "missing", "out.png"))
	if !errors.Is(err, ErrEncode) {
		t.Errorf("got %v, want ErrEncode", err)
	}
}
