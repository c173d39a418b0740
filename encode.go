package vkc

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// EncodePNG writes tightly packed RGBA pixel data to a PNG file. The pixel
// slice must hold exactly width*height*4 bytes. Failures wrap ErrEncode.
func EncodePNG(width, height int, pixels []byte, path string) error {
	if want := width * height * 4; len(pixels) != want {
		return fmt.Errorf("%w: have %d bytes of pixel data, %dx%d RGBA needs %d",
			ErrEncode, len(pixels), width, height, want)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pixels)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return nil
}
