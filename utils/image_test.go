package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	return img
}

func TestEncodeImage_PNG(t *testing.T) {
	data, err := EncodeImage(testImage(16, 8), "png", 0)
	if err != nil {
		t.Fatalf("EncodeImage() error = %v", err)
	}

	out, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not valid PNG: %v", err)
	}
	if got := out.At(3, 2); got != (color.RGBA{3, 2, 0, 255}) && got != (color.NRGBA{3, 2, 0, 255}) {
		t.Errorf("pixel (3,2) = %v", got)
	}
}

func TestEncodeImage_JPEG(t *testing.T) {
	w := 32
	h := 32

	for _, quality := range []int{90, 0, 500} {
		data, err := EncodeImage(testImage(w, h), "JPEG", quality)
		if err != nil {
			t.Fatalf("EncodeImage() error = %v", err)
		}

		out, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Output is not valid JPEG: %v", err)
		}
		if out.Bounds().Dx() != w || out.Bounds().Dy() != h {
			t.Errorf("Output is not %dx%d: %v", w, h, out.Bounds())
		}
	}
}

func TestEncodeImage_InvalidFormat(t *testing.T) {
	if _, err := EncodeImage(testImage(1, 1), "gif", 0); err == nil {
		t.Error("expected an error for gif")
	}
}
