// Package screencap decodes the raw framebuffer dump produced by Android's
// screencap tool.
package screencap

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/lunixbochs/struc"
)

// MaxDimension bounds each side of a frame; larger headers are treated as corrupt.
const MaxDimension = 16384

const headerSize = 16

var errTrailingData = errors.New("unexpected data after pixels")

type header struct {
	Width    int32 `struc:"int32,little"`
	Height   int32 `struc:"int32,little"`
	Format   int32 `struc:"int32,little"`
	Reserved int32 `struc:"int32,little"`
}

// Frame is a decoded screen capture. Pix holds one 0xRRGGBB value per pixel,
// row-major from the top-left corner.
type Frame struct {
	Width  int
	Height int
	Format int32
	Pix    []uint32
}

// Decode reads one raw capture: a 16 byte little-endian header followed by
// width*height RGBA quads. Alpha is dropped. The stream must end right after
// the last pixel.
func Decode(r io.Reader) (*Frame, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var h header
	if err := struc.UnpackWithOptions(br, &h, &struc.Options{Order: binary.LittleEndian}); err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	if h.Width <= 0 || h.Height <= 0 || h.Width > MaxDimension || h.Height > MaxDimension {
		return nil, fmt.Errorf("invalid capture dimensions %dx%d", h.Width, h.Height)
	}

	width, height := int(h.Width), int(h.Height)
	raw := make([]byte, width*height*4)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("failed to read %dx%d pixels: %w", width, height, err)
	}

	var extra [1]byte
	if n, _ := br.Read(extra[:]); n > 0 {
		return nil, errTrailingData
	}

	pix := make([]uint32, width*height)
	for i := range pix {
		p := raw[i*4 : i*4+4]
		pix[i] = uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	}

	return &Frame{Width: width, Height: height, Format: h.Format, Pix: pix}, nil
}

// RGBAt returns the 0xRRGGBB value at (x, y).
func (f *Frame) RGBAt(x, y int) uint32 {
	return f.Pix[y*f.Width+x]
}

func (f *Frame) ColorAt(x, y int) color.RGBA {
	v := f.RGBAt(x, y)
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(f.Bounds())) {
		return color.RGBA{}
	}
	return f.ColorAt(x, y)
}
