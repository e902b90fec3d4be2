package framebuffer

import (
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode565(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  color.RGBA
		expect uint16
	}{
		{color.RGBA{0, 0, 0, 0}, 0},
		{color.RGBA{0, 0, 0, 0xff}, 0},
		{color.RGBA{0xff, 0xff, 0xff, 0xff}, 0xffff},
		{color.RGBA{0xff, 0x00, 0x00, 0xff}, 0xf800},
		{color.RGBA{0x00, 0xff, 0x00, 0xff}, 0x07e0},
		{color.RGBA{0x00, 0x00, 0xff, 0xff}, 0x001f},
		{color.RGBA{0x0c, 0x0c, 0x0c, 0xff}, 0x0861},
		// low bits dropped
		{color.RGBA{0x07, 0x03, 0x07, 0xff}, 0},
		{color.RGBA{0x08, 0x04, 0x08, 0xff}, 0x0821},
		// alpha ignored
		{color.RGBA{0xff, 0x80, 0x00, 0x00}, 0xfc00},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, encode565(c.input.R, c.input.G, c.input.B), "color=%v", c.input)
	}
}

func TestEncodeXRGB8888(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  color.RGBA
		expect uint32
	}{
		{color.RGBA{0, 0, 0, 0xff}, 0},
		{color.RGBA{0xff, 0xff, 0xff, 0xff}, 0x00ffffff},
		{color.RGBA{0xff, 0x00, 0x00, 0xff}, 0x00ff0000},
		{color.RGBA{0x00, 0xff, 0x00, 0xff}, 0x0000ff00},
		{color.RGBA{0x00, 0x00, 0xff, 0xff}, 0x000000ff},
		{color.RGBA{0x12, 0x34, 0x56, 0x00}, 0x00123456},
	}
	for _, c := range cases {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.SetRGBA(0, 0, c.input)
		buf := make([]byte, 4)
		encodeRows(buf, 4, formatXRGB8888, img)
		assert.Equal(t, c.expect, binary.LittleEndian.Uint32(buf), "color=%v", c.input)
		assert.Equal(t, c.input.B, buf[0], "blue byte first")
	}
}

func TestPixelFormat(t *testing.T) {
	t.Parallel()

	bgr := variableScreenInfo{
		Bits_per_pixel: 32,
		Red:            xrgb8888.Blue,
		Green:          xrgb8888.Green,
		Blue:           xrgb8888.Red,
	}
	cases := []struct {
		name   string
		vinfo  variableScreenInfo
		expect pixelFormat
	}{
		{"rgb565", variableScreenInfo{Bits_per_pixel: 16, Red: rgb565.Red, Green: rgb565.Green, Blue: rgb565.Blue}, formatRGB565},
		{"xrgb8888", variableScreenInfo{Bits_per_pixel: 32, Red: xrgb8888.Red, Green: xrgb8888.Green, Blue: xrgb8888.Blue}, formatXRGB8888},
		{"565-at-32bpp", variableScreenInfo{Bits_per_pixel: 32, Red: rgb565.Red, Green: rgb565.Green, Blue: rgb565.Blue}, formatUnknown},
		{"bgr", bgr, formatUnknown},
	}
	for _, c := range cases {
		fb := &Framebuffer{vinfo: c.vinfo}
		assert.Equal(t, c.expect, fb.format(), c.name)
		assert.Equal(t, c.expect != formatUnknown, fb.supported(), c.name)
	}
}
