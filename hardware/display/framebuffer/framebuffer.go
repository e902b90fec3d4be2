// Package framebuffer writes RGBA images to Linux /dev/fbN devices.
// fbtft drivers (ST7789, ILI9341) expose small SPI panels this way.
package framebuffer

import (
	"encoding/binary"
	"image"
	"os"
	"unsafe"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/helpers"
	"golang.org/x/sys/unix"
)

type Framebuffer struct {
	buf   []byte
	dev   *os.File
	finfo fixedScreenInfo
	vinfo variableScreenInfo
}

func New(dev string) (*Framebuffer, error) {
	devFile, err := os.OpenFile(dev, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, errors.Annotate(err, "open")
	}
	fb := &Framebuffer{dev: devFile}
	fd := fb.dev.Fd()

	if err = ioctl(fd, getFixedScreenInfo, uintptr(unsafe.Pointer(&fb.finfo))); err != nil {
		fb.dev.Close()
		return nil, errors.Annotate(err, "getFixedScreenInfo")
	}

	if err = ioctl(fd, getVariableScreenInfo, uintptr(unsafe.Pointer(&fb.vinfo))); err != nil {
		fb.dev.Close()
		return nil, errors.Annotate(err, "getVariableScreenInfo")
	}
	if !fb.supported() {
		fb.dev.Close()
		return nil, errors.NotSupportedf("color model bpp=%d red=%v green=%v blue=%v",
			fb.vinfo.Bits_per_pixel, fb.vinfo.Red, fb.vinfo.Green, fb.vinfo.Blue)
	}

	stride := fb.finfo.Line_length
	if stride == 0 {
		stride = fb.vinfo.Xres * (fb.vinfo.Bits_per_pixel / 8)
	}
	fb.finfo.Line_length = stride
	fb.buf = make([]byte, stride*fb.vinfo.Yres)

	return fb, nil
}

func (fb *Framebuffer) Close() error {
	return fb.dev.Close()
}

func (fb *Framebuffer) Flush() error {
	if _, err := fb.dev.Seek(0, 0); err != nil {
		return errors.Annotate(err, "framebuffer seek")
	}
	return errors.Annotate(helpers.WriteAll(fb.dev, fb.buf), "framebuffer write")
}

func (fb *Framebuffer) Size() image.Point {
	return image.Point{X: int(fb.vinfo.Xres), Y: int(fb.vinfo.Yres)}
}

// Blank powers panel down or up. Not all drivers implement it, caller should tolerate errors.
func (fb *Framebuffer) Blank(off bool) error {
	mode := uintptr(blankUnblank)
	if off {
		mode = blankPowerdown
	}
	return ioctl(fb.dev.Fd(), fbBlank, mode)
}

// Sets all pixels in internal buffer, call Flush() to write to hardware.
// img must be exactly Size().
func (fb *Framebuffer) Update(img *image.RGBA) error {
	size := fb.Size()
	if img.Rect.Dx() != size.X || img.Rect.Dy() != size.Y {
		return errors.NotValidf("image size=%s framebuffer size=%s", img.Rect.Size(), size)
	}
	encodeRows(fb.buf, int(fb.finfo.Line_length), fb.format(), img)
	return nil
}

type pixelFormat uint8

const (
	formatUnknown pixelFormat = iota
	formatRGB565
	formatXRGB8888
)

var rgb565 = variableScreenInfo{
	Red:   bitField{Offset: 11, Length: 5},
	Green: bitField{Offset: 5, Length: 6},
	Blue:  bitField{Offset: 0, Length: 5},
}

var xrgb8888 = variableScreenInfo{
	Red:   bitField{Offset: 16, Length: 8},
	Green: bitField{Offset: 8, Length: 8},
	Blue:  bitField{Offset: 0, Length: 8},
}

func (fb *Framebuffer) format() pixelFormat {
	v := &fb.vinfo
	switch {
	case v.Bits_per_pixel == 16 && v.Red == rgb565.Red && v.Green == rgb565.Green && v.Blue == rgb565.Blue:
		return formatRGB565
	case v.Bits_per_pixel == 32 && v.Red == xrgb8888.Red && v.Green == xrgb8888.Green && v.Blue == xrgb8888.Blue:
		return formatXRGB8888
	}
	return formatUnknown
}

func (fb *Framebuffer) supported() bool { return fb.format() != formatUnknown }

func encodeRows(dst []byte, stride int, format pixelFormat, img *image.RGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := dst[y*stride:]
		src := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			r, g, b := src[x*4], src[x*4+1], src[x*4+2]
			switch format {
			case formatRGB565:
				binary.BigEndian.PutUint16(row[x*2:], encode565(r, g, b))
			case formatXRGB8888:
				binary.LittleEndian.PutUint32(row[x*4:], uint32(r)<<16|uint32(g)<<8|uint32(b))
			}
		}
	}
}

func encode565(r, g, b uint8) uint16 {
	return (uint16(r) & 0xf8 << 8) | (uint16(g) & 0xfc << 3) | (uint16(b) & 0xf8 >> 3)
}

func ioctl(fd uintptr, cmd uintptr, data uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, data); errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}
