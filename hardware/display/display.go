// Package display presents rendered frames on a panel.
package display

import (
	"image"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/hardware/display/framebuffer"
)

type Backlight interface {
	Set(on bool) error
	Close() error
}

type Display struct {
	mu     sync.Mutex
	fb     *framebuffer.Framebuffer
	bl     Backlight
	dev    *image.RGBA // device orientation
	last   *image.RGBA // logical orientation, as presented
	rotate int
	size   image.Point // logical
}

func NewFb(dev string, rotate int) (*Display, error) {
	if !ValidRotation(rotate) {
		return nil, errors.NotValidf("rotate=%d", rotate)
	}
	fb, err := framebuffer.New(dev)
	if err != nil {
		return nil, errors.Annotatef(err, "framebuffer device=%s", dev)
	}
	devSize := fb.Size()
	d := &Display{
		fb:     fb,
		dev:    image.NewRGBA(image.Rectangle{Max: devSize}),
		rotate: rotate,
		size:   logicalSize(devSize, rotate),
	}
	return d, nil
}

func NewMock(size image.Point) *Display {
	return &Display{
		dev:  image.NewRGBA(image.Rectangle{Max: size}),
		size: size,
	}
}

func ValidRotation(r int) bool { return r == 0 || r == 90 || r == 180 || r == 270 }

// WithBacklight attaches backlight control, nil means framebuffer blanking.
func (d *Display) WithBacklight(bl Backlight) *Display {
	d.bl = bl
	return d
}

func (d *Display) Bounds() image.Rectangle { return image.Rectangle{Max: d.size} }

func (d *Display) Present(frame *image.RGBA) error {
	if frame.Rect.Size() != d.size {
		return errors.NotValidf("frame size=%s display size=%s", frame.Rect.Size(), d.size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		d.last = image.NewRGBA(d.Bounds())
	}
	copy(d.last.Pix, frame.Pix)
	rotateInto(d.dev, frame, d.rotate)
	return d.flush()
}

func (d *Display) SetBacklight(on bool) error {
	if d.bl != nil {
		return errors.Annotate(d.bl.Set(on), "backlight")
	}
	if d.fb != nil {
		return errors.Annotate(d.fb.Blank(!on), "framebuffer blank")
	}
	return nil
}

func (d *Display) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.dev.Pix {
		d.dev.Pix[i] = 0
	}
	for i := 3; i < len(d.dev.Pix); i += 4 {
		d.dev.Pix[i] = 0xff
	}
	d.last = nil
	return d.flush()
}

func (d *Display) Close() error {
	var err error
	if d.bl != nil {
		err = d.bl.Close()
	}
	if d.fb != nil {
		if e := d.fb.Close(); e != nil {
			err = e
		}
	}
	return err
}

// Last returns copy of last presented frame or nil.
func (d *Display) Last() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return nil
	}
	img := image.NewRGBA(d.last.Rect)
	copy(img.Pix, d.last.Pix)
	return img
}

// String2 renders device buffer as text, two characters per pixel, black is blank.
func (d *Display) String2() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	size := d.dev.Rect.Size()
	b := strings.Builder{}
	b.Grow((size.X*2 + 1) * size.Y) // +1 for \n
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			c := d.dev.RGBAAt(x, y)
			if c.R == 0 && c.G == 0 && c.B == 0 {
				b.WriteString("  ")
			} else {
				b.WriteString("██")
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func (d *Display) flush() error {
	if d.fb != nil {
		if err := d.fb.Update(d.dev); err != nil {
			return err
		}
		return d.fb.Flush()
	}
	return nil
}

func logicalSize(dev image.Point, rotate int) image.Point {
	if rotate == 90 || rotate == 270 {
		return image.Point{X: dev.Y, Y: dev.X}
	}
	return dev
}

// rotateInto copies src into dst turning it clockwise by rotate degrees.
func rotateInto(dst, src *image.RGBA, rotate int) {
	if rotate == 0 {
		copy(dst.Pix, src.Pix)
		return
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch rotate {
			case 90:
				dx, dy = h-1-y, x
			case 180:
				dx, dy = w-1-x, h-1-y
			case 270:
				dx, dy = y, w-1-x
			}
			dst.SetRGBA(dx, dy, src.RGBAAt(x, y))
		}
	}
}
