package state

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/hardware/backlight"
	"github.com/serverdeck/serverdeck/hardware/display"
	"github.com/serverdeck/serverdeck/hardware/touch"
	"github.com/serverdeck/serverdeck/helpers"
	"github.com/serverdeck/serverdeck/internal/config"
)

var DefaultDisplaySize = image.Point{X: 320, Y: 240}

type hardware struct {
	Display struct {
		once
		d *display.Display
	}
	Backlight struct {
		once
		b backlight.Backlight
	}
	Touch struct {
		once
		q *touch.Queue
	}
}

// Display opens configured display with backlight attached.
func (g *Global) Display() (*display.Display, error) {
	x := &g.Hardware.Display // short alias
	_ = x.do(func() error {
		if x.d != nil { // state-new testing mode
			return nil
		}
		cfg := &g.Config.Display
		switch cfg.Driver {
		case "", config.DisplayFramebuffer:
			dev := cfg.Device
			if dev == "" {
				dev = "/dev/fb0"
			}
			x.d, x.err = display.NewFb(dev, cfg.Rotate)
			if x.err != nil {
				return x.err
			}

		case config.DisplayMock:
			x.d = display.NewMock(ConfigSize(cfg))

		default:
			x.err = errors.NotSupportedf("config: display.driver=%s valid: framebuffer, mock", cfg.Driver)
			return x.err
		}

		bl, err := g.Backlight()
		if err != nil {
			return err
		}
		if _, none := bl.(backlight.None); !none {
			x.d.WithBacklight(bl)
		}
		g.Log.Debugf("display driver=%s size=%v", cfg.Driver, x.d.Bounds().Size())
		return nil
	})
	return x.d, x.err
}

// ConfigSize is display size from config, default 320x240.
func ConfigSize(cfg *config.DisplayConfig) image.Point {
	size := DefaultDisplaySize
	if cfg.Width > 0 && cfg.Height > 0 {
		size = image.Point{X: cfg.Width, Y: cfg.Height}
	}
	return size
}

func (g *Global) Backlight() (backlight.Backlight, error) {
	x := &g.Hardware.Backlight
	_ = x.do(func() error {
		if x.b != nil {
			return nil
		}
		x.b, x.err = backlight.New(g.Config.Backlight)
		x.err = errors.Annotatef(x.err, "config: backlight=%#v", g.Config.Backlight)
		return x.err
	})
	return x.b, x.err
}

// Touch starts configured touch source and returns event queue.
// With touch driver none the queue stays empty.
func (g *Global) Touch() (*touch.Queue, error) {
	x := &g.Hardware.Touch
	_ = x.do(func() error {
		if x.q != nil {
			return nil
		}
		d, err := g.Display()
		if err != nil {
			return err
		}
		q := touch.NewQueue(g.Log, touch.DefaultQueueSize, g.Alive.StopChan())
		q.SetTransform(g.Config.Touch.Transform(d.Bounds().Size()))

		src, err := touch.New(g.Config.Touch)
		if err != nil {
			x.err = errors.Annotatef(err, "config: touch=%#v", g.Config.Touch)
			return x.err
		}
		if src == nil {
			g.Log.Infof("touch input disabled")
		} else {
			g.Log.Debugf("touch source=%s", src.String())
		}
		q.Run([]touch.Source{src})
		x.q = q
		return nil
	})
	return x.q, x.err
}

// CloseHardware leaves backlight on and releases devices.
// Display closes attached backlight.
func (g *Global) CloseHardware() error {
	x := &g.Hardware.Display
	if !x.done() || x.d == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if err := x.d.SetBacklight(true); err != nil {
		errs = append(errs, errors.Annotate(err, "backlight on"))
	}
	errs = append(errs, x.d.Close())
	return helpers.FoldErrors(errs)
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
