// Package touch reads touchscreen controllers and queues events for the UI loop.
package touch

import (
	"image"
	"io"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/helpers"
	"github.com/serverdeck/serverdeck/internal/types"
	"github.com/serverdeck/serverdeck/log2"
)

const (
	DriverNone   = "none"
	DriverEvdev  = "evdev"
	DriverCST816 = "cst816"

	DefaultQueueSize = 32

	DefaultRetryMin = 100 * time.Millisecond
	DefaultRetryMax = 5 * time.Second
)

type Source interface {
	// Read blocks until next touch event.
	Read() (types.TouchEvent, error)
	String() string
}

type Config struct {
	Driver  string `hcl:"driver" yaml:"driver"`
	Device  string `hcl:"device" yaml:"device"`     // evdev: /dev/input/eventN
	I2CBus  string `hcl:"i2c_bus" yaml:"i2c_bus"`   // cst816: periph bus name, "1" for /dev/i2c-1
	I2CAddr int    `hcl:"i2c_addr" yaml:"i2c_addr"` // 7-bit, 0 = controller default
	SwapXY  bool   `hcl:"swap_xy" yaml:"swap_xy"`
	InvertX bool   `hcl:"invert_x" yaml:"invert_x"`
	InvertY bool   `hcl:"invert_y" yaml:"invert_y"`
	MaxX    int    `hcl:"max_x" yaml:"max_x"`
	MaxY    int    `hcl:"max_y" yaml:"max_y"`
}

// New opens configured source. Nil Source with nil error means no touch input.
func New(c Config) (Source, error) {
	switch c.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverEvdev:
		return NewEvdev(c.Device)
	case DriverCST816:
		if c.I2CAddr < 0 || c.I2CAddr > 0x7f {
			return nil, errors.NotValidf("touch i2c_addr=%d", c.I2CAddr)
		}
		return NewCST816(c.I2CBus, uint16(c.I2CAddr))
	}
	return nil, errors.NotSupportedf("touch driver=%s", c.Driver)
}

// Transform maps controller coordinates to screen pixels.
// MaxX, MaxY are ranges of controller axes, zero means axis already in pixels.
type Transform struct {
	Screen  image.Point
	SwapXY  bool
	InvertX bool
	InvertY bool
	MaxX    int
	MaxY    int
}

func (c Config) Transform(screen image.Point) Transform {
	return Transform{
		Screen:  screen,
		SwapXY:  c.SwapXY,
		InvertX: c.InvertX,
		InvertY: c.InvertY,
		MaxX:    c.MaxX,
		MaxY:    c.MaxY,
	}
}

func (t Transform) Apply(x, y int) (int, int) {
	mx, my := t.MaxX, t.MaxY
	if t.SwapXY {
		x, y = y, x
		mx, my = my, mx
	}
	w, h := t.Screen.X, t.Screen.Y
	if mx > 0 {
		x = x * (w - 1) / mx
	}
	if my > 0 {
		y = y * (h - 1) / my
	}
	if t.InvertX {
		x = w - 1 - x
	}
	if t.InvertY {
		y = h - 1 - y
	}
	return helpers.Clamp(x, 0, max(w-1, 0)), helpers.Clamp(y, 0, max(h-1, 0))
}

func (t Transform) Event(e types.TouchEvent) types.TouchEvent {
	e.X, e.Y = t.Apply(e.X, e.Y)
	return e
}

// Queue collects events from sources, each source read in own goroutine.
// Poll never blocks. When buffer is full oldest event is dropped.
type Queue struct {
	Log       *log2.Log
	transform *Transform
	mu        sync.Mutex
	buf       []types.TouchEvent
	size      int
	dropped   uint64
	stop      <-chan struct{}
	wg        sync.WaitGroup
	// read errors other than io.EOF are retried with backoff
	Retry helpers.Backoff
}

func NewQueue(log *log2.Log, size int, stop <-chan struct{}) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		Log:  log,
		buf:  make([]types.TouchEvent, 0, size),
		size: size,
		stop: stop,
		Retry: helpers.Backoff{
			Min: DefaultRetryMin,
			Max: DefaultRetryMax,
			K:   2,
		},
	}
}

func (self *Queue) SetTransform(t Transform) { self.transform = &t }

func (self *Queue) Run(sources []Source) {
	for _, source := range sources {
		if source == nil {
			continue
		}
		self.wg.Add(1)
		go self.readSource(source)
	}
}

// Wait returns after all source goroutines exit.
func (self *Queue) Wait() { self.wg.Wait() }

func (self *Queue) Emit(event types.TouchEvent) {
	if self.transform != nil {
		event = self.transform.Event(event)
	}
	self.mu.Lock()
	if len(self.buf) >= self.size {
		copy(self.buf, self.buf[1:])
		self.buf = self.buf[:len(self.buf)-1]
		self.dropped++
		self.Log.Debugf("touch queue full, dropped=%d", self.dropped)
	}
	self.buf = append(self.buf, event)
	self.mu.Unlock()
}

func (self *Queue) Poll() (types.TouchEvent, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.buf) == 0 {
		return types.TouchEvent{}, false
	}
	e := self.buf[0]
	copy(self.buf, self.buf[1:])
	self.buf = self.buf[:len(self.buf)-1]
	return e, true
}

// PollTouch satisfies types.TouchPoller.
func (self *Queue) PollTouch() (types.TouchEvent, bool) { return self.Poll() }

func (self *Queue) readSource(source Source) {
	defer self.wg.Done()
	tag := source.String()
	backoff := self.Retry
	for {
		event, err := source.Read()
		select {
		case <-self.stop:
			return
		default:
		}
		if err == io.EOF {
			self.Log.Debugf("touch source=%s closed", tag)
			return
		}
		if err != nil {
			delay := backoff.Failure()
			err = errors.Annotatef(err, "touch source=%s retry in %v", tag, delay)
			self.Log.Error(errors.ErrorStack(err))
			select {
			case <-self.stop:
				return
			case <-time.After(delay):
			}
			continue
		}
		backoff.Reset()
		self.Log.Debugf("touch source=%s event=%s", tag, event)
		self.Emit(event)
	}
}
