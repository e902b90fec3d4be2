// Package backlight switches display backlight on and off.
package backlight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
)

const (
	DriverNone  = "none"
	DriverSysfs = "sysfs"
	DriverGpio  = "gpio"

	consumerLabel = "serverdeck-backlight"
)

type Backlight interface {
	Set(on bool) error
	Close() error
}

type Config struct {
	Driver   string `hcl:"driver" yaml:"driver"`
	Path     string `hcl:"path" yaml:"path"` // sysfs: /sys/class/backlight/<name>
	GpioChip string `hcl:"gpio_chip" yaml:"gpio_chip"`
	GpioLine int    `hcl:"gpio_line" yaml:"gpio_line"`
	// ActiveLow gpio line: 0 means light on
	ActiveLow bool `hcl:"active_low" yaml:"active_low"`
}

func New(c Config) (Backlight, error) {
	switch c.Driver {
	case "", DriverNone:
		return None{}, nil
	case DriverSysfs:
		return NewSysfs(c.Path)
	case DriverGpio:
		if c.GpioLine < 0 {
			return nil, errors.NotValidf("backlight gpio_line=%d", c.GpioLine)
		}
		return NewGpio(c.GpioChip, uint32(c.GpioLine), c.ActiveLow)
	}
	return nil, errors.NotSupportedf("backlight driver=%s", c.Driver)
}

type None struct{}

func (None) Set(bool) error { return nil }
func (None) Close() error   { return nil }

// state skips redundant hardware writes.
type state struct {
	mu    sync.Mutex
	known bool
	on    bool
}

func (s *state) set(on bool, f func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known && s.on == on {
		return nil
	}
	if err := f(); err != nil {
		s.known = false
		return err
	}
	s.known, s.on = true, on
	return nil
}

// Sysfs writes bl_power: 0 is FB_BLANK_UNBLANK, 4 is FB_BLANK_POWERDOWN.
type Sysfs struct {
	path string
	st   state
}

func NewSysfs(dir string) (*Sysfs, error) {
	if dir == "" {
		matches, _ := filepath.Glob("/sys/class/backlight/*")
		if len(matches) == 0 {
			return nil, errors.NotFoundf("sysfs backlight")
		}
		dir = matches[0]
	}
	p := filepath.Join(dir, "bl_power")
	if _, err := os.Stat(p); err != nil {
		return nil, errors.Annotatef(err, "backlight path=%s", p)
	}
	return &Sysfs{path: p}, nil
}

func (s *Sysfs) Set(on bool) error {
	return s.st.set(on, func() error {
		v := "4"
		if on {
			v = "0"
		}
		return errors.Annotatef(os.WriteFile(s.path, []byte(v+"\n"), 0), "write %s", s.path)
	})
}
func (s *Sysfs) Close() error { return nil }

func (s *Sysfs) String() string {
	return fmt.Sprintf("sysfs:%s", strings.TrimSuffix(s.path, "/bl_power"))
}

type Gpio struct {
	chip      gpio.Chiper
	lines     gpio.Lineser
	set       gpio.LineSetFunc
	activeLow bool
	st        state
}

var openChip = gpio.Open

func NewGpio(chipName string, line uint32, activeLow bool) (*Gpio, error) {
	chip, err := openChip(chipName, consumerLabel)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio open chip=%s", chipName)
	}
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, consumerLabel, line)
	if err != nil {
		chip.Close()
		return nil, errors.Annotatef(err, "gpio chip=%s line=%d", chipName, line)
	}
	return &Gpio{
		chip:      chip,
		lines:     lines,
		set:       lines.SetFunc(line),
		activeLow: activeLow,
	}, nil
}

func (g *Gpio) Set(on bool) error {
	return g.st.set(on, func() error {
		var v byte
		if on != g.activeLow {
			v = 1
		}
		g.set(v)
		return errors.Annotate(g.lines.Flush(), "gpio flush")
	})
}

func (g *Gpio) Close() error {
	err := g.lines.Close()
	if e := g.chip.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
