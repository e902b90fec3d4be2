package touch

import (
	"time"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/internal/types"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

const (
	CST816Tag         = "cst816"
	CST816DefaultAddr = 0x15
	CST816PollDelay   = 20 * time.Millisecond

	cst816RegPoints = 0x02
	cst816RegXY     = 0x03
)

type txer interface {
	Tx(w, r []byte) error
}

// CST816 polls capacitive touch controller found on Waveshare round and 1.69" panels.
type CST816 struct {
	bus   i2c.BusCloser
	dev   txer
	delay time.Duration
	next  time.Time
	state contactState
}

var _ Source = new(CST816)

func NewCST816(busName string, addr uint16) (*CST816, error) {
	if addr == 0 {
		addr = CST816DefaultAddr
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Annotatef(err, "I2C open bus=%s", busName)
	}
	return &CST816{
		bus:   bus,
		dev:   &i2c.Dev{Bus: bus, Addr: addr},
		delay: CST816PollDelay,
	}, nil
}

func (self *CST816) String() string { return CST816Tag }

func (self *CST816) Close() error {
	if self.bus != nil {
		return self.bus.Close()
	}
	return nil
}

func (self *CST816) Read() (types.TouchEvent, error) {
	for {
		if d := time.Until(self.next); d > 0 {
			time.Sleep(d)
		}
		self.next = time.Now().Add(self.delay)

		present, x, y, err := self.sample()
		if err != nil {
			return types.TouchEvent{}, err
		}
		if e, ok := self.state.update(present, x, y, time.Now()); ok {
			return e, nil
		}
	}
}

func (self *CST816) sample() (bool, int, int, error) {
	var count [1]byte
	if err := self.dev.Tx([]byte{cst816RegPoints}, count[:]); err != nil {
		return false, 0, 0, errors.Annotate(err, "read points")
	}
	if count[0]&0x0f == 0 {
		return false, 0, 0, nil
	}
	var buf [4]byte
	if err := self.dev.Tx([]byte{cst816RegXY}, buf[:]); err != nil {
		return false, 0, 0, errors.Annotate(err, "read xy")
	}
	x := int(buf[0]&0x0f)<<8 | int(buf[1])
	y := int(buf[2]&0x0f)<<8 | int(buf[3])
	return true, x, y, nil
}

// contactState derives down/move/up from contact presence samples.
type contactState struct {
	touching bool
	x, y     int
}

func (s *contactState) update(present bool, x, y int, now time.Time) (types.TouchEvent, bool) {
	switch {
	case present && !s.touching:
		s.touching, s.x, s.y = true, x, y
		return types.TouchEvent{X: x, Y: y, Phase: types.TouchDown, Time: now}, true
	case present && (x != s.x || y != s.y):
		s.x, s.y = x, y
		return types.TouchEvent{X: x, Y: y, Phase: types.TouchMove, Time: now}, true
	case !present && s.touching:
		s.touching = false
		// controller reports no coordinates on release, use last known
		return types.TouchEvent{X: s.x, Y: s.y, Phase: types.TouchUp, Time: now}, true
	}
	return types.TouchEvent{}, false
}
