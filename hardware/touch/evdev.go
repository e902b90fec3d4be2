package touch

import (
	"io"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/internal/types"
	"github.com/temoto/inputevent-go"
)

// linux/input-event-codes.h
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	btnTouch = 0x14a

	absX            = 0x00
	absY            = 0x01
	absMtPositionX  = 0x35
	absMtPositionY  = 0x36
	absMtTrackingID = 0x39
)

const EvdevTag = "evdev"

type Evdev struct {
	f     io.ReadCloser
	dev   string
	state evdevState
}

var _ Source = new(Evdev)

func NewEvdev(device string) (*Evdev, error) {
	if device == "" {
		return nil, errors.NotValidf("evdev device empty")
	}
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Annotatef(err, "evdev open device=%s", device)
	}
	return &Evdev{f: f, dev: device}, nil
}

func (self *Evdev) String() string { return EvdevTag + ":" + self.dev }
func (self *Evdev) Close() error   { return self.f.Close() }

func (self *Evdev) Read() (types.TouchEvent, error) {
	for {
		ie, err := inputevent.ReadOne(self.f)
		if err != nil {
			return types.TouchEvent{}, err
		}
		if e, ok := self.state.feed(ie, time.Now()); ok {
			return e, nil
		}
	}
}

// evdevState accumulates axis and contact changes until SYN_REPORT.
type evdevState struct {
	x, y     int
	touching bool
	was      bool
	lastX    int
	lastY    int
}

func (s *evdevState) feed(ie inputevent.InputEvent, now time.Time) (types.TouchEvent, bool) {
	switch ie.Type {
	case evAbs:
		switch ie.Code {
		case absX, absMtPositionX:
			s.x = int(ie.Value)
		case absY, absMtPositionY:
			s.y = int(ie.Value)
		case absMtTrackingID:
			s.touching = ie.Value >= 0
		}
	case evKey:
		if ie.Code == btnTouch {
			s.touching = ie.Value != int32(inputevent.KeyStateUp)
		}
	case evSyn:
		if ie.Code != synReport {
			return types.TouchEvent{}, false
		}
		return s.report(now)
	}
	return types.TouchEvent{}, false
}

func (s *evdevState) report(now time.Time) (types.TouchEvent, bool) {
	e := types.TouchEvent{X: s.x, Y: s.y, Time: now}
	switch {
	case s.touching && !s.was:
		e.Phase = types.TouchDown
	case s.touching && s.was && (s.x != s.lastX || s.y != s.lastY):
		e.Phase = types.TouchMove
	case !s.touching && s.was:
		e.Phase = types.TouchUp
	default:
		return types.TouchEvent{}, false
	}
	s.was = s.touching
	s.lastX, s.lastY = s.x, s.y
	return e, true
}
