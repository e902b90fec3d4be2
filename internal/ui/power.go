package ui

import (
	"fmt"
	"time"

	"github.com/serverdeck/serverdeck/internal/types"
)

type PowerState uint8

const (
	PowerAwake PowerState = iota
	PowerAsleep
)

func (s PowerState) String() string {
	switch s {
	case PowerAwake:
		return "Awake"
	case PowerAsleep:
		return "Asleep"
	}
	return fmt.Sprintf("PowerState(%d)", uint8(s))
}

// Power is display sleep state machine, orthogonal to Navigation.
// Timeout 0 disables sleep.
type Power struct {
	Timeout time.Duration

	state      PowerState
	lastInput  time.Time
	swallowing bool
}

func NewPower(timeout time.Duration, now time.Time) *Power {
	return &Power{Timeout: timeout, lastInput: now}
}

func (self *Power) State() PowerState    { return self.state }
func (self *Power) LastInput() time.Time { return self.lastInput }

// Input registers activity, any phase resets idle timer.
// pass=false means event belongs to the gesture that woke display,
// it must not reach Navigation. woke=true on Asleep->Awake.
func (self *Power) Input(e types.TouchEvent, now time.Time) (pass, woke bool) {
	self.lastInput = now
	if self.state == PowerAsleep {
		if e.Phase != types.TouchDown {
			return false, false
		}
		self.state = PowerAwake
		self.swallowing = true
		return false, true
	}
	if self.swallowing {
		if e.Phase == types.TouchUp {
			self.swallowing = false
		}
		return false, false
	}
	return true, false
}

// Tick returns true on Awake->Asleep transition.
func (self *Power) Tick(now time.Time) bool {
	if self.state != PowerAwake || self.Timeout <= 0 {
		return false
	}
	if now.Sub(self.lastInput) >= self.Timeout {
		self.state = PowerAsleep
		return true
	}
	return false
}
