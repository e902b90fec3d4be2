package types

import (
	"fmt"
	"image"
	"time"
)

type TouchPhase uint8

const (
	TouchInvalid TouchPhase = iota
	TouchDown
	TouchMove
	TouchUp
)

func (p TouchPhase) String() string {
	switch p {
	case TouchDown:
		return "down"
	case TouchMove:
		return "move"
	case TouchUp:
		return "up"
	}
	return fmt.Sprintf("TouchPhase(%d)", uint8(p))
}

// TouchEvent is in screen coordinates, after touch.Transform.
type TouchEvent struct {
	X, Y  int
	Phase TouchPhase
	Time  time.Time
}

func (e TouchEvent) Point() image.Point { return image.Point{X: e.X, Y: e.Y} }

func (e TouchEvent) String() string {
	return fmt.Sprintf("Touch(%s x=%d y=%d)", e.Phase.String(), e.X, e.Y)
}

// Display is the output half of display/touch collaborator.
type Display interface {
	Bounds() image.Rectangle
	Present(frame *image.RGBA) error
	SetBacklight(on bool) error
	Close() error
}

// TouchPoller is the input half. Never blocks.
type TouchPoller interface {
	PollTouch() (TouchEvent, bool)
}
