package ui

import (
	"fmt"
	"image"
	"time"
)

const (
	DefaultSwipeMinPx    = 40
	DefaultSwipeDuration = 600 * time.Millisecond
)

type GestureKind uint8

const (
	GestureNone GestureKind = iota
	GestureTap
	GestureSwipe
)

func (k GestureKind) String() string {
	switch k {
	case GestureNone:
		return "None"
	case GestureTap:
		return "Tap"
	case GestureSwipe:
		return "Swipe"
	}
	return fmt.Sprintf("GestureKind(%d)", uint8(k))
}

// Gesture is one completed touch, down to up.
type Gesture struct {
	From, To   image.Point
	Start, End time.Time
}

func (g Gesture) Dx() int                { return g.To.X - g.From.X }
func (g Gesture) Elapsed() time.Duration { return g.End.Sub(g.Start) }

func (g Gesture) String() string {
	return fmt.Sprintf("gesture from=%v to=%v elapsed=%v", g.From, g.To, g.Elapsed())
}

type GestureConfig struct {
	SwipeMinPx    int
	SwipeDuration time.Duration
}

// Classify depends only on the two points and elapsed time.
// Swipe direction is sign of Dx.
func (c GestureConfig) Classify(g Gesture) GestureKind {
	minPx := c.SwipeMinPx
	if minPx <= 0 {
		minPx = DefaultSwipeMinPx
	}
	maxDur := c.SwipeDuration
	if maxDur <= 0 {
		maxDur = DefaultSwipeDuration
	}
	dx := g.Dx()
	if dx < 0 {
		dx = -dx
	}
	if dx >= minPx && g.Elapsed() <= maxDur {
		return GestureSwipe
	}
	return GestureTap
}
