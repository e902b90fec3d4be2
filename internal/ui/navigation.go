package ui

import (
	"image"
	"time"

	"github.com/serverdeck/serverdeck/helpers"
	"github.com/serverdeck/serverdeck/internal/screen"
	"github.com/serverdeck/serverdeck/internal/types"
)

// Hero tap zones, percent of width. Centre between them is inert.
const (
	HeroZoneLeftPercent  = 40
	HeroZoneRightPercent = 40
)

// Title bar arrow tap zone width on standard screens.
const ArrowZoneWidth = 40

// Navigation tracks active screen index and in-progress gesture.
// Index is always within [0, Count-1] when Count > 0. No wraparound.
type Navigation struct {
	Gestures       GestureConfig
	Size           image.Point
	TitleBarHeight int

	screens []screen.Screen
	index   int

	down   bool
	origin image.Point
	start  time.Time
}

func NewNavigation(screens []screen.Screen, size image.Point, titleBarHeight int, gc GestureConfig) *Navigation {
	return &Navigation{
		Gestures:       gc,
		Size:           size,
		TitleBarHeight: titleBarHeight,
		screens:        screens,
	}
}

func (self *Navigation) Index() int { return self.index }
func (self *Navigation) Count() int { return len(self.screens) }

// Current returns nil when there are no screens.
func (self *Navigation) Current() screen.Screen {
	if len(self.screens) == 0 {
		return nil
	}
	return self.screens[self.index]
}

// Adjacent returns existing screens at index-1 and index+1.
func (self *Navigation) Adjacent() []screen.Screen {
	out := make([]screen.Screen, 0, 2)
	if self.index > 0 {
		out = append(out, self.screens[self.index-1])
	}
	if self.index+1 < len(self.screens) {
		out = append(out, self.screens[self.index+1])
	}
	return out
}

// Move changes index by delta, clamped. Returns true if index changed.
func (self *Navigation) Move(delta int) bool {
	if len(self.screens) == 0 {
		return false
	}
	next := helpers.Clamp(self.index+delta, 0, len(self.screens)-1)
	changed := next != self.index
	self.index = next
	return changed
}

// Reset drops in-progress gesture.
func (self *Navigation) Reset() { self.down = false }

// Feed tracks touch down..up. On up the gesture is applied,
// returns true if index changed.
func (self *Navigation) Feed(e types.TouchEvent, now time.Time) bool {
	at := e.Time
	if at.IsZero() {
		at = now
	}
	switch e.Phase {
	case types.TouchDown:
		self.down = true
		self.origin = e.Point()
		self.start = at
	case types.TouchUp:
		if !self.down {
			return false
		}
		self.down = false
		return self.Gesture(Gesture{From: self.origin, To: e.Point(), Start: self.start, End: at})
	}
	return false
}

// Gesture applies completed gesture. Returns true if index changed.
func (self *Navigation) Gesture(g Gesture) bool {
	switch self.Gestures.Classify(g) {
	case GestureSwipe:
		if g.Dx() < 0 {
			return self.Move(-1)
		}
		return self.Move(+1)
	case GestureTap:
		return self.Move(self.tapDelta(g.To))
	}
	return false
}

func (self *Navigation) tapDelta(p image.Point) int {
	width := self.Size.X
	if width <= 0 {
		return 0
	}
	switch self.Current().(type) {
	case *screen.Hero:
		switch {
		case p.X < width*HeroZoneLeftPercent/100:
			return -1
		case p.X >= width-width*HeroZoneRightPercent/100:
			return +1
		}
	case *screen.Standard:
		if p.Y < 0 || p.Y >= self.TitleBarHeight {
			return 0
		}
		switch {
		case p.X < ArrowZoneWidth:
			return -1
		case p.X >= width-ArrowZoneWidth:
			return +1
		}
	}
	return 0
}
