package ui

import (
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/serverdeck/serverdeck/internal/screen"
	"github.com/serverdeck/serverdeck/internal/types"
	"github.com/stretchr/testify/assert"
)

var (
	testSize  = image.Point{X: 320, Y: 240}
	testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newTestNav(screens ...screen.Screen) *Navigation {
	return NewNavigation(screens, testSize, 30, GestureConfig{})
}

func standards(n int) []screen.Screen {
	out := make([]screen.Screen, n)
	for i := range out {
		out[i] = &screen.Standard{Title: fmt.Sprintf("S%d", i)}
	}
	return out
}

// touch feeds down at from, up at to after elapsed.
func touch(n *Navigation, from, to image.Point, elapsed time.Duration) bool {
	n.Feed(types.TouchEvent{X: from.X, Y: from.Y, Phase: types.TouchDown, Time: testEpoch}, testEpoch)
	n.Feed(types.TouchEvent{X: (from.X + to.X) / 2, Y: to.Y, Phase: types.TouchMove, Time: testEpoch.Add(elapsed / 2)}, testEpoch)
	return n.Feed(types.TouchEvent{X: to.X, Y: to.Y, Phase: types.TouchUp, Time: testEpoch.Add(elapsed)}, testEpoch)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		dx      int
		elapsed time.Duration
		expect  GestureKind
	}{
		{0, 50 * time.Millisecond, GestureTap},
		{39, 100 * time.Millisecond, GestureTap},
		{40, 100 * time.Millisecond, GestureSwipe},
		{-40, 100 * time.Millisecond, GestureSwipe},
		{200, 600 * time.Millisecond, GestureSwipe},
		{200, 601 * time.Millisecond, GestureTap},
		{-200, 2 * time.Second, GestureTap},
	}
	gc := GestureConfig{}
	for _, c := range cases {
		c := c
		t.Run(fmt.Sprintf("dx=%d/%v", c.dx, c.elapsed), func(t *testing.T) {
			g := Gesture{From: image.Point{150, 100}, To: image.Point{150 + c.dx, 120}, Start: testEpoch, End: testEpoch.Add(c.elapsed)}
			assert.Equal(t, c.expect, gc.Classify(g))
		})
	}
}

func TestSwipeRoundTrip(t *testing.T) {
	t.Parallel()

	n := newTestNav(standards(3)...)
	right := func() bool { return touch(n, image.Point{50, 120}, image.Point{200, 120}, 200*time.Millisecond) }
	left := func() bool { return touch(n, image.Point{200, 120}, image.Point{50, 120}, 200*time.Millisecond) }

	assert.True(t, right())
	assert.Equal(t, 1, n.Index())
	assert.True(t, right())
	assert.Equal(t, 2, n.Index())
	assert.False(t, right(), "clamp at last, no wraparound")
	assert.Equal(t, 2, n.Index())

	assert.True(t, left())
	assert.True(t, left())
	assert.Equal(t, 0, n.Index())
	assert.False(t, left(), "clamp at first, no wraparound")
	assert.Equal(t, 0, n.Index())
	assert.Equal(t, 3, n.Count())
}

func TestShortSwipeIgnored(t *testing.T) {
	t.Parallel()

	n := newTestNav(standards(3)...)
	n.Move(1)
	assert.False(t, touch(n, image.Point{100, 120}, image.Point{130, 120}, 100*time.Millisecond))
	assert.False(t, touch(n, image.Point{100, 120}, image.Point{250, 120}, time.Second), "slow drag is a tap")
	assert.Equal(t, 1, n.Index())
}

func TestHeroTapZones(t *testing.T) {
	t.Parallel()

	cases := []struct {
		x      int
		expect int
	}{
		{0, 0},
		{127, 0},
		{128, 1},
		{160, 1},
		{191, 1},
		{192, 2},
		{319, 2},
	}
	for _, c := range cases {
		c := c
		t.Run(fmt.Sprintf("x=%d", c.x), func(t *testing.T) {
			t.Parallel()
			n := newTestNav(&screen.Standard{}, &screen.Hero{Source: "qr:x"}, &screen.Standard{})
			n.Move(1)
			p := image.Point{c.x, 200}
			touch(n, p, p, 50*time.Millisecond)
			assert.Equal(t, c.expect, n.Index())
		})
	}
}

func TestHeroTapClamped(t *testing.T) {
	t.Parallel()

	n := newTestNav(&screen.Hero{Source: "logo.png"})
	assert.False(t, touch(n, image.Point{10, 10}, image.Point{10, 10}, 0))
	assert.False(t, touch(n, image.Point{310, 10}, image.Point{310, 10}, 0))
	assert.Equal(t, 0, n.Index())
}

func TestTitleArrowTap(t *testing.T) {
	t.Parallel()

	n := newTestNav(standards(3)...)
	tap := func(x, y int) bool { return touch(n, image.Point{x, y}, image.Point{x, y}, 50*time.Millisecond) }

	assert.True(t, tap(310, 15))
	assert.Equal(t, 1, n.Index())
	assert.False(t, tap(310, 100), "content area is inert")
	assert.False(t, tap(160, 15), "title centre is inert")
	assert.True(t, tap(5, 15))
	assert.Equal(t, 0, n.Index())
}

func TestNavigationNoScreens(t *testing.T) {
	t.Parallel()

	n := newTestNav()
	assert.Nil(t, n.Current())
	assert.False(t, n.Move(1))
	assert.False(t, touch(n, image.Point{0, 0}, image.Point{200, 0}, 0))
	assert.Equal(t, 0, n.Index())
	assert.Empty(t, n.Adjacent())
}

func TestUpWithoutDown(t *testing.T) {
	t.Parallel()

	n := newTestNav(standards(2)...)
	assert.False(t, n.Feed(types.TouchEvent{X: 310, Y: 10, Phase: types.TouchUp}, testEpoch))
	assert.Equal(t, 0, n.Index())
}

func TestPowerSleepAndSwallowedWake(t *testing.T) {
	t.Parallel()

	p := NewPower(60*time.Second, testEpoch)
	assert.False(t, p.Tick(testEpoch.Add(59*time.Second)))
	assert.Equal(t, PowerAwake, p.State())
	assert.True(t, p.Tick(testEpoch.Add(60*time.Second)))
	assert.Equal(t, PowerAsleep, p.State())
	assert.False(t, p.Tick(testEpoch.Add(61*time.Second)), "transition reported once")

	at := testEpoch.Add(70 * time.Second)
	pass, woke := p.Input(types.TouchEvent{Phase: types.TouchDown}, at)
	assert.False(t, pass)
	assert.True(t, woke)
	assert.Equal(t, PowerAwake, p.State())
	pass, woke = p.Input(types.TouchEvent{Phase: types.TouchMove}, at)
	assert.False(t, pass)
	assert.False(t, woke)
	pass, _ = p.Input(types.TouchEvent{Phase: types.TouchUp}, at)
	assert.False(t, pass, "waking gesture swallowed to the end")

	pass, _ = p.Input(types.TouchEvent{Phase: types.TouchDown}, at.Add(time.Second))
	assert.True(t, pass)
	assert.Equal(t, at.Add(time.Second), p.LastInput())
}

func TestPowerAsleepIgnoresMoveUp(t *testing.T) {
	t.Parallel()

	p := NewPower(time.Second, testEpoch)
	p.Tick(testEpoch.Add(time.Second))
	pass, woke := p.Input(types.TouchEvent{Phase: types.TouchUp}, testEpoch.Add(2*time.Second))
	assert.False(t, pass)
	assert.False(t, woke)
	assert.Equal(t, PowerAsleep, p.State())
}

func TestPowerTimeoutZero(t *testing.T) {
	t.Parallel()

	p := NewPower(0, testEpoch)
	assert.False(t, p.Tick(testEpoch.Add(365*24*time.Hour)))
	assert.Equal(t, PowerAwake, p.State())
}

func TestPowerInputResetsIdle(t *testing.T) {
	t.Parallel()

	p := NewPower(10*time.Second, testEpoch)
	p.Input(types.TouchEvent{Phase: types.TouchMove}, testEpoch.Add(9*time.Second))
	assert.False(t, p.Tick(testEpoch.Add(18*time.Second)))
	assert.True(t, p.Tick(testEpoch.Add(19*time.Second)))
}
