// Package ui owns the control loop: touch input, navigation, power, refresh and render.
// One goroutine runs Loop, nothing here is safe for concurrent use.
package ui

import (
	"bytes"
	"context"
	"image"
	"time"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/helpers"
	"github.com/serverdeck/serverdeck/internal/state"
	"github.com/serverdeck/serverdeck/internal/types"
)

const (
	DefaultTick      = 100 * time.Millisecond
	DefaultSleepTick = 250 * time.Millisecond
)

type UI struct {
	Nav   *Navigation
	Power *Power

	g         *state.Global
	display   types.Display
	touch     types.TouchPoller
	tick      time.Duration
	sleepTick time.Duration
	prefetch  bool

	last     *image.RGBA
	dirty    bool
	presents int

	XXX_testHook func(*UI)
}

func (self *UI) Init(ctx context.Context) error {
	self.g = state.GetGlobal(ctx)
	if self.g.Model == nil {
		return errors.Errorf("code error ui.Init before state.Init")
	}
	d, err := self.g.Display()
	if err != nil {
		return errors.Annotate(err, "ui display")
	}
	q, err := self.g.Touch()
	if err != nil {
		return errors.Annotate(err, "ui touch")
	}
	self.display = d
	self.touch = q

	cfg := &self.g.Config.UI
	self.tick = helpers.IntMillisecondDefault(cfg.TickMs, DefaultTick)
	self.sleepTick = helpers.IntMillisecondDefault(cfg.SleepTickMs, DefaultSleepTick)
	self.prefetch = cfg.PrefetchAdjacent

	size := d.Bounds().Size()
	self.Nav = NewNavigation(self.g.Model.Screens, size, self.g.Renderer.TitleBarHeight, GestureConfig{
		SwipeMinPx:    cfg.SwipeMinPx,
		SwipeDuration: helpers.IntMillisecondDefault(cfg.SwipeMaxMs, DefaultSwipeDuration),
	})
	self.Power = NewPower(self.g.Model.ScreenTimeout, time.Now())
	self.dirty = true
	self.backlight(true)
	self.g.Log.Debugf("ui screens=%d tick=%v sleep_tick=%v timeout=%v", self.Nav.Count(), self.tick, self.sleepTick, self.Power.Timeout)
	return nil
}

// Presents is number of frames sent to display.
func (self *UI) Presents() int { return self.presents }

func (self *UI) Loop(ctx context.Context) {
	self.g.Alive.Add(1)
	defer self.g.Alive.Done()
	stopch := self.g.Alive.StopChan()
	for self.g.Alive.IsRunning() {
		begin := time.Now()
		next := self.Step(ctx, begin)
		if self.XXX_testHook != nil {
			self.XXX_testHook(self)
		}

		wait := next - time.Since(begin)
		if wait <= 0 {
			continue
		}
		tmr := time.NewTimer(wait)
		select {
		case <-tmr.C:
		case <-stopch:
			tmr.Stop()
		case <-ctx.Done():
			tmr.Stop()
			self.g.Log.Debugf("ui Loop stopping because ctx")
			return
		}
	}
	self.g.Log.Debugf("ui loop end")
}

// Step is one tick: input, then refresh and render while awake.
// Returns delay until next tick.
func (self *UI) Step(ctx context.Context, now time.Time) time.Duration {
	for {
		e, ok := self.touch.PollTouch()
		if !ok {
			break
		}
		self.input(e, now)
	}

	if self.Power.Tick(now) {
		self.g.Log.Debugf("ui sleep idle=%v", now.Sub(self.Power.LastInput()))
		self.Nav.Reset()
		self.backlight(false)
	}
	if self.Power.State() == PowerAsleep {
		return self.sleepTick
	}

	if keys := self.refreshKeys(); len(keys) != 0 {
		self.g.Registry.Tick(ctx, now, keys...)
	}

	frame := self.g.Renderer.Render(self.Nav.Current(), self.g.Registry)
	if self.dirty || self.last == nil || !bytes.Equal(frame.Pix, self.last.Pix) {
		if err := self.display.Present(frame); err != nil {
			self.g.Error(err, "ui present")
		} else {
			self.last = frame
			self.dirty = false
			self.presents++
		}
	}
	return self.tick
}

func (self *UI) input(e types.TouchEvent, now time.Time) {
	pass, woke := self.Power.Input(e, now)
	if woke {
		self.g.Log.Debugf("ui wake %s", e.String())
		self.backlight(true)
		self.dirty = true
	}
	if !pass {
		return
	}
	if self.Nav.Feed(e, now) {
		self.g.Log.Debugf("ui screen=%d/%d name=%s", self.Nav.Index()+1, self.Nav.Count(), self.Nav.Current().Name())
	}
}

// refreshKeys are bindings of active screen, with neighbours if prefetch enabled.
func (self *UI) refreshKeys() []string {
	current := self.Nav.Current()
	if current == nil {
		return nil
	}
	keys := make([]string, 0, 8)
	for _, b := range current.Bindings() {
		keys = append(keys, b.Key())
	}
	if self.prefetch {
		for _, s := range self.Nav.Adjacent() {
			for _, b := range s.Bindings() {
				keys = append(keys, b.Key())
			}
		}
	}
	return keys
}

func (self *UI) backlight(on bool) {
	if err := self.display.SetBacklight(on); err != nil {
		self.g.Error(err, "ui backlight on=%t", on)
	}
}
