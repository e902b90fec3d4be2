// Package source maps data source bindings to cached display strings.
// Reads run in background tasks, one in flight per binding, results published under lock.
package source

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/internal/screen"
	"github.com/serverdeck/serverdeck/internal/types"
	"github.com/serverdeck/serverdeck/log2"
	"golang.org/x/sync/singleflight"
)

const (
	Unavailable = "N/A"
	NoData      = "--"

	DefaultReadTimeout   = 2 * time.Second
	DefaultRefreshBudget = 30 * time.Millisecond
)

type Config struct {
	ReadTimeout   time.Duration
	RefreshBudget time.Duration
}

type entry struct {
	binding  screen.Binding
	def      *Def
	values   []string
	attempt  time.Time
	inflight bool
	failing  bool

	// KindRate
	prevCounter uint64
	prevAt      time.Time
	havePrev    bool
}

type Registry struct {
	Log      *log2.Log
	provider types.MetricProvider
	config   Config
	group    singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	wg      sync.WaitGroup
}

func NewRegistry(log *log2.Log, provider types.MetricProvider, c Config) *Registry {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.RefreshBudget <= 0 {
		c.RefreshBudget = DefaultRefreshBudget
	}
	return &Registry{
		Log:      log,
		provider: provider,
		config:   c,
		entries:  make(map[string]*entry),
	}
}

// Register adds binding to refresh set. Duplicate bindings share one entry.
func (self *Registry) Register(b screen.Binding) error {
	d, ok := Lookup(b.Source)
	if !ok {
		return errors.NotFoundf("data source=%s", b.Source)
	}
	args, err := d.Normalize(b.Args)
	if err != nil {
		return err
	}
	b = screen.Binding{Source: d.Name, Args: args}
	key := b.Key()

	self.mu.Lock()
	defer self.mu.Unlock()
	if _, ok := self.entries[key]; ok {
		return nil
	}
	self.entries[key] = &entry{
		binding: b,
		def:     d,
		values:  placeholders(d.Arity, NoData),
	}
	self.order = append(self.order, key)
	return nil
}

func (self *Registry) RegisterScreens(screens []screen.Screen) error {
	errs := make([]error, 0)
	for _, s := range screens {
		for _, b := range s.Bindings() {
			if err := self.Register(b); err != nil {
				errs = append(errs, errors.Annotatef(err, "screen=%s", s.Name()))
			}
		}
	}
	if len(errs) != 0 {
		return errors.Errorf("%d bindings rejected, first: %v", len(errs), errs[0])
	}
	return nil
}

// Resolve returns last known values, never blocks on provider.
// Always returns Def.Arity strings, placeholders when unknown.
func (self *Registry) Resolve(b screen.Binding) []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	e, ok := self.entries[b.Key()]
	if !ok {
		return placeholders(1, Unavailable)
	}
	out := make([]string, len(e.values))
	copy(out, e.values)
	return out
}

// Tick starts reads for due entries among keys (all entries if keys is empty)
// and waits for them at most RefreshBudget.
// Reads still running after budget publish their result when done.
func (self *Registry) Tick(ctx context.Context, now time.Time, keys ...string) {
	started := 0
	self.mu.Lock()
	done := make(chan struct{}, len(self.order))
	if len(keys) == 0 {
		keys = self.order
	}
	for _, key := range keys {
		e, ok := self.entries[key]
		if !ok || e.inflight {
			continue
		}
		if !e.attempt.IsZero() && now.Sub(e.attempt) < e.def.Interval {
			continue
		}
		e.inflight = true
		e.attempt = now
		started++
		self.wg.Add(1)
		go func(e *entry) {
			defer self.wg.Done()
			self.refresh(ctx, e, now)
			done <- struct{}{}
		}(e)
	}
	self.mu.Unlock()

	if started == 0 {
		return
	}
	budget := time.NewTimer(self.config.RefreshBudget)
	defer budget.Stop()
	for i := 0; i < started; i++ {
		select {
		case <-done:
		case <-budget.C:
			self.Log.Debugf("source refresh budget exceeded, pending=%d", started-i)
			return
		case <-ctx.Done():
			return
		}
	}
}

// Refresh reads binding immediately, ignoring interval.
// Concurrent calls, including Tick reads in flight, share one provider read.
func (self *Registry) Refresh(ctx context.Context, b screen.Binding, now time.Time) []string {
	self.mu.Lock()
	e, ok := self.entries[b.Key()]
	if ok {
		e.inflight = true
		e.attempt = now
		self.wg.Add(1)
	}
	self.mu.Unlock()
	if ok {
		self.refresh(ctx, e, now)
		self.wg.Done()
	}
	return self.Resolve(b)
}

// Wait blocks until background reads finish. For tests and shutdown with timeout.
func (self *Registry) Wait() { self.wg.Wait() }

func (self *Registry) Keys() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	out := make([]string, len(self.order))
	copy(out, self.order)
	return out
}

func (self *Registry) refresh(ctx context.Context, e *entry, now time.Time) {
	_, _, _ = self.group.Do(e.binding.Key(), func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(ctx, self.config.ReadTimeout)
		defer cancel()
		r, err := self.read(rctx, e)
		self.publish(e, r, err, now)
		return nil, nil
	})
}

// read runs provider in separate goroutine so a stuck provider can't outlive ctx.
func (self *Registry) read(ctx context.Context, e *entry) (types.Reading, error) {
	type result struct {
		r   types.Reading
		err error
	}
	ch := make(chan result, 1)
	go func() {
		r, err := self.provider.Read(ctx, e.def.Name, e.binding.Args)
		ch <- result{r, err}
	}()
	select {
	case res := <-ch:
		return res.r, res.err
	case <-ctx.Done():
		return types.Reading{}, errors.Annotate(ctx.Err(), "read")
	}
}

func (self *Registry) publish(e *entry, r types.Reading, err error, now time.Time) {
	self.mu.Lock()
	defer self.mu.Unlock()
	e.inflight = false
	key := e.binding.Key()

	if err == nil && e.def.Kind == KindDirect && len(r.Values) != e.def.Arity {
		err = errors.Errorf("provider returned %d values, expected %d", len(r.Values), e.def.Arity)
	}
	if err != nil {
		if !e.failing {
			self.Log.Errorf("source=%s err=%v", key, err)
		}
		e.failing = true
		e.values = placeholders(e.def.Arity, Unavailable)
		if e.def.Kind == KindRate {
			e.havePrev = false
		}
		return
	}
	if e.failing {
		self.Log.Infof("source=%s recovered", key)
		e.failing = false
	}

	switch e.def.Kind {
	case KindDirect:
		e.values = append(e.values[:0], r.Values...)
	case KindRate:
		e.values = []string{rate(e, r.Counter, now)}
	}
}

// rate derives bytes per second from previous counter sample.
// Counter going backwards is a reset and starts over.
func rate(e *entry, counter uint64, now time.Time) string {
	prev, prevAt, have := e.prevCounter, e.prevAt, e.havePrev
	e.prevCounter, e.prevAt, e.havePrev = counter, now, true
	if !have || counter < prev {
		return NoData
	}
	elapsed := now.Sub(prevAt).Seconds()
	if elapsed <= 0 {
		return NoData
	}
	bps := float64(counter-prev) / elapsed
	return humanize.IBytes(uint64(bps+0.5)) + "/s"
}

func placeholders(n int, s string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
