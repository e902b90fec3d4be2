package metrics

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/internal/screen"
	"github.com/serverdeck/serverdeck/internal/types"
)

// Mock returns preset readings keyed by binding, e.g. "get_disk_percent(/)".
// Unset keys fail with NotFound.
type Mock struct {
	mu       sync.Mutex
	readings map[string]types.Reading
	errors   map[string]error
	calls    map[string]int
}

var _ types.MetricProvider = new(Mock)

func NewMock() *Mock {
	return &Mock{
		readings: make(map[string]types.Reading),
		errors:   make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (self *Mock) Set(key string, values ...string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.readings[key] = types.Reading{Values: values}
	delete(self.errors, key)
}

func (self *Mock) SetCounter(key string, counter uint64) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.readings[key] = types.Reading{Counter: counter}
	delete(self.errors, key)
}

func (self *Mock) Fail(key string, err error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.errors[key] = err
}

func (self *Mock) Calls(key string) int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.calls[key]
}

func (self *Mock) Read(ctx context.Context, name string, args []string) (types.Reading, error) {
	if err := ctx.Err(); err != nil {
		return types.Reading{}, err
	}
	key := screen.Binding{Source: name, Args: args}.Key()
	self.mu.Lock()
	defer self.mu.Unlock()
	self.calls[key]++
	if err, ok := self.errors[key]; ok {
		return types.Reading{}, err
	}
	if r, ok := self.readings[key]; ok {
		return r, nil
	}
	return types.Reading{}, errors.NotFoundf("mock reading=%s", key)
}
