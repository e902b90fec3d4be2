// Sorry, workaround to import cycles.
package state_new

import (
	"context"
	"os"
	"testing"

	"github.com/serverdeck/serverdeck/internal/config"
	"github.com/serverdeck/serverdeck/internal/metrics"
	"github.com/serverdeck/serverdeck/internal/state"
	"github.com/serverdeck/serverdeck/log2"
	"github.com/temoto/alive/v2"
)

func NewContext(log *log2.Log, provider *metrics.Mock) (context.Context, *state.Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &state.Global{
		Alive: alive.NewAlive(),
		Log:   log,
	}
	if provider != nil {
		g.Metrics = provider
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, state.ContextKey, g)

	return ctx, g
}

// NewTestContext runs Init with mock display and no touch source.
// Returned Mock provider has no readings, every source is N/A until Set.
func NewTestContext(t testing.TB, confString string) (context.Context, *state.Global, *metrics.Mock) {
	return NewTestContextFile(t, "test-inline", confString)
}

// NewTestContextFile is NewTestContext with config file name, extension selects format.
func NewTestContextFile(t testing.TB, name, confString string) (context.Context, *state.Global, *metrics.Mock) {
	fs := config.NewMockFullReader(map[string]string{
		name: confString,
	})

	var log *log2.Log
	if os.Getenv("serverdeck_test_log_stderr") == "1" {
		log = log2.NewStderr(log2.LDebug) // useful with panics
	} else {
		log = log2.NewTest(t, log2.LDebug)
	}
	log.SetFlags(log2.LTestFlags)
	provider := metrics.NewMock()
	ctx, g := NewContext(log, provider)
	g.BuildVersion = "test"
	cfg := config.MustReadConfig(log, fs, name)
	cfg.Display.Driver = config.DisplayMock
	cfg.Touch.Driver = ""
	cfg.Backlight.Driver = ""
	if err := g.Init(ctx, cfg); err != nil {
		t.Fatalf("state_new Init err=%v", err)
	}
	t.Cleanup(func() { g.Alive.Stop() })

	return ctx, g, provider
}
