package state

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/helpers"
	"github.com/serverdeck/serverdeck/internal/config"
	"github.com/serverdeck/serverdeck/internal/metrics"
	"github.com/serverdeck/serverdeck/internal/render"
	"github.com/serverdeck/serverdeck/internal/source"
	"github.com/serverdeck/serverdeck/internal/types"
	"github.com/serverdeck/serverdeck/log2"
	"github.com/temoto/alive/v2"
)

// Global is application state shared by sub-commands.
// Model, Registry and Renderer are immutable after Init, hardware opens lazily.
type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *config.Config
	ConfigPath   string
	Hardware     hardware // hardware.go
	Log          *log2.Log
	Metrics      types.MetricProvider
	Model        *config.Model
	Registry     *source.Registry
	Renderer     *render.Renderer
	// config problems that skipped widgets or screens
	Warnings []error
}

const ContextKey = "run/state-global"

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// Init opens display, builds model for its size and starts touch input.
// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *config.Config) error {
	g.Config = cfg
	if cfg.LogDebug {
		g.Log.SetLevel(log2.LDebug)
	}
	g.Log.Infof("build version=%s", g.BuildVersion)

	d, err := g.Display()
	if err != nil {
		return errors.Annotate(err, "display")
	}
	if err = g.InitModel(cfg, d.Bounds().Size()); err != nil {
		return err
	}
	if _, err = g.Touch(); err != nil {
		return errors.Annotate(err, "touch")
	}
	return nil
}

// InitModel is Init without hardware, used by screenshot.
func (g *Global) InitModel(cfg *config.Config, size image.Point) error {
	g.Config = cfg
	// ErrNoScreens still yields usable model, screenshot renders it
	model, warn, buildErr := cfg.Build(g.Log, size)
	g.Model, g.Warnings = model, warn
	if model == nil {
		return buildErr
	}

	if g.Metrics == nil {
		m, err := metrics.NewLinux(g.Log, cfg.Metrics)
		if err != nil {
			return errors.Annotate(err, "metrics")
		}
		g.Metrics = m
	}
	g.Registry = source.NewRegistry(g.Log, g.Metrics, source.Config{
		ReadTimeout:   helpers.IntMillisecondDefault(cfg.UI.ReadTimeoutMs, source.DefaultReadTimeout),
		RefreshBudget: helpers.IntMillisecondDefault(cfg.UI.RefreshBudgetMs, source.DefaultRefreshBudget),
	})
	if err := g.Registry.RegisterScreens(model.Screens); err != nil {
		// Build validated bindings, so this is code error
		return errors.Annotate(err, "code error RegisterScreens")
	}

	g.Renderer = render.New(size, model.Fonts, model.Palette)
	if cfg.UI.TitleBarHeight > 0 {
		g.Renderer.TitleBarHeight = cfg.UI.TitleBarHeight
	}
	g.Log.Debugf("config screens=%d sources=%d warnings=%d", len(model.Screens), len(g.Registry.Keys()), len(warn))
	return buildErr
}

func (g *Global) MustInit(ctx context.Context, cfg *config.Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(err)
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Log.Fatal(errors.ErrorStack(err))
		os.Exit(1)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}
