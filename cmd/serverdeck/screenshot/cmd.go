// Render every screen with live data to PNG files, without display hardware.
package screenshot

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/cmd/serverdeck/subcmd"
	"github.com/serverdeck/serverdeck/internal/assets"
	"github.com/serverdeck/serverdeck/internal/config"
	"github.com/serverdeck/serverdeck/internal/screen"
	"github.com/serverdeck/serverdeck/internal/source"
	"github.com/serverdeck/serverdeck/internal/state"
)

var Mod = subcmd.Mod{Name: "screenshot", Desc: "render screens to PNG, -watch to repeat on config change", Main: Main}

// Rate sources need two samples.
const rateSampleGap = time.Second

const watchDebounce = 300 * time.Millisecond

func Main(ctx context.Context, cfg *config.Config, args []string) error {
	g := state.GetGlobal(ctx)
	flagset := flag.NewFlagSet("screenshot", flag.ContinueOnError)
	out := flagset.String("out", "screenshots", "output directory")
	watch := flagset.Bool("watch", false, "regenerate when config changes")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	files, err := Capture(ctx, g, cfg, *out)
	if err != nil {
		return err
	}
	g.Log.Infof("screenshot saved %s", strings.Join(files, " "))
	if !*watch {
		return nil
	}
	return Watch(ctx, g, g.ConfigPath, func() {
		fs, err := config.NewOsFullReader(".")
		if err == nil {
			cfg, err = config.ReadConfig(g.Log, fs, g.ConfigPath)
		}
		if err != nil {
			g.Error(err, "screenshot config reload")
			return
		}
		if files, err = Capture(ctx, g, cfg, *out); err != nil {
			g.Error(err, "screenshot")
			return
		}
		g.Log.Infof("screenshot saved %s", strings.Join(files, " "))
	})
}

// Capture builds model from cfg and writes screen_<i>_<name>.png into dir.
// Zero valid screens produce single image with error message.
func Capture(ctx context.Context, g *state.Global, cfg *config.Config, dir string) ([]string, error) {
	size := state.ConfigSize(&cfg.Display)
	if err := g.InitModel(cfg, size); err != nil && err != config.ErrNoScreens {
		return nil, errors.Annotate(err, "screenshot init")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Annotate(err, "screenshot")
	}

	screens := g.Model.Screens
	refreshAll(ctx, g, screens)

	if len(screens) == 0 {
		path := filepath.Join(dir, "screen_0_empty.png")
		return []string{path}, writePNG(path, g.Renderer.Render(nil, g.Registry))
	}
	files := make([]string, 0, len(screens))
	for i, s := range screens {
		path := filepath.Join(dir, FileName(i, s))
		if err := writePNG(path, g.Renderer.Render(s, g.Registry)); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func refreshAll(ctx context.Context, g *state.Global, screens []screen.Screen) {
	var rates []screen.Binding
	for _, s := range screens {
		for _, b := range s.Bindings() {
			g.Registry.Refresh(ctx, b, time.Now())
			if d, ok := source.Lookup(b.Source); ok && d.Kind == source.KindRate {
				rates = append(rates, b)
			}
		}
	}
	if len(rates) == 0 {
		return
	}
	select {
	case <-time.After(rateSampleGap):
	case <-ctx.Done():
		return
	}
	for _, b := range rates {
		g.Registry.Refresh(ctx, b, time.Now())
	}
}

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is screen_<index>_<title or image name>.png
func FileName(i int, s screen.Screen) string {
	name := s.Name()
	if h, ok := s.(*screen.Hero); ok {
		name = strings.TrimSuffix(filepath.Base(h.Source), filepath.Ext(h.Source))
		if strings.HasPrefix(h.Source, assets.QRPrefix) {
			name = "qr"
		}
	}
	name = strings.Trim(reUnsafe.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "untitled"
	}
	return fmt.Sprintf("screen_%d_%s.png", i, strings.ToLower(name))
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Annotate(err, "screenshot")
	}
	if err = png.Encode(f, img); err != nil {
		f.Close()
		return errors.Annotatef(err, "png encode %s", path)
	}
	return errors.Annotatef(f.Close(), "screenshot %s", path)
}

// Watch calls fn after config file changes until ctx or g.Alive stop.
// Parent directory is watched because editors replace files by rename.
func Watch(ctx context.Context, g *state.Global, path string, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Annotate(err, "fsnotify")
	}
	defer w.Close()
	dir := filepath.Dir(path)
	if err = w.Add(dir); err != nil {
		return errors.Annotatef(err, "fsnotify watch=%s", dir)
	}
	g.Log.Infof("screenshot watching %s", path)

	var debounce <-chan time.Time
	stopch := g.Alive.StopChan()
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(e, path) {
				continue
			}
			g.Log.Debugf("screenshot config event=%s", e.String())
			debounce = time.After(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			g.Error(err, "fsnotify")

		case <-debounce:
			debounce = nil
			fn()

		case <-stopch:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// relevant is write or replace of config file or any config sibling it may include.
func relevant(e fsnotify.Event, path string) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) {
		return false
	}
	if filepath.Clean(e.Name) == filepath.Clean(path) {
		return true
	}
	switch strings.ToLower(filepath.Ext(e.Name)) {
	case ".hcl", ".yaml", ".yml":
		return true
	}
	return false
}
