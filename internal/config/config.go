// Package config reads serverdeck.hcl (or the YAML layout) and builds the screen model.
package config

import (
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl"
	"github.com/hashicorp/hcl/hcl/ast"
	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/hardware/backlight"
	"github.com/serverdeck/serverdeck/hardware/touch"
	"github.com/serverdeck/serverdeck/helpers"
	"github.com/serverdeck/serverdeck/internal/assets"
	"github.com/serverdeck/serverdeck/internal/metrics"
	"github.com/serverdeck/serverdeck/log2"
	"gopkg.in/yaml.v3"
)

const DefaultScreenTimeoutSec = 30

type Config struct {
	includeSeen map[string]struct{}
	XXX_Include []Source `hcl:"include" yaml:"include"`

	LogDebug bool   `hcl:"log_debug" yaml:"log_debug"`
	AssetDir string `hcl:"asset_dir" yaml:"asset_dir"`
	// seconds, 0 = never sleep, unset = DefaultScreenTimeoutSec
	ScreenTimeout *int                       `hcl:"screen_timeout" yaml:"screen_timeout"`
	Colors        map[string]string          `hcl:"colors" yaml:"colors"`
	Fonts         map[string]assets.FontSpec `hcl:"font" yaml:"fonts"`
	Screens       []ScreenConfig             `hcl:"screen" yaml:"screens"`

	Display   DisplayConfig    `hcl:"display" yaml:"display"`
	Touch     touch.Config     `hcl:"touch" yaml:"touch"`
	Backlight backlight.Config `hcl:"backlight" yaml:"backlight"`
	Metrics   metrics.Config   `hcl:"metrics" yaml:"metrics"`
	UI        UIConfig         `hcl:"ui" yaml:"ui"`
}

type Source struct {
	Name     string `hcl:"name,key" yaml:"name"`
	Optional bool   `hcl:"optional" yaml:"optional"`
}

const (
	DisplayFramebuffer = "framebuffer"
	DisplayMock        = "mock"
)

type DisplayConfig struct {
	Driver string `hcl:"driver" yaml:"driver"`
	Device string `hcl:"device" yaml:"device"`
	// Width, Height are used by mock driver and screenshot tool.
	Width  int `hcl:"width" yaml:"width"`
	Height int `hcl:"height" yaml:"height"`
	Rotate int `hcl:"rotate" yaml:"rotate"`
}

type UIConfig struct {
	TickMs           int  `hcl:"tick_ms" yaml:"tick_ms"`
	SleepTickMs      int  `hcl:"sleep_tick_ms" yaml:"sleep_tick_ms"`
	RefreshBudgetMs  int  `hcl:"refresh_budget_ms" yaml:"refresh_budget_ms"`
	ReadTimeoutMs    int  `hcl:"read_timeout_ms" yaml:"read_timeout_ms"`
	SwipeMinPx       int  `hcl:"swipe_min_px" yaml:"swipe_min_px"`
	SwipeMaxMs       int  `hcl:"swipe_max_ms" yaml:"swipe_max_ms"`
	TitleBarHeight   int  `hcl:"title_bar_height" yaml:"title_bar_height"`
	PrefetchAdjacent bool `hcl:"prefetch_adjacent" yaml:"prefetch_adjacent"`
}

// ScreenConfig is `screen "name" { ... }` block, name only identifies it in warnings.
type ScreenConfig struct {
	Name  string `hcl:"name,key" yaml:"name"`
	Type  string `hcl:"type" yaml:"type"` // standard (default) or hero
	Title string `hcl:"title" yaml:"title"`
	Color string `hcl:"color" yaml:"color"`
	// hero
	ImagePath string `hcl:"image_path" yaml:"image_path"`
	QR        string `hcl:"qr" yaml:"qr"`

	Widgets []WidgetConfig `hcl:"widget" yaml:"widgets"`
}

// WidgetConfig is `widget "name" { ... }` block inside screen.
type WidgetConfig struct {
	Name     string `hcl:"name,key" yaml:"name"`
	Type     string `hcl:"type" yaml:"type"`
	Position []int  `hcl:"position" yaml:"position"`
	Label    string `hcl:"label" yaml:"label"`
	// name string, or {name, args} object
	DataSource interface{} `hcl:"data_source" yaml:"data_source"`
	DataArgs   []string    `hcl:"data_args" yaml:"data_args"`
	Template   string      `hcl:"template" yaml:"template"`

	Font       string `hcl:"font" yaml:"font"`
	SubFont    string `hcl:"sub_font" yaml:"sub_font"`
	Color      string `hcl:"color" yaml:"color"`
	LabelColor string `hcl:"label_color" yaml:"label_color"`
	DataColor  string `hcl:"data_color" yaml:"data_color"`
	SubColor   string `hcl:"sub_color" yaml:"sub_color"`

	DataXOffset *int `hcl:"data_x_offset" yaml:"data_x_offset"`
	SubYOffset  *int `hcl:"sub_y_offset" yaml:"sub_y_offset"`
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func unmarshal(name string, bs []byte, c *Config) error {
	if isYAML(name) {
		return yaml.Unmarshal(bs, c)
	}
	file, err := hcl.ParseBytes(bs)
	if err != nil {
		return err
	}
	if err = checkLabels(file); err != nil {
		return err
	}
	return hcl.DecodeObject(c, file)
}

// checkLabels rejects unlabeled screen and widget blocks,
// hcl decodes repeated unlabeled blocks into a slice of their attributes.
func checkLabels(file *ast.File) error {
	root, ok := file.Node.(*ast.ObjectList)
	if !ok {
		return nil
	}
	for _, sc := range root.Filter("screen").Items {
		if len(sc.Keys) == 0 {
			return errors.NotValidf(`%s: screen block without name, use screen "name" { ... }`, sc.Pos())
		}
		body, ok := sc.Val.(*ast.ObjectType)
		if !ok {
			continue
		}
		for _, w := range body.List.Filter("widget").Items {
			if len(w.Keys) == 0 {
				return errors.NotValidf(`%s: widget block without name, use widget "name" { ... }`, w.Pos())
			}
		}
	}
	return nil
}

func (c *Config) read(log *log2.Log, fs FullReader, source Source, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	part := Config{}
	if err = unmarshal(source.Name, bs, &part); err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config unmarshal source=%s", source.Name))
		return
	}
	includes := part.XXX_Include
	part.XXX_Include = nil
	c.merge(&part)

	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// merge applies later source over c: set scalars win, maps merge, screens append.
func (c *Config) merge(o *Config) {
	c.LogDebug = c.LogDebug || o.LogDebug
	if o.AssetDir != "" {
		c.AssetDir = o.AssetDir
	}
	if o.ScreenTimeout != nil {
		c.ScreenTimeout = o.ScreenTimeout
	}
	for k, v := range o.Colors {
		if c.Colors == nil {
			c.Colors = make(map[string]string)
		}
		c.Colors[k] = v
	}
	for k, v := range o.Fonts {
		if c.Fonts == nil {
			c.Fonts = make(map[string]assets.FontSpec)
		}
		c.Fonts[k] = v
	}
	c.Screens = append(c.Screens, o.Screens...)

	if o.Display != (DisplayConfig{}) {
		c.Display = o.Display
	}
	if o.Touch != (touch.Config{}) {
		c.Touch = o.Touch
	}
	if o.Backlight != (backlight.Config{}) {
		c.Backlight = o.Backlight
	}
	if o.Metrics != (metrics.Config{}) {
		c.Metrics = o.Metrics
	}
	if o.UI != (UIConfig{}) {
		c.UI = o.UI
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		if dir != "" {
			osfs.SetBase(osfs.Normalize(dir))
		}
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, Source{Name: name}, &errs)
	}
	if osfs, ok := fs.(*OsFullReader); ok && c.AssetDir != "" && !filepath.IsAbs(c.AssetDir) {
		c.AssetDir = osfs.Normalize(c.AssetDir)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
