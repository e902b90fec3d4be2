package config

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/helpers"
	"github.com/serverdeck/serverdeck/internal/assets"
	"github.com/serverdeck/serverdeck/internal/screen"
	"github.com/serverdeck/serverdeck/internal/source"
	"github.com/serverdeck/serverdeck/log2"
	"golang.org/x/image/colornames"
)

const (
	ScreenStandard = "standard"
	ScreenHero     = "hero"

	DefaultDataXOffset = 140
	DefaultSubYOffset  = 20
	DefaultTemplate    = screen.Placeholder
)

var ErrNoScreens = errors.New("config: no valid screens")

// Model is immutable application layout built from Config.
type Model struct {
	Palette       screen.Palette
	Fonts         assets.FontTable
	ScreenTimeout time.Duration
	Screens       []screen.Screen
}

// Build validates config into Model. Malformed widgets and screens are skipped,
// each problem logged as warning and returned in list.
// Error is ErrNoScreens when nothing valid is left, Model is still usable for screenshots.
func (c *Config) Build(log *log2.Log, size image.Point) (*Model, []error, error) {
	var warn helpers.ErrorList
	b := builder{c: c, size: size}

	b.palette = make(screen.Palette, len(c.Colors))
	for k, v := range c.Colors {
		rgba, err := ParseColor(v)
		if err != nil {
			warn.Add(errors.Annotatef(err, "colors.%s ignored", k))
			continue
		}
		b.palette[k] = rgba
	}

	var fontWarn []error
	b.fonts, fontWarn = assets.LoadFonts(c.AssetDir, c.Fonts)
	warn = append(warn, fontWarn...)

	m := &Model{
		Palette:       b.palette,
		Fonts:         b.fonts,
		ScreenTimeout: DefaultScreenTimeoutSec * time.Second,
	}
	if c.ScreenTimeout != nil {
		if *c.ScreenTimeout < 0 {
			warn.Add(errors.NotValidf("screen_timeout=%d, sleep disabled", *c.ScreenTimeout))
			m.ScreenTimeout = 0
		} else {
			m.ScreenTimeout = time.Duration(*c.ScreenTimeout) * time.Second
		}
	}

	for i, sc := range c.Screens {
		s, ws, err := b.screen(i, &sc)
		warn = append(warn, ws...)
		if err != nil {
			warn.Add(errors.Annotatef(err, "screen[%d] skipped", i))
			continue
		}
		m.Screens = append(m.Screens, s)
	}

	for _, w := range warn {
		log.Warn(w)
	}
	if len(m.Screens) == 0 {
		return m, warn, ErrNoScreens
	}
	return m, warn, nil
}

type builder struct {
	c       *Config
	size    image.Point
	palette screen.Palette
	fonts   assets.FontTable
}

// color resolves palette key, color name or hex. Empty s means fallback.
func (b *builder) color(s string, fallback color.RGBA) (color.RGBA, error) {
	if s == "" {
		return fallback, nil
	}
	if c, ok := b.palette[s]; ok {
		return c, nil
	}
	return ParseColor(s)
}

func (b *builder) font(name, def string) (string, error) {
	if name == "" {
		name = def
	}
	if _, ok := b.fonts.Get(name); !ok {
		return "", errors.NotFoundf("font=%s", name)
	}
	return name, nil
}

func (b *builder) screen(i int, sc *ScreenConfig) (screen.Screen, []error, error) {
	switch sc.Type {
	case "", ScreenStandard:
	case ScreenHero:
		ref := sc.ImagePath
		if sc.QR != "" {
			ref = assets.QRPrefix + sc.QR
		}
		if ref == "" {
			return nil, nil, errors.NotValidf("hero requires image_path or qr")
		}
		img, err := assets.Hero(b.c.AssetDir, ref, b.size)
		if err != nil {
			return nil, nil, errors.Annotatef(err, "hero image=%s", ref)
		}
		return &screen.Hero{Source: ref, Image: img}, nil, nil
	default:
		return nil, nil, errors.NotSupportedf("screen type=%s", sc.Type)
	}

	titleColor, err := b.color(sc.Color, b.palette.Get(screen.ColorTitleText, colornames.White))
	if err != nil {
		return nil, nil, errors.Annotate(err, "title color")
	}
	s := &screen.Standard{Title: sc.Title, TitleColor: titleColor}
	var warn helpers.ErrorList
	for j := range sc.Widgets {
		w, err := b.widget(&sc.Widgets[j])
		if err != nil {
			warn.Add(errors.Annotatef(err, "screen[%d] title=%q widget[%d] type=%s skipped", i, sc.Title, j, sc.Widgets[j].Type))
			continue
		}
		s.Widgets = append(s.Widgets, w)
	}
	return s, warn, nil
}

func (b *builder) widget(wc *WidgetConfig) (screen.Widget, error) {
	arity := 1
	switch wc.Type {
	case screen.TypeLineItem, screen.TypeDynamicText, screen.TypeStaticText:
	case screen.TypeLineItemWithSub:
		arity = 2
	default:
		return nil, errors.NotSupportedf("widget type=%s", wc.Type)
	}

	if len(wc.Position) != 2 {
		return nil, errors.NotValidf("position=%v, expected [x, y]", wc.Position)
	}
	pos := image.Point{X: wc.Position[0], Y: wc.Position[1]}

	binding, err := parseBinding(wc.DataSource, wc.DataArgs)
	if err != nil {
		return nil, err
	}
	if binding, err = source.Validate(binding, arity); err != nil {
		return nil, err
	}

	fontName, err := b.font(wc.Font, assets.FontMedium)
	if err != nil {
		return nil, err
	}
	base, err := b.color(wc.Color, b.palette.Get(screen.ColorWidgetDefault, colornames.White))
	if err != nil {
		return nil, err
	}

	switch wc.Type {
	case screen.TypeDynamicText:
		tpl := wc.Template
		if tpl == "" {
			tpl = DefaultTemplate
		}
		if n := strings.Count(tpl, screen.Placeholder); n != 1 {
			return nil, errors.NotValidf("template=%q must contain %s once, found %d", tpl, screen.Placeholder, n)
		}
		return &screen.DynamicText{Position: pos, Source: binding, Font: fontName, Color: base, Template: tpl}, nil
	case screen.TypeStaticText:
		return &screen.StaticText{Position: pos, Source: binding, Font: fontName, Color: base}, nil
	}

	li := screen.LineItem{
		Position:    pos,
		Label:       wc.Label,
		Source:      binding,
		Font:        fontName,
		DataXOffset: intDefault(wc.DataXOffset, DefaultDataXOffset),
	}
	if li.LabelColor, err = b.color(wc.LabelColor, base); err != nil {
		return nil, errors.Annotate(err, "label_color")
	}
	if li.DataColor, err = b.color(wc.DataColor, base); err != nil {
		return nil, errors.Annotate(err, "data_color")
	}
	if wc.Type == screen.TypeLineItem {
		return &li, nil
	}

	w := &screen.LineItemWithSub{LineItem: li, SubYOffset: intDefault(wc.SubYOffset, DefaultSubYOffset)}
	if w.SubFont, err = b.font(wc.SubFont, assets.FontSmall); err != nil {
		return nil, errors.Annotate(err, "sub_font")
	}
	if w.SubColor, err = b.color(wc.SubColor, b.palette.Get(screen.ColorSubText, colornames.Gray)); err != nil {
		return nil, errors.Annotate(err, "sub_color")
	}
	return w, nil
}

func intDefault(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// parseBinding accepts data_source as name string or {name, args} object,
// as decoded by hcl (list of maps) or yaml (map).
func parseBinding(v interface{}, extraArgs []string) (screen.Binding, error) {
	var b screen.Binding
	switch x := v.(type) {
	case nil:
		return b, errors.NotValidf("data_source missing")
	case string:
		b.Source = x
	case map[string]interface{}:
		if err := bindingFromMap(&b, x); err != nil {
			return b, err
		}
	case []map[string]interface{}:
		// hcl yields one map per attribute of data_source block
		merged := make(map[string]interface{}, 2)
		for _, m := range x {
			for k, v := range m {
				if _, dup := merged[k]; dup {
					return b, errors.NotValidf("data_source.%s repeated", k)
				}
				merged[k] = v
			}
		}
		if err := bindingFromMap(&b, merged); err != nil {
			return b, err
		}
	default:
		return b, errors.NotValidf("data_source type %T", v)
	}
	if b.Source == "" {
		return b, errors.NotValidf("data_source name empty")
	}
	b.Args = append(b.Args, extraArgs...)
	return b, nil
}

func bindingFromMap(b *screen.Binding, m map[string]interface{}) error {
	name, ok := m["name"].(string)
	if !ok {
		return errors.NotValidf("data_source.name")
	}
	b.Source = name
	switch args := m["args"].(type) {
	case nil:
	case []interface{}:
		for _, a := range args {
			b.Args = append(b.Args, fmt.Sprint(a))
		}
	case []string:
		b.Args = append(b.Args, args...)
	case string:
		b.Args = append(b.Args, args)
	default:
		return errors.NotValidf("data_source.args type %T", args)
	}
	return nil
}
