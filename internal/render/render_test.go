package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/serverdeck/serverdeck/internal/assets"
	"github.com/serverdeck/serverdeck/internal/screen"
	"github.com/serverdeck/serverdeck/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
)

type mapValues map[string][]string

func (m mapValues) Resolve(b screen.Binding) []string {
	if v, ok := m[b.Key()]; ok {
		return v
	}
	return []string{source.Unavailable, source.Unavailable}
}

var (
	white = colornames.White
	green = color.RGBA{0, 0xff, 0, 0xff}
	gray  = colornames.Gray
)

func newTestRenderer(t testing.TB) *Renderer {
	fonts, warnings := assets.LoadFonts(t.TempDir(), nil)
	require.Empty(t, warnings)
	return New(image.Point{X: 320, Y: 240}, fonts, screen.Palette{})
}

func texts(ops []Op) []Text {
	out := make([]Text, 0, len(ops))
	for _, op := range ops {
		if t, ok := op.(Text); ok {
			out = append(out, t)
		}
	}
	return out
}

func TestLineItem(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t)
	s := &screen.Standard{Title: "System", TitleColor: white, Widgets: []screen.Widget{
		&screen.LineItem{
			Position: image.Point{10, 10}, Label: "CPU", Source: screen.Binding{Source: "get_cpu_usage"},
			Font: assets.FontMedium, LabelColor: white, DataColor: green, DataXOffset: 60,
		},
	}}
	ops := r.Layout(s, mapValues{"get_cpu_usage": {"15.7%"}})
	ts := texts(ops)
	require.Len(t, ts, 3)
	assert.Equal(t, Text{At: image.Point{TitleX, ts[0].At.Y}, Text: "System", Font: assets.FontLarge, Color: white}, ts[0])
	assert.Equal(t, Text{At: image.Point{10, 10}, Text: "CPU", Font: assets.FontMedium, Color: white}, ts[1])
	assert.Equal(t, Text{At: image.Point{70, 10}, Text: "15.7%", Font: assets.FontMedium, Color: green}, ts[2])
}

func TestLineItemWithSub(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t)
	w := &screen.LineItemWithSub{
		LineItem: screen.LineItem{
			Position: image.Point{10, 50}, Label: "RAM", Source: screen.Binding{Source: "get_ram_info"},
			Font: assets.FontMedium, LabelColor: white, DataColor: white, DataXOffset: 140,
		},
		SubYOffset: 20, SubFont: assets.FontSmall, SubColor: gray,
	}
	s := &screen.Standard{Title: "Memory", Widgets: []screen.Widget{w}}

	ts := texts(r.Layout(s, mapValues{"get_ram_info": {"41.0%", "400/1000MB"}}))
	require.Len(t, ts, 4)
	assert.Equal(t, Text{At: image.Point{150, 50}, Text: "41.0%", Font: assets.FontMedium, Color: white}, ts[2])
	assert.Equal(t, Text{At: image.Point{150, 70}, Text: "(400/1000MB)", Font: assets.FontSmall, Color: gray}, ts[3])

	// failed source still draws placeholders
	ts = texts(r.Layout(s, mapValues{}))
	assert.Equal(t, "N/A", ts[2].Text)
	assert.Equal(t, "(N/A)", ts[3].Text)
}

func TestTextWidgets(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t)
	s := &screen.Standard{Widgets: []screen.Widget{
		&screen.DynamicText{Position: image.Point{10, 200}, Source: screen.Binding{Source: "get_uptime"}, Template: "Up: {data}", Font: assets.FontSmall, Color: white},
		&screen.StaticText{Position: image.Point{100, 100}, Source: screen.Binding{Source: "get_current_time", Args: []string{"15:04:05"}}, Font: assets.FontLarge, Color: white},
	}}
	ts := texts(r.Layout(s, mapValues{
		"get_uptime":                 {"3d 4h 12m"},
		"get_current_time(15:04:05)": {"09:05:07"},
	}))
	require.Len(t, ts, 3)
	assert.Equal(t, "Up: 3d 4h 12m", ts[1].Text)
	assert.Equal(t, image.Point{10, 200}, ts[1].At)
	assert.Equal(t, "09:05:07", ts[2].Text)
}

func TestHeroBypassesChrome(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t)
	img := image.NewRGBA(image.Rect(0, 0, 240, 240))
	ops := r.Layout(&screen.Hero{Source: "logo.png", Image: img}, nil)
	require.Len(t, ops, 2)
	assert.IsType(t, Fill{}, ops[0])
	assert.Equal(t, Picture{At: image.Point{40, 0}, Image: img}, ops[1])
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t)
	ts := texts(r.Layout(nil, nil))
	require.Len(t, ts, 1)
	assert.Equal(t, EmptyMessage, ts[0].Text)
	assert.Equal(t, colornames.Red, ts[0].Color)
}

func TestRasterizeDeterministic(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t)
	r.Palette = screen.Palette{screen.ColorTitleBackground: colornames.Navy, screen.ColorNavButtons: colornames.Yellow}
	s := &screen.Standard{Title: "Net", TitleColor: white, Widgets: []screen.Widget{
		&screen.StaticText{Position: image.Point{10, 100}, Source: screen.Binding{Source: "get_hostname"}, Font: assets.FontMedium, Color: green},
	}}
	v := mapValues{"get_hostname": {"raspberrypi"}}
	a := r.Render(s, v)
	b := r.Render(s, v)
	assert.Equal(t, a.Pix, b.Pix)

	// title bar background, arrow body, content background
	assert.Equal(t, colornames.Navy, a.RGBAAt(100, 2))
	assert.Equal(t, colornames.Yellow, a.RGBAAt(20, 15))
	assert.Equal(t, colornames.Yellow, a.RGBAAt(300, 15))
	assert.Equal(t, colornames.Black, a.RGBAAt(300, 230))

	found := false
	for y := 100; y < 125 && !found; y++ {
		for x := 10; x < 120; x++ {
			if c := a.RGBAAt(x, y); c.G > 0x80 && c.R < 0x40 {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "value text pixels")
}
