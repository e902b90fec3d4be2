// Package render turns a screen and its resolved values into a frame.
// Layout produces draw instructions, Rasterize paints them. Both are deterministic.
package render

import (
	"image"
	"image/color"

	"github.com/serverdeck/serverdeck/internal/assets"
	"github.com/serverdeck/serverdeck/internal/screen"
	"github.com/serverdeck/serverdeck/internal/source"
	"golang.org/x/image/colornames"
)

const (
	DefaultTitleBarHeight = 30
	TitleX                = 40
	EmptyMessage          = "Error: No screens in config"

	arrowMargin     = 10
	arrowWidth      = 16
	arrowHalfHeight = 8
)

type Op interface{ op() }

type Fill struct {
	Rect  image.Rectangle
	Color color.RGBA
}

// Text top-left corner is At.
type Text struct {
	At    image.Point
	Text  string
	Font  string
	Color color.RGBA
}

type Polygon struct {
	Points []image.Point
	Color  color.RGBA
}

type Picture struct {
	At    image.Point
	Image image.Image
}

func (Fill) op()    {}
func (Text) op()    {}
func (Polygon) op() {}
func (Picture) op() {}

type Values interface {
	Resolve(b screen.Binding) []string
}

type Renderer struct {
	Size           image.Point
	Fonts          assets.FontTable
	Palette        screen.Palette
	TitleBarHeight int
}

func New(size image.Point, fonts assets.FontTable, palette screen.Palette) *Renderer {
	return &Renderer{
		Size:           size,
		Fonts:          fonts,
		Palette:        palette,
		TitleBarHeight: DefaultTitleBarHeight,
	}
}

func (self *Renderer) Render(s screen.Screen, v Values) *image.RGBA {
	return self.Rasterize(self.Layout(s, v))
}

// Layout returns draw instructions for screen, nil screen means empty configuration.
func (self *Renderer) Layout(s screen.Screen, v Values) []Op {
	switch s := s.(type) {
	case *screen.Hero:
		return self.hero(s)
	case *screen.Standard:
		ops := self.chrome()
		ops = append(ops, self.title(s))
		for _, w := range s.Widgets {
			ops = self.widget(ops, w, v)
		}
		return ops
	}
	ops := self.chrome()
	return append(ops, Text{
		At:    image.Point{X: 10, Y: 10},
		Text:  EmptyMessage,
		Font:  assets.FontMedium,
		Color: colornames.Red,
	})
}

// TitleBar is area occupied by title and arrows on standard screens.
func (self *Renderer) TitleBar() image.Rectangle {
	return image.Rect(0, 0, self.Size.X, self.TitleBarHeight)
}

func (self *Renderer) chrome() []Op {
	nav := self.Palette.Get(screen.ColorNavButtons, colornames.White)
	cy := self.TitleBarHeight / 2
	left := arrowMargin
	right := self.Size.X - arrowMargin
	return []Op{
		Fill{Rect: image.Rectangle{Max: self.Size}, Color: self.Palette.Get(screen.ColorContentBackground, colornames.Black)},
		Fill{Rect: self.TitleBar(), Color: self.Palette.Get(screen.ColorTitleBackground, colornames.Black)},
		Polygon{Color: nav, Points: []image.Point{
			{left, cy}, {left + arrowWidth, cy - arrowHalfHeight}, {left + arrowWidth, cy + arrowHalfHeight},
		}},
		Polygon{Color: nav, Points: []image.Point{
			{right, cy}, {right - arrowWidth, cy - arrowHalfHeight}, {right - arrowWidth, cy + arrowHalfHeight},
		}},
	}
}

func (self *Renderer) title(s *screen.Standard) Op {
	y := 0
	if face, ok := self.Fonts.Get(assets.FontLarge); ok {
		y = (self.TitleBarHeight - assets.Height(face)) / 2
	}
	if y < 0 {
		y = 0
	}
	return Text{At: image.Point{X: TitleX, Y: y}, Text: s.Title, Font: assets.FontLarge, Color: s.TitleColor}
}

func (self *Renderer) hero(s *screen.Hero) []Op {
	ops := []Op{Fill{Rect: image.Rectangle{Max: self.Size}, Color: self.Palette.Get(screen.ColorContentBackground, colornames.Black)}}
	if s.Image == nil {
		return ops
	}
	size := s.Image.Bounds().Size()
	at := image.Point{X: (self.Size.X - size.X) / 2, Y: (self.Size.Y - size.Y) / 2}
	return append(ops, Picture{At: at, Image: s.Image})
}

func (self *Renderer) widget(ops []Op, w screen.Widget, v Values) []Op {
	values := resolve(v, w.Binding(), screen.Arity(w))
	switch w := w.(type) {
	case *screen.LineItem:
		return append(ops,
			Text{At: w.Position, Text: w.Label, Font: w.Font, Color: w.LabelColor},
			Text{At: w.DataPos(), Text: values[0], Font: w.Font, Color: w.DataColor},
		)
	case *screen.LineItemWithSub:
		return append(ops,
			Text{At: w.Position, Text: w.Label, Font: w.Font, Color: w.LabelColor},
			Text{At: w.DataPos(), Text: values[0], Font: w.Font, Color: w.DataColor},
			Text{At: w.SubPos(), Text: "(" + values[1] + ")", Font: w.SubFont, Color: w.SubColor},
		)
	case *screen.DynamicText:
		return append(ops, Text{At: w.Position, Text: w.Text(values[0]), Font: w.Font, Color: w.Color})
	case *screen.StaticText:
		return append(ops, Text{At: w.Position, Text: values[0], Font: w.Font, Color: w.Color})
	}
	return ops
}

// resolve always returns n strings, missing values are placeholders.
func resolve(v Values, b screen.Binding, n int) []string {
	var got []string
	if v != nil {
		got = v.Resolve(b)
	}
	out := make([]string, n)
	for i := range out {
		if i < len(got) {
			out[i] = got[i]
		} else {
			out[i] = source.Unavailable
		}
	}
	return out
}
