// Package screen is the declarative page model: screens, widgets and their data bindings.
// Values are built once by config and never modified.
package screen

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Binding names a data source and its positional arguments.
// Bindings with equal Key share one cached value.
type Binding struct {
	Source string
	Args   []string
}

func (b Binding) Key() string {
	if len(b.Args) == 0 {
		return b.Source
	}
	return b.Source + "(" + strings.Join(b.Args, ",") + ")"
}

func (b Binding) String() string { return b.Key() }

type Screen interface {
	// Name is title for standard screens, image name for hero.
	Name() string
	Bindings() []Binding
	screen()
}

type Standard struct {
	Title      string
	TitleColor color.RGBA
	Widgets    []Widget
}

func (s *Standard) Name() string { return s.Title }
func (s *Standard) Bindings() []Binding {
	bs := make([]Binding, 0, len(s.Widgets))
	for _, w := range s.Widgets {
		bs = append(bs, w.Binding())
	}
	return bs
}
func (*Standard) screen() {}

// Hero shows one picture, fitted to display at load time.
type Hero struct {
	Source string // image path or "qr:<text>"
	Image  image.Image
}

func (h *Hero) Name() string      { return h.Source }
func (*Hero) Bindings() []Binding { return nil }
func (*Hero) screen()             {}

type Widget interface {
	Pos() image.Point
	Binding() Binding
	widget()
}

// LineItem draws "label   value".
type LineItem struct {
	Position    image.Point
	Label       string
	Source      Binding
	Font        string
	LabelColor  color.RGBA
	DataColor   color.RGBA
	DataXOffset int
}

func (w *LineItem) Pos() image.Point { return w.Position }
func (w *LineItem) Binding() Binding { return w.Source }
func (w *LineItem) DataPos() image.Point {
	return image.Point{X: w.Position.X + w.DataXOffset, Y: w.Position.Y}
}
func (*LineItem) widget() {}

// LineItemWithSub is LineItem plus second value of arity 2 source below the first.
type LineItemWithSub struct {
	LineItem
	SubYOffset int
	SubFont    string
	SubColor   color.RGBA
}

func (w *LineItemWithSub) SubPos() image.Point {
	p := w.DataPos()
	p.Y += w.SubYOffset
	return p
}

type DynamicText struct {
	Position image.Point
	Source   Binding
	Font     string
	Color    color.RGBA
	Template string
}

func (w *DynamicText) Pos() image.Point { return w.Position }
func (w *DynamicText) Binding() Binding { return w.Source }
func (*DynamicText) widget()            {}

// Text substitutes value into template placeholder.
func (w *DynamicText) Text(value string) string {
	return strings.Replace(w.Template, Placeholder, value, 1)
}

type StaticText struct {
	Position image.Point
	Source   Binding
	Font     string
	Color    color.RGBA
}

func (w *StaticText) Pos() image.Point { return w.Position }
func (w *StaticText) Binding() Binding { return w.Source }
func (*StaticText) widget()            {}

const Placeholder = "{data}"

// Widget type names in configuration.
const (
	TypeLineItem        = "line_item"
	TypeLineItemWithSub = "line_item_with_sub"
	TypeDynamicText     = "dynamic_text"
	TypeStaticText      = "static_text"
)

// Arity is number of values widget consumes from its source.
func Arity(w Widget) int {
	if _, ok := w.(*LineItemWithSub); ok {
		return 2
	}
	return 1
}

func TypeName(w Widget) string {
	switch w.(type) {
	case *LineItem:
		return TypeLineItem
	case *LineItemWithSub:
		return TypeLineItemWithSub
	case *DynamicText:
		return TypeDynamicText
	case *StaticText:
		return TypeStaticText
	}
	panic(fmt.Sprintf("code error unknown widget %T", w))
}
