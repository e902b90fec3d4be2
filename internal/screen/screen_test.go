package screen

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/image/colornames"
)

func TestBindingKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "get_hostname", Binding{Source: "get_hostname"}.Key())
	assert.Equal(t, "get_disk_space(/home)", Binding{Source: "get_disk_space", Args: []string{"/home"}}.Key())
	assert.Equal(t,
		Binding{Source: "get_interface_rx", Args: []string{"eth0"}}.Key(),
		Binding{Source: "get_interface_rx", Args: []string{"eth0"}}.String())
}

func TestWidgetGeometry(t *testing.T) {
	t.Parallel()

	w := &LineItemWithSub{
		LineItem:   LineItem{Position: image.Point{10, 50}, DataXOffset: 140},
		SubYOffset: 20,
	}
	assert.Equal(t, image.Point{150, 50}, w.DataPos())
	assert.Equal(t, image.Point{150, 70}, w.SubPos())
	assert.Equal(t, 2, Arity(w))
	assert.Equal(t, TypeLineItemWithSub, TypeName(w))
	assert.Equal(t, 1, Arity(&StaticText{}))

	d := &DynamicText{Template: "Up {data} now {data}"}
	assert.Equal(t, "Up 3d now {data}", d.Text("3d"))
}

func TestScreenBindings(t *testing.T) {
	t.Parallel()

	b := Binding{Source: "get_cpu_usage"}
	s := &Standard{Title: "CPU", Widgets: []Widget{
		&LineItem{Source: b},
		&StaticText{Source: Binding{Source: "get_current_time"}},
	}}
	assert.Equal(t, []Binding{b, {Source: "get_current_time"}}, s.Bindings())
	assert.Equal(t, "CPU", s.Name())
	assert.Nil(t, (&Hero{Source: "logo.png"}).Bindings())
}

func TestPalette(t *testing.T) {
	t.Parallel()

	red := color.RGBA{0xff, 0, 0, 0xff}
	p := Palette{ColorWidgetDefault: red}
	assert.Equal(t, red, p.Get(ColorWidgetDefault, colornames.Blue))
	assert.Equal(t, colornames.Gray, p.Get(ColorSubText, colornames.Blue))
	assert.Equal(t, colornames.Blue, p.Get("unknown", colornames.Blue))
}
