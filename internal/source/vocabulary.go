package source

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/internal/screen"
)

type Kind uint8

const (
	// KindDirect values come straight from provider.
	KindDirect Kind = iota
	// KindRate is bytes per second derived from counter deltas.
	KindRate
)

type Arg struct {
	Name     string
	Required bool
	Default  string
}

type Def struct {
	Name     string
	Arity    int
	Args     []Arg
	Interval time.Duration
	Kind     Kind
}

func (d *Def) String() string {
	b := strings.Builder{}
	b.WriteString(d.Name)
	for _, a := range d.Args {
		if a.Required {
			fmt.Fprintf(&b, " %s", a.Name)
		} else {
			fmt.Fprintf(&b, " [%s=%s]", a.Name, a.Default)
		}
	}
	return b.String()
}

// Normalize checks arguments against schema and fills defaults.
func (d *Def) Normalize(args []string) ([]string, error) {
	if len(args) > len(d.Args) {
		return nil, errors.NotValidf("source=%s takes %d arguments, given %d", d.Name, len(d.Args), len(args))
	}
	out := make([]string, len(d.Args))
	for i, a := range d.Args {
		if i < len(args) && args[i] != "" {
			out[i] = args[i]
			continue
		}
		if a.Required {
			return nil, errors.NotValidf("source=%s missing required argument %s", d.Name, a.Name)
		}
		out[i] = a.Default
	}
	if len(out) == 0 {
		out = nil
	}
	return out, nil
}

const (
	slow   = 60 * time.Second
	medium = 10 * time.Second
	fast   = 2 * time.Second
	second = 1 * time.Second
)

var (
	argPath   = Arg{Name: "path", Default: "/"}
	argIface  = Arg{Name: "iface", Required: true}
	argLayout = Arg{Name: "layout", Default: "15:04:05"}
)

var vocabulary = []Def{
	{Name: "get_hostname", Arity: 1, Interval: slow},
	{Name: "get_os_info", Arity: 1, Interval: slow},
	{Name: "get_kernel_version", Arity: 1, Interval: slow},
	{Name: "get_uptime", Arity: 1, Interval: second},
	{Name: "get_cpu_temperature", Arity: 1, Interval: fast},
	{Name: "get_cpu_usage", Arity: 1, Interval: second},
	{Name: "get_cpu_cores", Arity: 1, Interval: slow},
	{Name: "get_cpu_frequency", Arity: 1, Interval: fast},
	{Name: "get_cpu_max_frequency", Arity: 1, Interval: slow},
	{Name: "get_ram_percent", Arity: 1, Interval: fast},
	{Name: "get_ram_summary", Arity: 1, Interval: fast},
	{Name: "get_ram_info", Arity: 2, Interval: fast},
	{Name: "get_disk_percent", Arity: 1, Args: []Arg{argPath}, Interval: medium},
	{Name: "get_disk_summary", Arity: 1, Args: []Arg{argPath}, Interval: medium},
	{Name: "get_disk_space", Arity: 2, Args: []Arg{argPath}, Interval: medium},
	{Name: "get_ip_address", Arity: 1, Interval: medium},
	{Name: "get_interface_ip", Arity: 1, Args: []Arg{argIface}, Interval: medium},
	{Name: "get_interface_mac", Arity: 1, Args: []Arg{argIface}, Interval: slow},
	{Name: "get_interface_rx", Arity: 1, Args: []Arg{argIface}, Interval: second, Kind: KindRate},
	{Name: "get_interface_tx", Arity: 1, Args: []Arg{argIface}, Interval: second, Kind: KindRate},
	{Name: "get_current_time", Arity: 1, Args: []Arg{argLayout}, Interval: second},
}

var byName = func() map[string]*Def {
	m := make(map[string]*Def, len(vocabulary))
	for i := range vocabulary {
		m[vocabulary[i].Name] = &vocabulary[i]
	}
	return m
}()

func Lookup(name string) (*Def, bool) {
	d, ok := byName[name]
	return d, ok
}

// Vocabulary returns copy of all definitions sorted by name.
func Vocabulary() []Def {
	out := make([]Def, len(vocabulary))
	copy(out, vocabulary)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks binding against vocabulary and widget arity, returns normalized binding.
func Validate(b screen.Binding, arity int) (screen.Binding, error) {
	d, ok := Lookup(b.Source)
	if !ok {
		return b, errors.NotFoundf("data source=%s", b.Source)
	}
	if d.Arity != arity {
		return b, errors.NotValidf("data source=%s arity=%d widget needs %d", d.Name, d.Arity, arity)
	}
	args, err := d.Normalize(b.Args)
	if err != nil {
		return b, err
	}
	return screen.Binding{Source: d.Name, Args: args}, nil
}
