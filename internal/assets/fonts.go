// Package assets loads fonts and pictures used by screens.
package assets

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/juju/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Names that widgets and title bar use when config does not specify a font.
const (
	FontSmall  = "small"
	FontMedium = "medium"
	FontLarge  = "large"
)

var builtinSizes = map[string]float64{
	FontSmall:  14,
	FontMedium: 18,
	FontLarge:  22,
}

type FontSpec struct {
	Path string  `hcl:"path" yaml:"path"`
	Size float64 `hcl:"size" yaml:"size"`
}

type FontTable map[string]font.Face

func (t FontTable) Get(name string) (font.Face, bool) {
	f, ok := t[name]
	return f, ok
}

func (t FontTable) Names() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Height is line height in pixels.
func Height(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

// LoadFonts opens configured fonts relative to dir.
// Missing or broken font file is a warning and the bitmap face is used instead.
// Built-in names small, medium, large are always present.
func LoadFonts(dir string, specs map[string]FontSpec) (FontTable, []error) {
	warnings := make([]error, 0)
	table := make(FontTable, len(specs)+len(builtinSizes))
	parsed := make(map[string]*opentype.Font)

	names := make([]string, 0, len(specs))
	for n := range specs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := specs[name]
		face, err := loadFace(dir, spec, parsed)
		if err != nil {
			warnings = append(warnings, errors.Annotatef(err, "font=%s using built-in bitmap font", name))
			face = basicfont.Face7x13
		}
		table[name] = face
	}

	for name, size := range builtinSizes {
		if _, ok := table[name]; ok {
			continue
		}
		face, err := goFace(size)
		if err != nil {
			warnings = append(warnings, errors.Annotatef(err, "built-in font=%s", name))
			face = basicfont.Face7x13
		}
		table[name] = face
	}
	return table, warnings
}

func loadFace(dir string, spec FontSpec, parsed map[string]*opentype.Font) (font.Face, error) {
	if spec.Path == "" {
		return nil, errors.NotValidf("empty path")
	}
	if spec.Size <= 0 {
		return nil, errors.NotValidf("size=%v", spec.Size)
	}
	path := spec.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	f, ok := parsed[path]
	if !ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		f, err = opentype.Parse(data)
		if err != nil {
			return nil, errors.Annotatef(err, "parse %s", path)
		}
		parsed[path] = f
	}
	return newFace(f, spec.Size)
}

var goRegular struct {
	once sync.Once
	f    *opentype.Font
	err  error
}

func goFace(size float64) (font.Face, error) {
	goRegular.once.Do(func() { goRegular.f, goRegular.err = opentype.Parse(goregular.TTF) })
	if goRegular.err != nil {
		return nil, goRegular.err
	}
	return newFace(goRegular.f, size)
}

// size is pixel height, at 72 DPI points equal pixels.
func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
