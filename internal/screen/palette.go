package screen

import (
	"image/color"

	"golang.org/x/image/colornames"
)

// Palette keys.
const (
	ColorWidgetDefault     = "widget_default"
	ColorContentBackground = "content_background"
	ColorTitleBackground   = "title_background"
	ColorTitleText         = "title_text"
	ColorNavButtons        = "nav_buttons"
	ColorSubText           = "sub_text"
)

var defaultPalette = map[string]color.RGBA{
	ColorWidgetDefault:     colornames.White,
	ColorContentBackground: colornames.Black,
	ColorTitleBackground:   colornames.Black,
	ColorTitleText:         colornames.White,
	ColorNavButtons:        colornames.White,
	ColorSubText:           colornames.Gray,
}

type Palette map[string]color.RGBA

// Get returns palette entry, built-in default, or fallback.
func (p Palette) Get(key string, fallback color.RGBA) color.RGBA {
	if c, ok := p[key]; ok {
		return c
	}
	if c, ok := defaultPalette[key]; ok {
		return c
	}
	return fallback
}
