package config

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/image/colornames"
)

// ParseColor accepts SVG color names (case insensitive) and #rgb, #rrggbb hex.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return color.RGBA{}, errors.NotValidf("color=%s", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, errors.NotValidf("color=%s", s)
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return color.RGBA{}, errors.NotFoundf("color=%s", s)
}
