// Package raster implements the pixel operations behind layers: blend modes,
// layer compositing and anti-aliased polygon painting into *image.RGBA
// buffers.
//
// All buffers hold premultiplied RGBA, the layout of image.RGBA. Compositing
// follows the W3C Compositing and Blending Level 1 model: the blend function
// B(Cb, Cs) mixes unpremultiplied colours, and the result is combined with
// source-over alpha compositing.
package raster

import (
	"fmt"
	"strings"

	"github.com/topdraw/topdraw/pkg/errors"
)

// Mode is a pixel-combination operator applied when a layer is composited
// onto its parent.
type Mode uint8

// Blend modes, in the order they are listed by [Modes].
const (
	Normal Mode = iota
	Multiply
	Screen
	Overlay
	Darken
	Lighten
	ColorDodge
	ColorBurn
	SoftLight
	HardLight
	Difference
	Exclusion
	Hue
	Saturation
	Color
	Luminosity

	modeCount
)

// modeNames is the canonical name of every mode, indexed by Mode.
var modeNames = [modeCount]string{
	Normal:     "normal",
	Multiply:   "multiply",
	Screen:     "screen",
	Overlay:    "overlay",
	Darken:     "darken",
	Lighten:    "lighten",
	ColorDodge: "colorDodge",
	ColorBurn:  "colorBurn",
	SoftLight:  "softLight",
	HardLight:  "hardLight",
	Difference: "difference",
	Exclusion:  "exclusion",
	Hue:        "hue",
	Saturation: "saturation",
	Color:      "color",
	Luminosity: "luminosity",
}

// modesByName maps lower-cased names to modes.
var modesByName = func() map[string]Mode {
	m := make(map[string]Mode, modeCount)
	for i, name := range modeNames {
		m[strings.ToLower(name)] = Mode(i)
	}
	return m
}()

// Modes returns every supported blend mode.
func Modes() []Mode {
	out := make([]Mode, modeCount)
	for i := range out {
		out[i] = Mode(i)
	}
	return out
}

// Name returns the canonical script-visible name of m.
// ModeFromName(m.Name()) always yields m.
func (m Mode) Name() string {
	if m >= modeCount {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// String implements fmt.Stringer.
func (m Mode) String() string { return m.Name() }

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool { return m < modeCount }

// ModeFromName parses a blend mode name. Matching ignores case, so "ColorBurn"
// and "colorburn" both select ColorBurn.
func ModeFromName(name string) (Mode, error) {
	if m, ok := modesByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m, nil
	}
	return Normal, errors.New(errors.ErrCodeInvalidInput, "unknown blend mode %q", name)
}
