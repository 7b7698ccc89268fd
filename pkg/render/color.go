package render

import (
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/script"
)

// Color is a script-visible RGBA colour with channels in [0, 1].
type Color struct {
	R, G, B, A float64
}

// NewColor returns an opaque colour, clamping each channel to [0, 1].
func NewColor(r, g, b, a float64) *Color {
	return &Color{R: clamp01(r), G: clamp01(g), B: clamp01(b), A: clamp01(a)}
}

func colorClass() script.Class {
	return script.Class{
		Name:       "Color",
		Properties: []string{"r", "g", "b", "a", "hue", "saturation", "brightness"},
		Methods:    []string{"blend", "darker", "lighter", "copy"},
		New:        newColorFromArgs,
	}
}

// newColorFromArgs accepts:
//
//	Color()                 opaque black
//	Color(gray [, a])
//	Color(r, g, b [, a])
//	Color("name" [, a])     CSS colour name or #rrggbb
//	Color(other)            copy
func newColorFromArgs(args script.Args) (script.Object, error) {
	switch {
	case args.Len() == 0:
		return &Color{A: 1}, nil
	case args.Len() >= 1:
		if c, ok := args[0].(*Color); ok {
			return c.copy(), nil
		}
		if name, ok := args[0].(string); ok {
			c, err := ParseColor(name)
			if err != nil {
				return nil, err
			}
			if args.Has(1) {
				a, err := args.Float(1)
				if err != nil {
					return nil, err
				}
				c.A = clamp01(a)
			}
			return c, nil
		}
	}

	if args.Len() <= 2 {
		gray, err := args.Float(0)
		if err != nil {
			return nil, err
		}
		a, err := args.FloatOr(1, 1)
		if err != nil {
			return nil, err
		}
		return NewColor(gray, gray, gray, a), nil
	}
	vals, err := args.Floats(0)
	if err != nil {
		return nil, err
	}
	a := 1.0
	if len(vals) > 3 {
		a = vals[3]
	}
	return NewColor(vals[0], vals[1], vals[2], a), nil
}

// ParseColor parses a CSS colour name ("tomato") or a hex triplet
// ("#ff6347", "#f63").
func ParseColor(s string) (*Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if len(s) == 4 {
			s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodePropertyCoercion, err, "invalid colour %q", s)
		}
		return &Color{R: c.R, G: c.G, B: c.B, A: 1}, nil
	}
	rgba, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return nil, errors.New(errors.ErrCodePropertyCoercion, "unknown colour name %q", s)
	}
	return &Color{
		R: float64(rgba.R) / 255,
		G: float64(rgba.G) / 255,
		B: float64(rgba.B) / 255,
		A: float64(rgba.A) / 255,
	}, nil
}

// ClassName implements script.Object.
func (c *Color) ClassName() string { return "Color" }

// GetProperty implements script.Object.
func (c *Color) GetProperty(name string) (any, error) {
	switch name {
	case "r":
		return c.R, nil
	case "g":
		return c.G, nil
	case "b":
		return c.B, nil
	case "a":
		return c.A, nil
	}
	h, s, v := c.hsv()
	switch name {
	case "hue":
		return h, nil
	case "saturation":
		return s, nil
	case "brightness":
		return v, nil
	}
	return nil, nil
}

// SetProperty implements script.Object.
func (c *Color) SetProperty(name string, v any) error {
	f, err := script.ToFloat(v)
	if err != nil {
		return err
	}
	f = clamp01(f)
	switch name {
	case "r":
		c.R = f
	case "g":
		c.G = f
	case "b":
		c.B = f
	case "a":
		c.A = f
	case "hue", "saturation", "brightness":
		h, s, b := c.hsv()
		switch name {
		case "hue":
			h = f
		case "saturation":
			s = f
		default:
			b = f
		}
		c.setHSV(h, s, b)
	}
	return nil
}

// Invoke implements script.Object.
func (c *Color) Invoke(method string, args script.Args) (any, error) {
	switch method {
	case "blend":
		o, err := args.Object(0, "Color")
		if err != nil {
			return nil, err
		}
		t, err := args.FloatOr(1, 0.5)
		if err != nil {
			return nil, err
		}
		return c.Blend(o.(*Color), t), nil
	case "darker", "lighter":
		amt, err := args.FloatOr(0, 0.1)
		if err != nil {
			return nil, err
		}
		if method == "darker" {
			amt = -amt
		}
		out := c.copy()
		h, s, v := out.hsv()
		out.setHSV(h, s, clamp01(v+amt))
		return out, nil
	case "copy":
		return c.copy(), nil
	}
	return nil, nil
}

// Blend returns the colour t of the way from c to o, interpolating RGB and
// alpha linearly.
func (c *Color) Blend(o *Color, t float64) *Color {
	t = clamp01(t)
	m := c.colorful().BlendRgb(o.colorful(), t)
	return &Color{R: m.R, G: m.G, B: m.B, A: c.A + (o.A-c.A)*t}
}

// NRGBA converts c to an 8-bit straight-alpha colour.
func (c *Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

func (c *Color) copy() *Color {
	cp := *c
	return &cp
}

func (c *Color) colorful() colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

// hsv returns hue, saturation and brightness, each in [0, 1].
func (c *Color) hsv() (h, s, v float64) {
	h, s, v = c.colorful().Hsv()
	return h / 360, s, v
}

func (c *Color) setHSV(h, s, v float64) {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	n := colorful.Hsv(h*360, s, v).Clamped()
	c.R, c.G, c.B = n.R, n.G, n.B
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

func to8(f float64) uint8 {
	return uint8(math.Round(clamp01(f) * 255))
}
