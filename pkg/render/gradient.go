package render

import (
	"image/color"
	"math"
	"sort"

	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/raster"
	"github.com/topdraw/topdraw/pkg/script"
)

// Gradient is a linear colour ramp usable as a layer fill style.
//
// Angle is in degrees, measured counter-clockwise from the positive x axis:
// 0 runs left to right, 90 runs bottom to top.
type Gradient struct {
	Angle float64
	stops []gradientStop
}

type gradientStop struct {
	at    float64
	color Color
}

func gradientClass() script.Class {
	return script.Class{
		Name:       "Gradient",
		Properties: []string{"angle"},
		Methods:    []string{"addColorStop", "colorAt"},
		New: func(args script.Args) (script.Object, error) {
			g := &Gradient{}
			for i := 0; i < args.Len(); i++ {
				c, err := args.Object(i, "Color")
				if err != nil {
					return nil, err
				}
				at := 0.0
				if args.Len() > 1 {
					at = float64(i) / float64(args.Len()-1)
				}
				g.AddStop(c.(*Color), at)
			}
			return g, nil
		},
	}
}

// AddStop inserts a colour stop at position at, clamped to [0, 1]. Stops at
// equal positions keep their insertion order.
func (g *Gradient) AddStop(c *Color, at float64) {
	s := gradientStop{at: clamp01(at), color: *c}
	i := sort.Search(len(g.stops), func(i int) bool { return g.stops[i].at > s.at })
	g.stops = append(g.stops, gradientStop{})
	copy(g.stops[i+1:], g.stops[i:])
	g.stops[i] = s
}

// At returns the colour at position t in [0, 1].
func (g *Gradient) At(t float64) Color {
	switch {
	case len(g.stops) == 0:
		return Color{}
	case t <= g.stops[0].at:
		return g.stops[0].color
	case t >= g.stops[len(g.stops)-1].at:
		return g.stops[len(g.stops)-1].color
	}
	for i := 1; i < len(g.stops); i++ {
		lo, hi := g.stops[i-1], g.stops[i]
		if t <= hi.at {
			span := hi.at - lo.at
			if span == 0 {
				return hi.color
			}
			return *lo.color.Blend(&hi.color, (t-lo.at)/span)
		}
	}
	return g.stops[len(g.stops)-1].color
}

// ClassName implements script.Object.
func (g *Gradient) ClassName() string { return "Gradient" }

// GetProperty implements script.Object.
func (g *Gradient) GetProperty(string) (any, error) {
	return g.Angle, nil
}

// SetProperty implements script.Object.
func (g *Gradient) SetProperty(_ string, v any) error {
	f, err := script.ToFloat(v)
	if err != nil {
		return err
	}
	g.Angle = f
	return nil
}

// Invoke implements script.Object.
func (g *Gradient) Invoke(method string, args script.Args) (any, error) {
	switch method {
	case "addColorStop":
		c, err := args.Object(0, "Color")
		if err != nil {
			return nil, err
		}
		at, err := args.Float(1)
		if err != nil {
			return nil, err
		}
		g.AddStop(c.(*Color), at)
		return g, nil
	case "colorAt":
		t, err := args.Float(0)
		if err != nil {
			return nil, err
		}
		c := g.At(t)
		return &c, nil
	}
	return nil, nil
}

// shader returns a per-pixel colour function that spreads the gradient
// across the rectangle (x0, y0, w, h) along Angle. Colours are quantised
// to a lookup table so filling large areas stays cheap.
func (g *Gradient) shader(x0, y0, w, h float64) (raster.Shader, error) {
	if len(g.stops) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "gradient has no color stops")
	}
	rad := g.Angle * math.Pi / 180
	dx, dy := math.Cos(rad), -math.Sin(rad)

	// Project the rectangle's corners to find the extent along the axis.
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range [4][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		p := c[0]*dx + c[1]*dy
		lo, hi = math.Min(lo, p), math.Max(hi, p)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	const steps = 1024
	lut := make([]color.RGBA, steps+1)
	for i := range lut {
		c := g.At(float64(i) / steps)
		lut[i] = raster.Premultiply(c.NRGBA())
	}
	return func(x, y int) color.RGBA {
		px, py := float64(x)+0.5-x0, float64(y)+0.5-y0
		t := (px*dx + py*dy - lo) / span
		return lut[int(math.Round(clamp01(t)*steps))]
	}, nil
}
