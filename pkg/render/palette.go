package render

import (
	"github.com/topdraw/topdraw/pkg/script"
)

// Palette is an ordered set of colours scripts pick from at random.
type Palette struct {
	colors []*Color
	env    *Env
}

func paletteClass(env *Env) script.Class {
	return script.Class{
		Name:       "Palette",
		Properties: []string{"count"},
		ReadOnly:   []string{"count"},
		Methods:    []string{"addColor", "randomColor", "colors"},
		New: func(args script.Args) (script.Object, error) {
			p := &Palette{env: env}
			for i := 0; i < args.Len(); i++ {
				c, err := args.Object(i, "Color")
				if err != nil {
					return nil, err
				}
				p.Add(c.(*Color))
			}
			return p, nil
		},
	}
}

// Add appends a copy of c.
func (p *Palette) Add(c *Color) {
	p.colors = append(p.colors, c.copy())
}

// Random returns a copy of a colour chosen with one draw from the shared
// stream, or opaque black when the palette is empty.
func (p *Palette) Random() *Color {
	if len(p.colors) == 0 {
		p.env.logf("randomColor called on an empty Palette")
		return &Color{A: 1}
	}
	return p.colors[p.env.Stream.Intn(len(p.colors))].copy()
}

// ClassName implements script.Object.
func (p *Palette) ClassName() string { return "Palette" }

// GetProperty implements script.Object.
func (p *Palette) GetProperty(string) (any, error) {
	return float64(len(p.colors)), nil
}

// SetProperty implements script.Object. Palette has no writable properties.
func (p *Palette) SetProperty(string, any) error { return nil }

// Invoke implements script.Object.
func (p *Palette) Invoke(method string, args script.Args) (any, error) {
	switch method {
	case "addColor":
		c, err := args.Object(0, "Color")
		if err != nil {
			return nil, err
		}
		p.Add(c.(*Color))
		return p, nil
	case "randomColor":
		return p.Random(), nil
	case "colors":
		out := make([]script.Object, len(p.colors))
		for i, c := range p.colors {
			out[i] = c.copy()
		}
		return out, nil
	}
	return nil, nil
}
