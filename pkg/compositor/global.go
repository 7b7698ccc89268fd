package compositor

import (
	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/raster"
	"github.com/topdraw/topdraw/pkg/render"
	"github.com/topdraw/topdraw/pkg/script"
)

// global is the script-visible `compositor` object.
type global struct {
	c *Compositor
}

func globalClass() script.Class {
	return script.Class{
		Name:       "Compositor",
		Properties: []string{"name", "seed", "width", "height"},
		ReadOnly:   []string{"name", "seed", "width", "height"},
		Methods:    []string{"addLayer", "requireVersion"},
		New: func(script.Args) (script.Object, error) {
			return nil, errors.New(errors.ErrCodeUnsupported, "use the global compositor object")
		},
	}
}

func (g *global) ClassName() string { return "Compositor" }

func (g *global) GetProperty(name string) (any, error) {
	switch name {
	case "name":
		return g.c.name, nil
	case "seed":
		return float64(g.c.seed), nil
	case "width":
		return float64(g.c.size.X), nil
	case "height":
		return float64(g.c.size.Y), nil
	}
	return nil, nil
}

func (g *global) SetProperty(string, any) error { return nil }

func (g *global) Invoke(method string, args script.Args) (any, error) {
	switch method {
	case "addLayer":
		o, err := args.Object(0, "Layer")
		if err != nil {
			return nil, err
		}
		l := o.(*render.Layer)
		mode := l.Mode()
		if args.Has(1) {
			name, err := args.String(1)
			if err != nil {
				return nil, err
			}
			if mode, err = raster.ModeFromName(name); err != nil {
				return nil, err
			}
		}
		return l, g.c.addLayer(l, mode)
	case "requireVersion":
		v, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		return nil, g.c.requireVersion(v)
	}
	return nil, nil
}
