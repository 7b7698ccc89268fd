package render

import (
	"math"

	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/script"
)

// =============================================================================
// Point
// =============================================================================

// Point is a script-visible 2D position.
type Point struct {
	X, Y float64
}

// NewPoint returns a Point at (x, y).
func NewPoint(x, y float64) *Point { return &Point{X: x, Y: y} }

func pointClass() script.Class {
	return script.Class{
		Name:       "Point",
		Properties: []string{"x", "y"},
		Methods:    []string{"distance", "offset", "copy"},
		New: func(args script.Args) (script.Object, error) {
			if args.Len() == 0 {
				return &Point{}, nil
			}
			x, y, _, err := pointArg(args, 0)
			if err != nil {
				return nil, err
			}
			return &Point{X: x, Y: y}, nil
		},
	}
}

// ClassName implements script.Object.
func (p *Point) ClassName() string { return "Point" }

// GetProperty implements script.Object.
func (p *Point) GetProperty(name string) (any, error) {
	switch name {
	case "x":
		return p.X, nil
	case "y":
		return p.Y, nil
	}
	return nil, nil
}

// SetProperty implements script.Object.
func (p *Point) SetProperty(name string, v any) error {
	f, err := script.ToFloat(v)
	if err != nil {
		return err
	}
	switch name {
	case "x":
		p.X = f
	case "y":
		p.Y = f
	}
	return nil
}

// Invoke implements script.Object.
func (p *Point) Invoke(method string, args script.Args) (any, error) {
	switch method {
	case "distance":
		x, y, _, err := pointArg(args, 0)
		if err != nil {
			return nil, err
		}
		return math.Hypot(x-p.X, y-p.Y), nil
	case "offset":
		dx, dy, _, err := pointArg(args, 0)
		if err != nil {
			return nil, err
		}
		p.X += dx
		p.Y += dy
		return p, nil
	case "copy":
		return &Point{X: p.X, Y: p.Y}, nil
	}
	return nil, nil
}

// pointArg reads a point starting at args[i], given either as a Point or as
// two numbers. It returns the index of the next unread argument.
func pointArg(args script.Args, i int) (x, y float64, next int, err error) {
	if i < args.Len() {
		if p, ok := args[i].(*Point); ok {
			return p.X, p.Y, i + 1, nil
		}
	}
	if x, err = args.Float(i); err != nil {
		return 0, 0, i, err
	}
	if y, err = args.Float(i + 1); err != nil {
		return 0, 0, i, err
	}
	return x, y, i + 2, nil
}

// =============================================================================
// Rect
// =============================================================================

// Rect is a script-visible axis-aligned rectangle. X and Y are the top-left
// corner in the coordinate space of whatever it describes.
type Rect struct {
	X, Y, Width, Height float64
}

// NewRect returns a Rect with the given origin and size.
func NewRect(x, y, w, h float64) *Rect { return &Rect{X: x, Y: y, Width: w, Height: h} }

func rectClass() script.Class {
	return script.Class{
		Name:       "Rect",
		Properties: []string{"x", "y", "width", "height", "midX", "midY", "maxX", "maxY"},
		ReadOnly:   []string{"midX", "midY", "maxX", "maxY"},
		Methods:    []string{"inset", "offset", "contains", "copy"},
		New: func(args script.Args) (script.Object, error) {
			if args.Len() == 0 {
				return &Rect{}, nil
			}
			x, y, w, h, _, err := rectArg(args, 0)
			if err != nil {
				return nil, err
			}
			return &Rect{X: x, Y: y, Width: w, Height: h}, nil
		},
	}
}

// ClassName implements script.Object.
func (r *Rect) ClassName() string { return "Rect" }

// GetProperty implements script.Object.
func (r *Rect) GetProperty(name string) (any, error) {
	switch name {
	case "x":
		return r.X, nil
	case "y":
		return r.Y, nil
	case "width":
		return r.Width, nil
	case "height":
		return r.Height, nil
	case "midX":
		return r.X + r.Width/2, nil
	case "midY":
		return r.Y + r.Height/2, nil
	case "maxX":
		return r.X + r.Width, nil
	case "maxY":
		return r.Y + r.Height, nil
	}
	return nil, nil
}

// SetProperty implements script.Object.
func (r *Rect) SetProperty(name string, v any) error {
	f, err := script.ToFloat(v)
	if err != nil {
		return err
	}
	switch name {
	case "x":
		r.X = f
	case "y":
		r.Y = f
	case "width":
		r.Width = f
	case "height":
		r.Height = f
	}
	return nil
}

// Invoke implements script.Object.
func (r *Rect) Invoke(method string, args script.Args) (any, error) {
	switch method {
	case "inset":
		dx, err := args.Float(0)
		if err != nil {
			return nil, err
		}
		dy, err := args.FloatOr(1, dx)
		if err != nil {
			return nil, err
		}
		r.X += dx
		r.Y += dy
		r.Width -= 2 * dx
		r.Height -= 2 * dy
		return r, nil
	case "offset":
		dx, dy, _, err := pointArg(args, 0)
		if err != nil {
			return nil, err
		}
		r.X += dx
		r.Y += dy
		return r, nil
	case "contains":
		x, y, _, err := pointArg(args, 0)
		if err != nil {
			return nil, err
		}
		return r.Contains(x, y), nil
	case "copy":
		return &Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, nil
	}
	return nil, nil
}

// Contains reports whether (x, y) lies inside r. The right and bottom edges
// are exclusive.
func (r *Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// rectArg reads a rectangle starting at args[i], given either as a Rect or
// as four numbers.
func rectArg(args script.Args, i int) (x, y, w, h float64, next int, err error) {
	if i < args.Len() {
		if r, ok := args[i].(*Rect); ok {
			return r.X, r.Y, r.Width, r.Height, i + 1, nil
		}
	}
	if args.Len()-i < 4 {
		return 0, 0, 0, 0, i, errors.New(errors.ErrCodeMethodArgument,
			"argument %d: expected a Rect or x, y, width, height", i+1)
	}
	vals, err := script.Args(args[i : i+4]).Floats(0)
	if err != nil {
		return 0, 0, 0, 0, i, err
	}
	return vals[0], vals[1], vals[2], vals[3], i + 4, nil
}
