package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/raster"
	"github.com/topdraw/topdraw/pkg/script"
)

// Layer is a raster surface with a frame, drawing styles and a blend mode.
type Layer struct {
	frame     image.Rectangle
	pix       *image.RGBA
	fill      script.Object // *Color or *Gradient
	stroke    *Color
	lineWidth float64
	mode      raster.Mode

	path    []raster.Point // vertices of the path-based primitive being drawn
	painter raster.Painter

	gen      uint64
	released bool
	env      *Env
}

// NewLayer allocates a transparent layer covering frame.
func NewLayer(env *Env, frame image.Rectangle) (*Layer, error) {
	l := &Layer{
		fill:      &Color{R: 1, G: 1, B: 1, A: 1},
		stroke:    &Color{A: 1},
		lineWidth: 1,
		mode:      raster.Normal,
		env:       env,
	}
	if err := l.SetFrame(frame); err != nil {
		return nil, err
	}
	return l, nil
}

func layerClass(env *Env) script.Class {
	return script.Class{
		Name:       "Layer",
		Properties: []string{"fillStyle", "strokeStyle", "lineWidth", "blendMode", "frame", "bounds"},
		ReadOnly:   []string{"frame", "bounds"},
		Methods: []string{
			"fillRect", "strokeRect", "fillEllipse", "strokeLine", "fillLayer", "clear",
			"drawText", "drawNoise", "drawWavyLine", "drawLayer",
		},
		New: func(args script.Args) (script.Object, error) {
			if args.Len() == 0 {
				return NewLayer(env, env.Canvas)
			}
			x, y, w, h, _, err := rectArg(args, 0)
			if err != nil {
				return nil, err
			}
			return NewLayer(env, raster.SnapRect(x, y, w, h))
		},
	}
}

// SetFrame moves and resizes the layer. The pixel buffer is reallocated,
// and its contents discarded, only when the size changes.
func (l *Layer) SetFrame(frame image.Rectangle) error {
	if err := errors.ValidateCanvasSize(frame.Dx(), frame.Dy()); err != nil {
		return err
	}
	if l.pix == nil || l.frame.Size() != frame.Size() {
		l.pix = image.NewRGBA(image.Rectangle{Max: frame.Size()})
	}
	l.frame = frame
	return nil
}

// Frame returns the layer's position and size in its parent's coordinates.
func (l *Layer) Frame() image.Rectangle { return l.frame }

// Image returns the layer's pixel buffer. Its bounds start at the origin.
func (l *Layer) Image() *image.RGBA { return l.pix }

// Mode returns the blend mode used when the layer is composited.
func (l *Layer) Mode() raster.Mode { return l.mode }

// SetMode sets the blend mode used when the layer is composited.
func (l *Layer) SetMode(m raster.Mode) { l.mode = m }

// SetFillColor replaces the fill style with a solid colour.
func (l *Layer) SetFillColor(c *Color) { l.fill = c }

// Release frees the pixel buffer. Simulations holding a reference to the
// layer see it as gone from then on.
func (l *Layer) Release() {
	l.released = true
	l.gen++
	l.pix = nil
	l.path = nil
}

// ref returns a non-owning reference to the layer in its current state.
func (l *Layer) ref() layerRef { return layerRef{layer: l, gen: l.gen} }

// layerRef is a reference that does not keep a layer drawable: it resolves
// only while the layer has not been released since the reference was taken.
type layerRef struct {
	layer *Layer
	gen   uint64
}

func (r layerRef) get() (*Layer, bool) {
	if r.layer == nil || r.layer.released || r.layer.gen != r.gen {
		return nil, false
	}
	return r.layer, true
}

// ClassName implements script.Object.
func (l *Layer) ClassName() string { return "Layer" }

// GetProperty implements script.Object.
func (l *Layer) GetProperty(name string) (any, error) {
	switch name {
	case "fillStyle":
		return l.fill, nil
	case "strokeStyle":
		return l.stroke, nil
	case "lineWidth":
		return l.lineWidth, nil
	case "blendMode":
		return l.mode.Name(), nil
	case "frame":
		f := l.frame
		return NewRect(float64(f.Min.X), float64(f.Min.Y), float64(f.Dx()), float64(f.Dy())), nil
	case "bounds":
		return NewRect(0, 0, float64(l.frame.Dx()), float64(l.frame.Dy())), nil
	}
	return nil, nil
}

// SetProperty implements script.Object.
func (l *Layer) SetProperty(name string, v any) error {
	switch name {
	case "fillStyle":
		switch s := v.(type) {
		case *Color, *Gradient:
			l.fill = s.(script.Object)
			return nil
		case string:
			c, err := ParseColor(s)
			if err != nil {
				return err
			}
			l.fill = c
			return nil
		}
		return errors.New(errors.ErrCodePropertyCoercion, "expected Color or Gradient")
	case "strokeStyle":
		if s, ok := v.(string); ok {
			c, err := ParseColor(s)
			if err != nil {
				return err
			}
			l.stroke = c
			return nil
		}
		c, err := script.As[*Color](v, "Color")
		if err != nil {
			return err
		}
		l.stroke = c
	case "lineWidth":
		f, err := script.ToFloat(v)
		if err != nil {
			return err
		}
		if f < 0 {
			return errors.New(errors.ErrCodePropertyCoercion, "line width must not be negative")
		}
		l.lineWidth = f
	case "blendMode":
		s, err := script.ToString(v)
		if err != nil {
			return err
		}
		m, err := raster.ModeFromName(s)
		if err != nil {
			return err
		}
		l.mode = m
	}
	return nil
}

// Invoke implements script.Object.
func (l *Layer) Invoke(method string, args script.Args) (any, error) {
	if l.released {
		return nil, errors.New(errors.ErrCodeResource, "layer has been released")
	}
	var err error
	switch method {
	case "fillRect":
		err = l.fillRect(args)
	case "strokeRect":
		err = l.strokeRect(args)
	case "fillEllipse":
		err = l.fillEllipse(args)
	case "strokeLine":
		err = l.strokeLine(args)
	case "fillLayer":
		err = l.FillRect(0, 0, float64(l.frame.Dx()), float64(l.frame.Dy()))
	case "clear":
		err = l.clear(args)
	case "drawText":
		err = l.drawText(args)
	case "drawNoise":
		err = l.drawNoise(args)
	case "drawWavyLine":
		err = l.drawWavyLine(args)
	case "drawLayer":
		err = l.drawLayer(args)
	}
	return nil, err
}

// =============================================================================
// Primitives
// =============================================================================

// FillRect fills a rectangle with the fill style. Edges snap to whole
// pixels; gradients span the rectangle.
func (l *Layer) FillRect(x, y, w, h float64) error {
	r := raster.SnapRect(x, y, w, h)
	switch f := l.fill.(type) {
	case *Gradient:
		sh, err := f.shader(x, y, w, h)
		if err != nil {
			return err
		}
		raster.FillRectFunc(l.pix, r, sh)
	case *Color:
		raster.FillRect(l.pix, r, f.NRGBA())
	}
	return nil
}

func (l *Layer) fillRect(args script.Args) error {
	x, y, w, h, _, err := rectArg(args, 0)
	if err != nil {
		return err
	}
	return l.FillRect(x, y, w, h)
}

func (l *Layer) strokeRect(args script.Args) error {
	x, y, w, h, _, err := rectArg(args, 0)
	if err != nil {
		return err
	}
	l.path = append(l.path[:0],
		raster.Point{X: x, Y: y}, raster.Point{X: x + w, Y: y},
		raster.Point{X: x + w, Y: y + h}, raster.Point{X: x, Y: y + h},
		raster.Point{X: x, Y: y},
	)
	l.commitStroke()
	return nil
}

func (l *Layer) fillEllipse(args script.Args) error {
	x, y, w, h, _, err := rectArg(args, 0)
	if err != nil {
		return err
	}
	polys := [][]raster.Point{raster.Ellipse(x+w/2, y+h/2, math.Abs(w)/2, math.Abs(h)/2)}
	switch f := l.fill.(type) {
	case *Gradient:
		sh, err := f.shader(x, y, w, h)
		if err != nil {
			return err
		}
		l.painter.FillImage(l.pix, polys, sh)
	case *Color:
		l.painter.Fill(l.pix, polys, f.NRGBA())
	}
	return nil
}

// strokeLine accepts any number of points, given as Point objects, number
// pairs, or a single array of Points, and strokes the polyline through them.
func (l *Layer) strokeLine(args script.Args) error {
	if args.Len() == 1 {
		if items, ok := args[0].([]any); ok {
			args = script.Args(items)
		}
	}
	l.path = l.path[:0]
	for i := 0; i < args.Len(); {
		x, y, next, err := pointArg(args, i)
		if err != nil {
			return err
		}
		l.path = append(l.path, raster.Point{X: x, Y: y})
		i = next
	}
	if len(l.path) < 2 {
		l.path = l.path[:0]
		return errors.New(errors.ErrCodeMethodArgument, "strokeLine needs at least two points")
	}
	l.commitStroke()
	return nil
}

// commitStroke strokes the path buffer with the stroke style and empties it.
func (l *Layer) commitStroke() {
	l.painter.Stroke(l.pix, l.path, l.lineWidth, l.stroke.NRGBA())
	l.path = l.path[:0]
}

// StrokeSegment draws a single line segment with an explicit width and
// colour. Particle trails use it.
func (l *Layer) StrokeSegment(x0, y0, x1, y1, width float64, c color.NRGBA) {
	l.painter.Stroke(l.pix, []raster.Point{{X: x0, Y: y0}, {X: x1, Y: y1}}, width, c)
}

func (l *Layer) clear(args script.Args) error {
	if args.Len() == 0 {
		raster.Clear(l.pix, l.pix.Bounds())
		return nil
	}
	x, y, w, h, _, err := rectArg(args, 0)
	if err != nil {
		return err
	}
	raster.Clear(l.pix, raster.SnapRect(x, y, w, h))
	return nil
}

// drawText accepts (text), (text, x, y), (text, point) or (text, rect). A
// rect wraps the text to its width.
func (l *Layer) drawText(args script.Args) error {
	o, err := args.Object(0, "Text")
	if err != nil {
		return err
	}
	t := o.(*Text)
	if args.Len() == 1 {
		return t.draw(l.pix, 0, 0, 0)
	}
	if _, ok := args[1].(*Rect); ok {
		x, y, w, _, _, err := rectArg(args, 1)
		if err != nil {
			return err
		}
		return t.draw(l.pix, x, y, w)
	}
	x, y, _, err := pointArg(args, 1)
	if err != nil {
		return err
	}
	return t.draw(l.pix, x, y, 0)
}

// drawNoise paints freshly drawn noise with its top-left corner at the
// optional position.
func (l *Layer) drawNoise(args script.Args) error {
	o, err := args.Object(0, "Noise")
	if err != nil {
		return err
	}
	var x, y float64
	if args.Len() > 1 {
		if x, y, _, err = pointArg(args, 1); err != nil {
			return err
		}
	}
	src := o.(*Noise).generate(l.env.Stream)
	pre := image.NewRGBA(src.Bounds())
	xdraw.Draw(pre, pre.Bounds(), src, image.Point{}, xdraw.Src)
	raster.Composite(l.pix, pre, image.Pt(int(math.Round(x)), int(math.Round(y))), raster.Normal)
	return nil
}

// drawWavyLine strokes a sine wave running from start to end. Its phase is
// drawn from the shared stream.
//
// Arguments: start, end, amplitude (default 10), wavelength (default 40).
func (l *Layer) drawWavyLine(args script.Args) error {
	x0, y0, next, err := pointArg(args, 0)
	if err != nil {
		return err
	}
	x1, y1, next, err := pointArg(args, next)
	if err != nil {
		return err
	}
	amp, err := args.FloatOr(next, 10)
	if err != nil {
		return err
	}
	wavelength, err := args.FloatOr(next+1, 40)
	if err != nil {
		return err
	}
	if wavelength <= 0 {
		return errors.New(errors.ErrCodeMethodArgument, "wavelength must be positive")
	}

	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	ux, uy := dx/length, dy/length
	nx, ny := -uy, ux
	phase := l.env.Stream.Float64() * 2 * math.Pi

	const step = 2.0
	n := int(math.Ceil(length / step))
	l.path = l.path[:0]
	for i := 0; i <= n; i++ {
		d := math.Min(float64(i)*step, length)
		off := amp * math.Sin(2*math.Pi*d/wavelength+phase)
		l.path = append(l.path, raster.Point{X: x0 + ux*d + nx*off, Y: y0 + uy*d + ny*off})
	}
	l.commitStroke()
	return nil
}

// drawLayer composites another layer into this one using the child's blend
// mode. Arguments: (layer) places the child at its own frame origin,
// (layer, x, y) or (layer, point) at that position, and (layer, rect)
// scales it to fill the rectangle.
func (l *Layer) drawLayer(args script.Args) error {
	o, err := args.Object(0, "Layer")
	if err != nil {
		return err
	}
	child := o.(*Layer)
	if child == l {
		return errors.New(errors.ErrCodeMethodArgument, "a layer cannot be drawn into itself")
	}
	if child.released {
		return errors.New(errors.ErrCodeResource, "layer has been released")
	}

	if args.Len() > 1 {
		if _, ok := args[1].(*Rect); ok || args.Len() >= 5 {
			x, y, w, h, _, err := rectArg(args, 1)
			if err != nil {
				return err
			}
			dr := raster.SnapRect(x, y, w, h)
			if dr.Empty() {
				return nil
			}
			if err := errors.ValidateCanvasSize(dr.Dx(), dr.Dy()); err != nil {
				return err
			}
			scaled := image.NewRGBA(image.Rectangle{Max: dr.Size()})
			xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), child.pix, child.pix.Bounds(), xdraw.Src, nil)
			raster.Composite(l.pix, scaled, dr.Min, child.mode)
			return nil
		}
		x, y, _, err := pointArg(args, 1)
		if err != nil {
			return err
		}
		raster.Composite(l.pix, child.pix, image.Pt(int(math.Round(x)), int(math.Round(y))), child.mode)
		return nil
	}
	raster.Composite(l.pix, child.pix, child.frame.Min, child.mode)
	return nil
}
