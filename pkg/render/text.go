package render

import (
	"image"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/topdraw/topdraw/pkg/fonts"
	"github.com/topdraw/topdraw/pkg/raster"
	"github.com/topdraw/topdraw/pkg/script"
)

// Text is a string with the attributes used to draw it.
type Text struct {
	String     string
	FontName   string
	FontSize   float64
	Foreground *Color
	Background *Color // nil draws no background
	env        *Env
}

func textClass(env *Env) script.Class {
	return script.Class{
		Name:       "Text",
		Properties: []string{"string", "fontName", "fontSize", "foregroundColor", "backgroundColor", "bounds"},
		ReadOnly:   []string{"bounds"},
		Methods:    []string{"boundsForRect"},
		New: func(args script.Args) (script.Object, error) {
			t := NewText(env, "")
			if args.Has(0) {
				s, err := args.String(0)
				if err != nil {
					return nil, err
				}
				t.String = s
			}
			return t, nil
		},
	}
}

// NewText returns black 24 pixel text in the default face.
func NewText(env *Env, s string) *Text {
	return &Text{
		String:     s,
		FontName:   fonts.DefaultName,
		FontSize:   24,
		Foreground: &Color{A: 1},
		env:        env,
	}
}

// ClassName implements script.Object.
func (t *Text) ClassName() string { return "Text" }

// GetProperty implements script.Object.
func (t *Text) GetProperty(name string) (any, error) {
	switch name {
	case "string":
		return t.String, nil
	case "fontName":
		return t.FontName, nil
	case "fontSize":
		return t.FontSize, nil
	case "foregroundColor":
		return t.Foreground, nil
	case "backgroundColor":
		if t.Background == nil {
			return nil, nil
		}
		return t.Background, nil
	case "bounds":
		b, err := t.Bounds(0)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, nil
}

// SetProperty implements script.Object.
func (t *Text) SetProperty(name string, v any) error {
	switch name {
	case "string":
		s, err := script.ToString(v)
		if err != nil {
			return err
		}
		t.String = s
	case "fontName":
		s, err := script.ToString(v)
		if err != nil {
			return err
		}
		if _, ok := fonts.Resolve(s); !ok {
			t.env.logf("font %q is not available, using %s", s, fonts.DefaultName)
		}
		t.FontName = s
	case "fontSize":
		f, err := script.ToFloat(v)
		if err != nil {
			return err
		}
		t.FontSize = f
	case "foregroundColor":
		c, err := script.As[*Color](v, "Color")
		if err != nil {
			return err
		}
		t.Foreground = c
	case "backgroundColor":
		if v == nil {
			t.Background = nil
			return nil
		}
		c, err := script.As[*Color](v, "Color")
		if err != nil {
			return err
		}
		t.Background = c
	}
	return nil
}

// Invoke implements script.Object.
func (t *Text) Invoke(_ string, args script.Args) (any, error) {
	x, y, w, _, _, err := rectArg(args, 0)
	if err != nil {
		return nil, err
	}
	b, err := t.Bounds(w)
	if err != nil {
		return nil, err
	}
	b.X, b.Y = x, y
	return b, nil
}

// textLayout is the result of breaking a Text into lines.
type textLayout struct {
	lines  []string
	widths []float64
	ascent float64
	height float64 // per line
	face   font.Face
}

func (l *textLayout) size() (w, h float64) {
	for _, lw := range l.widths {
		w = math.Max(w, lw)
	}
	return w, l.height * float64(len(l.lines))
}

// layout breaks the string at newlines and, when wrap > 0, greedily at
// spaces so no line is wider than wrap. The caller must close the face.
func (t *Text) layout(wrap float64) (*textLayout, error) {
	face, err := fonts.Face(t.FontName, t.FontSize)
	if err != nil {
		return nil, err
	}
	m := face.Metrics()
	l := &textLayout{
		face:   face,
		ascent: fix(m.Ascent),
		height: fix(m.Height),
	}
	measure := func(s string) float64 { return fix(font.MeasureString(face, s)) }

	for _, para := range strings.Split(t.String, "\n") {
		if wrap <= 0 {
			l.lines = append(l.lines, para)
			l.widths = append(l.widths, measure(para))
			continue
		}
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if line != "" && measure(candidate) > wrap {
				l.lines = append(l.lines, line)
				l.widths = append(l.widths, measure(line))
				line = word
				continue
			}
			line = candidate
		}
		l.lines = append(l.lines, line)
		l.widths = append(l.widths, measure(line))
	}
	return l, nil
}

// Bounds returns the size of the text at the origin, wrapped to wrap pixels
// when wrap > 0.
func (t *Text) Bounds(wrap float64) (*Rect, error) {
	l, err := t.layout(wrap)
	if err != nil {
		return nil, err
	}
	defer l.face.Close()
	w, h := l.size()
	return &Rect{Width: w, Height: h}, nil
}

// draw renders the text into dst with its top-left corner at (x, y).
func (t *Text) draw(dst *image.RGBA, x, y, wrap float64) error {
	l, err := t.layout(wrap)
	if err != nil {
		return err
	}
	defer l.face.Close()

	if t.Background != nil {
		w, h := l.size()
		raster.FillRect(dst, raster.SnapRect(x, y, w, h), t.Background.NRGBA())
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(t.Foreground.NRGBA()),
		Face: l.face,
	}
	for i, line := range l.lines {
		d.Dot = fixed.Point26_6{
			X: fixed.Int26_6(math.Round(x * 64)),
			Y: fixed.Int26_6(math.Round((y + l.ascent + float64(i)*l.height) * 64)),
		}
		d.DrawString(line)
	}
	return nil
}

func fix(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
