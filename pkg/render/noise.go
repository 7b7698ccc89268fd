package render

import (
	"image"

	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/random"
	"github.com/topdraw/topdraw/pkg/script"
)

// Noise describes a block of random pixels. The pixels are drawn from the
// shared stream each time the noise is painted, one value per pixel when
// Grayscale is set and three otherwise, in row-major order.
type Noise struct {
	Grayscale bool
	Alpha     float64
	width     int
	height    int
}

func noiseClass() script.Class {
	return script.Class{
		Name:       "Noise",
		Properties: []string{"grayscale", "alpha", "width", "height"},
		ReadOnly:   []string{"width", "height"},
		New: func(args script.Args) (script.Object, error) {
			w, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			h, err := args.IntOr(1, w)
			if err != nil {
				return nil, err
			}
			return NewNoise(w, h)
		},
	}
}

// NewNoise returns opaque colour noise of the given size.
func NewNoise(w, h int) (*Noise, error) {
	if err := errors.ValidateCanvasSize(w, h); err != nil {
		return nil, err
	}
	return &Noise{Alpha: 1, width: w, height: h}, nil
}

// ClassName implements script.Object.
func (n *Noise) ClassName() string { return "Noise" }

// GetProperty implements script.Object.
func (n *Noise) GetProperty(name string) (any, error) {
	switch name {
	case "grayscale":
		return n.Grayscale, nil
	case "alpha":
		return n.Alpha, nil
	case "width":
		return float64(n.width), nil
	case "height":
		return float64(n.height), nil
	}
	return nil, nil
}

// SetProperty implements script.Object.
func (n *Noise) SetProperty(name string, v any) error {
	if name == "grayscale" {
		b, err := script.ToBool(v)
		if err != nil {
			return err
		}
		n.Grayscale = b
		return nil
	}
	f, err := script.ToFloat(v)
	if err != nil {
		return err
	}
	n.Alpha = clamp01(f)
	return nil
}

// Invoke implements script.Object. Noise has no methods.
func (n *Noise) Invoke(string, script.Args) (any, error) { return nil, nil }

// generate draws a fresh noise image from s.
func (n *Noise) generate(s *random.Stream) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, n.width, n.height))
	a := to8(n.Alpha)
	for i := 0; i < len(img.Pix); i += 4 {
		if n.Grayscale {
			v := to8(s.Float64())
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = v, v, v
		} else {
			img.Pix[i] = to8(s.Float64())
			img.Pix[i+1] = to8(s.Float64())
			img.Pix[i+2] = to8(s.Float64())
		}
		img.Pix[i+3] = a
	}
	return img
}
