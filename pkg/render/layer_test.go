package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/raster"
	"github.com/topdraw/topdraw/pkg/script"
)

func mustLayer(t *testing.T, env *Env, r image.Rectangle) *Layer {
	t.Helper()
	l, err := NewLayer(env, r)
	if err != nil {
		t.Fatalf("NewLayer error: %v", err)
	}
	return l
}

func TestLayerFillLayer(t *testing.T) {
	l := mustLayer(t, testEnv(1), image.Rect(0, 0, 8, 8))
	l.SetFillColor(NewColor(1, 0, 0, 1))
	if _, err := l.Invoke("fillLayer", nil); err != nil {
		t.Fatalf("fillLayer error: %v", err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got := l.Image().RGBAAt(x, y); got != (color.RGBA{255, 0, 0, 255}) {
				t.Fatalf("pixel (%d,%d) = %v, want red", x, y, got)
			}
		}
	}
}

func TestLayerGradientFill(t *testing.T) {
	l := mustLayer(t, testEnv(1), image.Rect(0, 0, 100, 4))
	g := &Gradient{}
	g.AddStop(NewColor(0, 0, 0, 1), 0)
	g.AddStop(NewColor(1, 1, 1, 1), 1)
	if err := l.SetProperty("fillStyle", g); err != nil {
		t.Fatalf("SetProperty error: %v", err)
	}
	if err := l.FillRect(0, 0, 100, 4); err != nil {
		t.Fatalf("FillRect error: %v", err)
	}
	left, right := l.Image().RGBAAt(0, 1), l.Image().RGBAAt(99, 1)
	if left.R > 5 || right.R < 250 {
		t.Errorf("gradient ends = %v, %v, want black to white", left, right)
	}
	if mid := l.Image().RGBAAt(50, 1); mid.R < 120 || mid.R > 135 {
		t.Errorf("gradient middle = %v, want mid gray", mid)
	}
}

func TestLayerBlendModeProperty(t *testing.T) {
	l := mustLayer(t, testEnv(1), image.Rect(0, 0, 1, 1))
	for _, m := range raster.Modes() {
		if err := l.SetProperty("blendMode", m.Name()); err != nil {
			t.Fatalf("SetProperty(%q) error: %v", m.Name(), err)
		}
		got, _ := l.GetProperty("blendMode")
		if got != m.Name() {
			t.Errorf("blendMode = %v, want %q", got, m.Name())
		}
	}
	if err := l.SetProperty("blendMode", "sparkle"); err == nil {
		t.Error("unknown blend mode should fail")
	}
}

func TestLayerDrawLayerUsesChildMode(t *testing.T) {
	env := testEnv(1)
	parent := mustLayer(t, env, image.Rect(0, 0, 4, 4))
	parent.SetFillColor(NewColor(0.5, 0.5, 0.5, 1))
	_ = parent.FillRect(0, 0, 4, 4)

	child := mustLayer(t, env, image.Rect(0, 0, 4, 4))
	child.SetFillColor(NewColor(0.5, 0.5, 0.5, 1))
	_ = child.FillRect(0, 0, 4, 4)
	child.SetMode(raster.Multiply)

	if _, err := parent.Invoke("drawLayer", script.Args{child}); err != nil {
		t.Fatalf("drawLayer error: %v", err)
	}
	if got := parent.Image().RGBAAt(1, 1).R; got < 63 || got > 65 {
		t.Errorf("multiplied red = %d, want ~64", got)
	}

	if _, err := parent.Invoke("drawLayer", script.Args{parent}); err == nil {
		t.Error("drawing a layer into itself should fail")
	}
}

func TestLayerDrawLayerScaled(t *testing.T) {
	env := testEnv(1)
	parent := mustLayer(t, env, image.Rect(0, 0, 20, 20))
	child := mustLayer(t, env, image.Rect(0, 0, 2, 2))
	child.SetFillColor(NewColor(0, 0, 1, 1))
	_ = child.FillRect(0, 0, 2, 2)

	if _, err := parent.Invoke("drawLayer", script.Args{child, NewRect(5, 5, 10, 10)}); err != nil {
		t.Fatalf("drawLayer error: %v", err)
	}
	if got := parent.Image().RGBAAt(10, 10); got.B < 250 || got.A < 250 {
		t.Errorf("scaled centre = %v, want blue", got)
	}
	if got := parent.Image().RGBAAt(2, 2); got.A != 0 {
		t.Errorf("outside scaled rect = %v, want transparent", got)
	}
}

func TestLayerNoiseDeterministic(t *testing.T) {
	render := func() []byte {
		env := testEnv(5)
		l := mustLayer(t, env, image.Rect(0, 0, 8, 8))
		n, _ := NewNoise(8, 8)
		if _, err := l.Invoke("drawNoise", script.Args{n}); err != nil {
			t.Fatalf("drawNoise error: %v", err)
		}
		return l.Image().Pix
	}
	a, b := render(), render()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise differs at byte %d", i)
		}
	}
	if a[3] != 255 {
		t.Errorf("noise alpha = %d, want 255", a[3])
	}
}

func TestLayerStrokeAndWavyLineClearPath(t *testing.T) {
	l := mustLayer(t, testEnv(1), image.Rect(0, 0, 50, 50))
	if _, err := l.Invoke("strokeLine", script.Args{1.0, 1.0, 40.0, 40.0, 40.0, 1.0}); err != nil {
		t.Fatalf("strokeLine error: %v", err)
	}
	if len(l.path) != 0 {
		t.Errorf("path buffer holds %d points after commit, want 0", len(l.path))
	}
	if _, err := l.Invoke("drawWavyLine", script.Args{NewPoint(0, 25), NewPoint(50, 25), 5.0}); err != nil {
		t.Fatalf("drawWavyLine error: %v", err)
	}
	if len(l.path) != 0 {
		t.Errorf("path buffer holds %d points after wavy line, want 0", len(l.path))
	}
	if _, err := l.Invoke("strokeLine", script.Args{NewPoint(0, 0)}); !errors.Is(err, errors.ErrCodeMethodArgument) {
		t.Errorf("single point strokeLine error = %v, want METHOD_ARGUMENT", err)
	}
}

func TestLayerSetFrame(t *testing.T) {
	l := mustLayer(t, testEnv(1), image.Rect(0, 0, 10, 10))
	buf := l.Image()
	if err := l.SetFrame(image.Rect(5, 5, 15, 15)); err != nil {
		t.Fatalf("SetFrame error: %v", err)
	}
	if l.Image() != buf {
		t.Error("moving a layer should keep its buffer")
	}
	if err := l.SetFrame(image.Rect(0, 0, 20, 10)); err != nil {
		t.Fatalf("SetFrame error: %v", err)
	}
	if l.Image() == buf || l.Image().Bounds().Dx() != 20 {
		t.Error("resizing a layer should reallocate its buffer")
	}
	if err := l.SetFrame(image.Rect(0, 0, 0, 10)); !errors.Is(err, errors.ErrCodeResource) {
		t.Errorf("degenerate frame error = %v, want RESOURCE", err)
	}
}

func TestLayerDrawText(t *testing.T) {
	env := testEnv(1)
	l := mustLayer(t, env, image.Rect(0, 0, 200, 60))
	txt := NewText(env, "Top Draw")
	txt.FontSize = 32
	txt.Foreground = NewColor(1, 1, 1, 1)
	if _, err := l.Invoke("drawText", script.Args{txt, 4.0, 4.0}); err != nil {
		t.Fatalf("drawText error: %v", err)
	}
	painted := 0
	for i := 3; i < len(l.Image().Pix); i += 4 {
		if l.Image().Pix[i] > 0 {
			painted++
		}
	}
	if painted == 0 {
		t.Error("drawText painted no pixels")
	}
}
