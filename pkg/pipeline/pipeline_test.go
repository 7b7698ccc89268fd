package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/topdraw/topdraw/pkg/cache"
	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/export"
)

const redScript = `
menubar.fillStyle = new Color(1, 0, 0);
menubar.fillRect(menubar.bounds);
log("painted", compositor.width, compositor.height);
`

func quietLogger() *log.Logger {
	return log.NewWithOptions(&bytes.Buffer{}, log.Options{})
}

func newFileRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	return NewRunner(c, nil, quietLogger())
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Source: "1"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults error: %v", err)
	}
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("size = %dx%d, want %dx%d", opts.Width, opts.Height, DefaultWidth, DefaultHeight)
	}
	if opts.Format != "png" {
		t.Errorf("Format = %q, want png", opts.Format)
	}
	if opts.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", opts.Timeout, DefaultTimeout)
	}
	if opts.Name != DefaultName {
		t.Errorf("Name = %q, want %q", opts.Name, DefaultName)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discarding logger")
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no source", Options{}, errors.ErrCodeInvalidInput},
		{"bad name", Options{Source: "1", Name: "../x"}, errors.ErrCodeInvalidInput},
		{"huge", Options{Source: "1", Width: 100000, Height: 10}, errors.ErrCodeResource},
		{"negative", Options{Source: "1", Width: -1, Height: 10}, errors.ErrCodeResource},
		{"format", Options{Source: "1", Format: "gif"}, errors.ErrCodeInvalidFormat},
		{"quality", Options{Source: "1", Quality: 1.5}, errors.ErrCodeInvalidInput},
		{"thumbnail", Options{Source: "1", Thumbnail: -3}, errors.ErrCodeInvalidSize},
		{"empty screen", Options{Source: "1", Screens: []image.Rectangle{{}}}, errors.ErrCodeInvalidSize},
	}
	for _, tt := range tests {
		err := tt.opts.ValidateAndSetDefaults()
		if !errors.Is(err, tt.code) {
			t.Errorf("%s: error = %v, want %s", tt.name, err, tt.code)
		}
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Source: "1", Format: "JPG"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("first validation failed: %v", err)
	}
	first := opts
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second validation failed: %v", err)
	}
	if opts.Format != "jpeg" || opts.Format != first.Format || opts.Width != first.Width {
		t.Errorf("options changed on second call: %+v vs %+v", opts, first)
	}
}

func TestOptionsScreensSetCanvas(t *testing.T) {
	opts := Options{Source: "1", Width: 5, Height: 5, Screens: []image.Rectangle{
		image.Rect(0, 0, 100, 50),
		image.Rect(100, 0, 160, 80),
	}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults error: %v", err)
	}
	if opts.Width != 160 || opts.Height != 80 {
		t.Errorf("canvas = %dx%d, want 160x80", opts.Width, opts.Height)
	}
}

func TestExecuteRedMenubar(t *testing.T) {
	r := newFileRunner(t)
	res, err := r.Execute(context.Background(), Options{Source: redScript, Name: "red", Seed: 42})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(res.Artifacts) != 1 {
		t.Fatalf("artifacts = %d, want 1", len(res.Artifacts))
	}
	img, err := png.Decode(bytes.NewReader(res.Artifacts[0]))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Errorf("bounds = %v, want 800x600", img.Bounds())
	}
	for _, p := range []image.Point{{0, 0}, {400, 300}, {799, 599}} {
		r, g, b, a := img.At(p.X, p.Y).RGBA()
		if r>>8 != 255 || g != 0 || b != 0 || a>>8 != 255 {
			t.Errorf("pixel %v = (%d,%d,%d,%d), want opaque red", p, r>>8, g>>8, b>>8, a>>8)
		}
	}
	if res.Seed != 42 {
		t.Errorf("Seed = %d, want 42", res.Seed)
	}
	if len(res.Log) != 1 || res.Log[0] != "painted 800 600" {
		t.Errorf("Log = %q, want [painted 800 600]", res.Log)
	}
	if res.CacheInfo.Hit {
		t.Error("first render should not hit the cache")
	}
}

func TestExecuteCaches(t *testing.T) {
	r := newFileRunner(t)
	ctx := context.Background()
	opts := Options{Source: redScript, Name: "red", Seed: 9, Width: 64, Height: 48}

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute error: %v", err)
	}
	if !second.CacheInfo.Hit {
		t.Error("second render should hit the cache")
	}
	if second.Image != nil {
		t.Error("cached results carry no decoded image")
	}
	if !bytes.Equal(first.Artifacts[0], second.Artifacts[0]) {
		t.Error("cached artifact differs from the rendered one")
	}
	if len(second.Log) != 1 {
		t.Errorf("cached Log = %q, want the first render's log", second.Log)
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("refresh Execute error: %v", err)
	}
	if third.CacheInfo.Hit || !third.CacheInfo.Bypass {
		t.Errorf("refresh CacheInfo = %+v, want bypass without hit", third.CacheInfo)
	}
}

func TestExecuteDeterministicAcrossRunners(t *testing.T) {
	src := `
var r = new Randomizer(0, 1);
desktop.fillStyle = new Color(r.floatValue(), Math.random(), r.floatValue());
desktop.fillLayer();
`
	opts := Options{Source: src, Seed: 1234, Width: 16, Height: 16}
	a, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	b, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !bytes.Equal(a.Artifacts[0], b.Artifacts[0]) {
		t.Error("the same seed should produce identical bytes")
	}
}

func TestExecuteFreshSeed(t *testing.T) {
	r := newFileRunner(t)
	res, err := r.Execute(context.Background(), Options{Source: "desktop.fillLayer();", Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if res.Seed == 0 {
		t.Error("a derived seed should be non-zero")
	}
	if !res.CacheInfo.Bypass {
		t.Error("fresh seeds should bypass the cache")
	}
}

func TestExecuteEvaluationError(t *testing.T) {
	src := "log('one');\nlog('two');\nvar p = new Point(1, 2);\np.nope = 3;\n"
	res, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), Options{Source: src, Seed: 1})
	if !errors.Is(err, errors.ErrCodeUnknownProperty) {
		t.Fatalf("Execute error = %v, want UNKNOWN_PROPERTY", err)
	}
	if res == nil {
		t.Fatal("evaluation failures should still return a Result")
	}
	if res.Line != 4 {
		t.Errorf("Line = %d, want 4", res.Line)
	}
	if len(res.Log) != 2 {
		t.Errorf("Log = %q, want two lines", res.Log)
	}
	if len(res.Artifacts) != 0 {
		t.Error("failed renders should produce no artifacts")
	}
}

func TestExecuteTimeout(t *testing.T) {
	opts := Options{Source: "for (;;) {}", Seed: 1, Width: 8, Height: 8, Timeout: 50 * time.Millisecond}
	_, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("Execute error = %v, want TIMEOUT", err)
	}
}

func TestExecuteScreensAndThumbnail(t *testing.T) {
	opts := Options{
		Source:    "desktop.fillStyle = new Color('teal'); desktop.fillLayer();",
		Seed:      5,
		Format:    "tiff",
		Thumbnail: 20,
		Screens:   []image.Rectangle{image.Rect(0, 0, 40, 30), image.Rect(40, 0, 100, 30)},
	}
	res, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(res.Artifacts) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(res.Artifacts))
	}
	if res.Format != export.TIFF {
		t.Errorf("Format = %q, want tiff", res.Format)
	}
	if res.Image.Bounds().Dx() != 100 {
		t.Errorf("composite width = %d, want 100", res.Image.Bounds().Dx())
	}
}

func TestScriptsInDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"waves.tds", "Aurora.TDS", "notes.txt", ".hidden.tds"} {
		os.WriteFile(filepath.Join(dir, name), []byte("desktop.fillLayer();"), 0o644)
	}
	os.Mkdir(filepath.Join(dir, "sub.tds"), 0o755)

	scripts, err := ScriptsInDirectory(dir)
	if err != nil {
		t.Fatalf("ScriptsInDirectory error: %v", err)
	}
	var names []string
	for _, s := range scripts {
		names = append(names, s.Name)
	}
	if got := strings.Join(names, ","); got != "Aurora,waves" {
		t.Errorf("scripts = %s, want Aurora,waves", got)
	}
	src, err := scripts[1].Load()
	if err != nil || src != "desktop.fillLayer();" {
		t.Errorf("Load() = %q, %v", src, err)
	}

	if _, err := ScriptsInDirectory(filepath.Join(dir, "missing")); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("missing dir error = %v, want INVALID_PATH", err)
	}
}
