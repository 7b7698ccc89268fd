// Package compositor turns a wallpaper script into an image.
//
// A [Compositor] holds a script's source and display name. Each call to
// [Compositor.Evaluate] runs the script in a fresh
// [github.com/topdraw/topdraw/pkg/script.Runtime] seeded with the given
// seed, then composites the resulting layer stack into one image:
//
//	c := compositor.New(src, "Stripes")
//	c.SetMaximumSize(1920, 1080)
//	if err := c.Evaluate(42); err != nil {
//	    fmt.Println(errors.LineOf(err), errors.UserMessage(err))
//	}
//	img, _ := c.Image()
//
// # Layer Stack
//
// Scripts draw into two predefined layers, desktop and menubar, both covering
// the whole canvas, and may add further layers with compositor.addLayer.
// The stack is composited bottom to top: desktop, menubar, then added layers
// in the order they were added, each with the blend mode recorded when it
// was added.
//
// # Determinism
//
// Everything random a script can reach draws from one stream seeded at the
// start of the evaluation, including Math.random. The Date clock is pinned
// to a fixed instant. The same source, seed and maximum size therefore
// always produce the same pixels.
package compositor

import (
	"image"
	"sync"
	"time"

	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/random"
	"github.com/topdraw/topdraw/pkg/raster"
	"github.com/topdraw/topdraw/pkg/render"
	"github.com/topdraw/topdraw/pkg/script"
)

// Default canvas size used until SetMaximumSize is called.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// SupportedVersion is the highest script API version scripts may require
// with compositor.requireVersion.
const SupportedVersion = 1

// scriptEpoch is the instant Date reports inside scripts.
var scriptEpoch = time.Date(2008, time.January, 1, 0, 0, 0, 0, time.UTC)

// stackedLayer is one entry of the layer stack above desktop and menubar.
type stackedLayer struct {
	layer *render.Layer
	mode  raster.Mode
}

// runtimeRef refers to the Runtime of one evaluation without owning it. It
// resolves only while that evaluation is still the active one.
type runtimeRef struct {
	rt  *script.Runtime
	gen uint64
}

// Compositor evaluates one script into one image. It is not safe for
// concurrent use, except for Interrupt.
type Compositor struct {
	source string
	name   string
	seed   uint64
	size   image.Point
	logf   func(msg string)

	menubarEnabled  bool
	requiredVersion int

	desktop *render.Layer
	menubar *render.Layer
	layers  []stackedLayer
	image   *image.RGBA

	mu     sync.Mutex
	gen    uint64
	active runtimeRef
}

// New returns a Compositor for source. name labels the script in error
// messages and is visible to the script as compositor.name.
func New(source, name string) *Compositor {
	return &Compositor{
		source:         source,
		name:           name,
		size:           image.Pt(DefaultWidth, DefaultHeight),
		menubarEnabled: true,
	}
}

// SetMaximumSize sets the size of the final image. Layers larger than the
// canvas are clipped when composited.
func (c *Compositor) SetMaximumSize(w, h int) error {
	if err := errors.ValidateCanvasSize(w, h); err != nil {
		return err
	}
	c.size = image.Pt(w, h)
	return nil
}

// Size returns the size of the final image.
func (c *Compositor) Size() image.Point { return c.size }

// SetLogCallback routes script log messages to fn.
func (c *Compositor) SetLogCallback(fn func(msg string)) { c.logf = fn }

// SetMenubarEnabled controls whether the menubar layer is part of the
// composite. Scripts can draw into it either way.
func (c *Compositor) SetMenubarEnabled(enabled bool) { c.menubarEnabled = enabled }

// Name returns the script's display name.
func (c *Compositor) Name() string { return c.name }

// Seed returns the seed of the most recent evaluation.
func (c *Compositor) Seed() uint64 { return c.seed }

// Desktop returns the desktop layer of the most recent evaluation.
func (c *Compositor) Desktop() *render.Layer { return c.desktop }

// Menubar returns the menubar layer of the most recent evaluation.
func (c *Compositor) Menubar() *render.Layer { return c.menubar }

// Layers returns the number of layers the script added to the stack.
func (c *Compositor) Layers() int { return len(c.layers) }

// Image returns the composited image of the most recent evaluation. It fails
// when there has been no successful evaluation.
func (c *Compositor) Image() (*image.RGBA, error) {
	if c.image == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no image: %s has not been evaluated successfully", c.name)
	}
	return c.image, nil
}

// Interrupt aborts a running evaluation. It may be called from any
// goroutine and does nothing when no evaluation is running.
func (c *Compositor) Interrupt(reason string) {
	if rt, ok := c.runtime(); ok {
		rt.Interrupt(reason)
	}
}

func (c *Compositor) runtime() (*script.Runtime, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active.rt == nil || c.active.gen != c.gen {
		return nil, false
	}
	return c.active.rt, true
}

func (c *Compositor) setActive(rt *script.Runtime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rt == nil {
		c.active = runtimeRef{}
		return
	}
	c.gen++
	c.active = runtimeRef{rt: rt, gen: c.gen}
}

func (c *Compositor) log(msg string) {
	if c.logf != nil {
		c.logf(msg)
	}
}

// Evaluate runs the script with seed and composites the result.
//
// Script failures are returned as *errors.ScriptError carrying the message
// and, when known, the 1-based line. On any failure no image is available.
func (c *Compositor) Evaluate(seed uint64) error {
	c.reset()
	c.seed = seed

	rt := script.New()
	c.setActive(rt)
	defer func() {
		c.setActive(nil)
		rt.Close()
	}()

	stream := random.NewStream(seed)
	rt.SetLogger(c.log)
	rt.SetRandSource(stream.Float64)
	rt.SetTimeSource(func() time.Time { return scriptEpoch })

	canvas := image.Rectangle{Max: c.size}
	env := &render.Env{Stream: stream, Canvas: canvas, Log: rt.Log}
	if err := render.Register(rt, env); err != nil {
		return err
	}
	if err := rt.Register(globalClass()); err != nil {
		return err
	}

	var err error
	if c.desktop, err = render.NewLayer(env, canvas); err != nil {
		return err
	}
	if c.menubar, err = render.NewLayer(env, canvas); err != nil {
		return err
	}
	globals := []struct {
		name  string
		value any
	}{
		{"desktop", c.desktop},
		{"menubar", c.menubar},
		{"compositor", &global{c: c}},
	}
	for _, g := range globals {
		if err := rt.Set(g.name, g.value); err != nil {
			return err
		}
	}

	if err := rt.Evaluate(c.name, c.source); err != nil {
		return err
	}
	c.image = c.composite()
	return nil
}

// reset discards the previous evaluation's layers and image.
func (c *Compositor) reset() {
	for _, l := range []*render.Layer{c.desktop, c.menubar} {
		if l != nil {
			l.Release()
		}
	}
	for _, s := range c.layers {
		s.layer.Release()
	}
	c.desktop, c.menubar = nil, nil
	c.layers = nil
	c.image = nil
	c.requiredVersion = 0
}

// Close frees every layer. The last composite stays readable through Image,
// and the Compositor can be evaluated again afterwards.
func (c *Compositor) Close() {
	img := c.image
	c.reset()
	c.image = img
}

func (c *Compositor) composite() *image.RGBA {
	out := image.NewRGBA(image.Rectangle{Max: c.size})
	stack := make([]stackedLayer, 0, len(c.layers)+2)
	stack = append(stack, stackedLayer{c.desktop, c.desktop.Mode()})
	if c.menubarEnabled {
		stack = append(stack, stackedLayer{c.menubar, c.menubar.Mode()})
	}
	stack = append(stack, c.layers...)
	for _, s := range stack {
		if img := s.layer.Image(); img != nil {
			raster.Composite(out, img, s.layer.Frame().Min, s.mode)
		}
	}
	return out
}

// addLayer appends l to the stack with mode.
func (c *Compositor) addLayer(l *render.Layer, mode raster.Mode) error {
	if l == c.desktop || l == c.menubar {
		return errors.New(errors.ErrCodeInvalidInput, "desktop and menubar are already part of the stack")
	}
	for _, s := range c.layers {
		if s.layer == l {
			return errors.New(errors.ErrCodeInvalidInput, "layer was already added")
		}
	}
	c.layers = append(c.layers, stackedLayer{layer: l, mode: mode})
	return nil
}

func (c *Compositor) requireVersion(v int) error {
	if v > SupportedVersion {
		return errors.New(errors.ErrCodeUnsupported,
			"script requires version %d, this renderer supports version %d", v, SupportedVersion)
	}
	c.requiredVersion = max(c.requiredVersion, v)
	return nil
}
