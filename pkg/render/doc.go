// Package render implements the drawing and simulation objects scripts use
// to build wallpapers.
//
// # Overview
//
// Every type in this package is a native class exposed through
// [github.com/topdraw/topdraw/pkg/script]. [Classes] returns the descriptors
// for one evaluation, bound to an [Env] that carries the evaluation's shared
// random stream and log callback:
//
//	env := &render.Env{Stream: random.NewStream(seed), Canvas: image.Rect(0, 0, 800, 600)}
//	for _, c := range render.Classes(env) {
//	    rt.Register(c)
//	}
//
// # Value Types
//
// [Point], [Rect] and [Color] are small mutable values. Methods that adjust
// them in place (Rect.inset, Point.offset) return the receiver, so chained
// calls keep operating on the same script object. Color channels and alpha
// are floating point values in [0, 1].
//
// # Layers
//
// A [Layer] owns an RGBA pixel buffer the size of its frame. Coordinates are
// layer-local pixels with the origin in the top-left corner. Fill and stroke
// primitives use the layer's fillStyle, strokeStyle and lineWidth. A child
// layer drawn with drawLayer is combined with the layer's own pixels using
// the child's blendMode; see [github.com/topdraw/topdraw/pkg/raster] for the
// compositing rules.
//
// # Randomness
//
// [Randomizer], [Noise], [Palette] and [Particles] all draw from the single
// stream held by the Env. Given the same seed and the same sequence of calls
// they produce the same values, which is what makes renders reproducible.
//
// # Particles
//
// [Particles] keeps a fixed-capacity particle store. Retired particles free
// their slot for the next spawn, so the store never grows while stepping.
// Trails are drawn into the simulation's layer, which it references without
// owning: drawing into a released layer is an error.
package render
