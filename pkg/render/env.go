package render

import (
	"fmt"
	"image"

	"github.com/topdraw/topdraw/pkg/random"
	"github.com/topdraw/topdraw/pkg/script"
)

// Env is the per-evaluation state shared by every object a script creates.
type Env struct {
	Stream *random.Stream   // Shared random stream; required
	Canvas image.Rectangle  // Default frame for new layers
	Log    func(msg string) // Diagnostic messages; may be nil
}

func (e *Env) logf(format string, args ...any) {
	if e.Log != nil {
		e.Log(fmt.Sprintf(format, args...))
	}
}

// Classes returns the descriptors of every drawing and simulation class,
// bound to env.
func Classes(env *Env) []script.Class {
	return []script.Class{
		pointClass(),
		rectClass(),
		colorClass(),
		gradientClass(),
		randomizerClass(env),
		textClass(env),
		noiseClass(),
		paletteClass(env),
		layerClass(env),
		particlesClass(env),
	}
}

// Register installs every class from Classes into rt.
func Register(rt *script.Runtime, env *Env) error {
	for _, c := range Classes(env) {
		if err := rt.Register(c); err != nil {
			return err
		}
	}
	return nil
}
