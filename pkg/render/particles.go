package render

import (
	"math"

	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/script"
)

// maxParticleCapacity bounds the store a script can ask for.
const maxParticleCapacity = 1 << 16

// particle is one simulated point. Its colour's alpha fades with age.
type particle struct {
	x, y   float64
	vx, vy float64
	ax, ay float64
	color  Color
	age    int
	live   bool
}

type gravityPoint struct {
	x, y     float64
	strength float64
}

// Particles is a particle emitter that leaves trails on a layer.
//
// Each Step advances every live particle, retires the ones that are too old
// or fully faded, then spawns new particles at Location until MaxParticles
// are live (or SpawnRate per step, when set).
type Particles struct {
	LocationX, LocationY float64
	TrailWidth           float64
	AlphaDelta           float64 // alpha lost per step once fading starts
	AlphaDelay           int     // steps before fading starts
	MaxAge               int
	SpawnRate            int // new particles per step; 0 fills to capacity

	VelocityX, VelocityY         *Randomizer
	AccelerationX, AccelerationY *Randomizer

	layer   layerRef
	colors  []Color
	gravity []gravityPoint

	store []particle
	free  []int // indices of unused slots, next spawn at the end
	count int
	env   *Env
}

// NewParticles returns an emitter with capacity for max live particles.
func NewParticles(env *Env, max int) (*Particles, error) {
	p := &Particles{
		TrailWidth: 1,
		AlphaDelta: 0.01,
		MaxAge:     100,
		env:        env,
	}
	if err := p.SetMaxParticles(max); err != nil {
		return nil, err
	}
	return p, nil
}

func particlesClass(env *Env) script.Class {
	return script.Class{
		Name: "Particles",
		Properties: []string{
			"location", "layer", "trailWidth", "alphaDelta", "alphaDelay", "maxAge",
			"maxParticles", "spawnRate", "velocityX", "velocityY", "accelerationX", "accelerationY",
			"count",
		},
		ReadOnly: []string{"count"},
		Methods:  []string{"addGravityPoint", "addColor", "step", "simulate"},
		New: func(args script.Args) (script.Object, error) {
			n, err := args.IntOr(0, 100)
			if err != nil {
				return nil, err
			}
			return NewParticles(env, n)
		},
	}
}

// SetMaxParticles changes the store's capacity. Live particles beyond the
// new capacity are dropped, highest slot first.
func (p *Particles) SetMaxParticles(n int) error {
	if n < 0 || n > maxParticleCapacity {
		return errors.New(errors.ErrCodeResource, "maxParticles must be between 0 and %d, got %d", maxParticleCapacity, n)
	}
	if p.store != nil && n == len(p.store) {
		return nil
	}
	store := make([]particle, n)
	kept := 0
	for _, pt := range p.store {
		if pt.live && kept < n {
			store[kept] = pt
			kept++
		}
	}
	p.store = store
	p.count = kept
	p.free = make([]int, 0, n)
	for i := n - 1; i >= kept; i-- {
		p.free = append(p.free, i)
	}
	return nil
}

// SetLayer points trails at l without taking ownership of it.
func (p *Particles) SetLayer(l *Layer) {
	if l == nil {
		p.layer = layerRef{}
		return
	}
	p.layer = l.ref()
}

// Count returns the number of live particles.
func (p *Particles) Count() int { return p.count }

// Capacity returns the size of the particle store.
func (p *Particles) Capacity() int { return len(p.store) }

// AddGravityPoint adds an attractor. Each step it accelerates every particle
// towards (x, y) by strength divided by the squared distance, with the
// distance floored at one pixel. Negative strengths repel.
func (p *Particles) AddGravityPoint(x, y, strength float64) {
	p.gravity = append(p.gravity, gravityPoint{x: x, y: y, strength: strength})
}

// Step advances the simulation by one tick.
func (p *Particles) Step() error {
	var layer *Layer
	if p.layer.layer != nil {
		l, ok := p.layer.get()
		if !ok {
			return errors.New(errors.ErrCodeResource, "particle layer has been released")
		}
		layer = l
	}

	for i := range p.store {
		pt := &p.store[i]
		if !pt.live {
			continue
		}
		for _, g := range p.gravity {
			dx, dy := g.x-pt.x, g.y-pt.y
			r := math.Hypot(dx, dy)
			if r == 0 {
				continue
			}
			f := g.strength / math.Max(r*r, 1)
			pt.ax += dx / r * f
			pt.ay += dy / r * f
		}
		pt.vx += pt.ax
		pt.vy += pt.ay

		ox, oy := pt.x, pt.y
		pt.x += pt.vx
		pt.y += pt.vy
		if layer != nil && p.TrailWidth > 0 && pt.color.A > 0 {
			layer.StrokeSegment(ox, oy, pt.x, pt.y, p.TrailWidth, pt.color.NRGBA())
		}

		pt.age++
		if pt.age > p.AlphaDelay {
			pt.color.A = math.Max(0, pt.color.A-p.AlphaDelta)
		}
		if pt.age > p.MaxAge || pt.color.A <= 0 {
			p.retire(i)
		}
	}

	spawn := len(p.free)
	if p.SpawnRate > 0 {
		spawn = min(spawn, p.SpawnRate)
	}
	for range spawn {
		p.spawn()
	}
	return nil
}

func (p *Particles) retire(i int) {
	p.store[i] = particle{}
	p.free = append(p.free, i)
	p.count--
}

func (p *Particles) spawn() {
	i := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.store[i] = particle{
		x:     p.LocationX,
		y:     p.LocationY,
		vx:    sample(p.VelocityX),
		vy:    sample(p.VelocityY),
		ax:    sample(p.AccelerationX),
		ay:    sample(p.AccelerationY),
		color: p.spawnColor(),
		live:  true,
	}
	p.count++
}

func (p *Particles) spawnColor() Color {
	switch len(p.colors) {
	case 0:
		return Color{R: 1, G: 1, B: 1, A: 1}
	case 1:
		return p.colors[0]
	}
	return p.colors[p.env.Stream.Intn(len(p.colors))]
}

func sample(r *Randomizer) float64 {
	if r == nil {
		return 0
	}
	return r.Float()
}

// ClassName implements script.Object.
func (p *Particles) ClassName() string { return "Particles" }

// GetProperty implements script.Object.
func (p *Particles) GetProperty(name string) (any, error) {
	switch name {
	case "location":
		return NewPoint(p.LocationX, p.LocationY), nil
	case "layer":
		if l, ok := p.layer.get(); ok {
			return l, nil
		}
		return nil, nil
	case "trailWidth":
		return p.TrailWidth, nil
	case "alphaDelta":
		return p.AlphaDelta, nil
	case "alphaDelay":
		return float64(p.AlphaDelay), nil
	case "maxAge":
		return float64(p.MaxAge), nil
	case "maxParticles":
		return float64(len(p.store)), nil
	case "spawnRate":
		return float64(p.SpawnRate), nil
	case "velocityX":
		return randomizerOrNil(p.VelocityX), nil
	case "velocityY":
		return randomizerOrNil(p.VelocityY), nil
	case "accelerationX":
		return randomizerOrNil(p.AccelerationX), nil
	case "accelerationY":
		return randomizerOrNil(p.AccelerationY), nil
	case "count":
		return float64(p.count), nil
	}
	return nil, nil
}

func randomizerOrNil(r *Randomizer) any {
	if r == nil {
		return nil
	}
	return r
}

// SetProperty implements script.Object.
func (p *Particles) SetProperty(name string, v any) error {
	switch name {
	case "location":
		pt, err := script.As[*Point](v, "Point")
		if err != nil {
			return err
		}
		p.LocationX, p.LocationY = pt.X, pt.Y
		return nil
	case "layer":
		if v == nil {
			p.SetLayer(nil)
			return nil
		}
		l, err := script.As[*Layer](v, "Layer")
		if err != nil {
			return err
		}
		p.SetLayer(l)
		return nil
	case "velocityX", "velocityY", "accelerationX", "accelerationY":
		var r *Randomizer
		if v != nil {
			var err error
			if r, err = script.As[*Randomizer](v, "Randomizer"); err != nil {
				return err
			}
		}
		switch name {
		case "velocityX":
			p.VelocityX = r
		case "velocityY":
			p.VelocityY = r
		case "accelerationX":
			p.AccelerationX = r
		default:
			p.AccelerationY = r
		}
		return nil
	case "trailWidth", "alphaDelta":
		f, err := script.ToFloat(v)
		if err != nil {
			return err
		}
		if name == "trailWidth" {
			p.TrailWidth = f
		} else {
			p.AlphaDelta = f
		}
		return nil
	}

	n, err := script.ToInt(v)
	if err != nil {
		return err
	}
	switch name {
	case "alphaDelay":
		p.AlphaDelay = n
	case "maxAge":
		p.MaxAge = n
	case "spawnRate":
		p.SpawnRate = max(n, 0)
	case "maxParticles":
		return p.SetMaxParticles(n)
	}
	return nil
}

// Invoke implements script.Object.
func (p *Particles) Invoke(method string, args script.Args) (any, error) {
	switch method {
	case "addGravityPoint":
		x, y, next, err := pointArg(args, 0)
		if err != nil {
			return nil, err
		}
		strength, err := args.FloatOr(next, 1)
		if err != nil {
			return nil, err
		}
		p.AddGravityPoint(x, y, strength)
	case "addColor":
		c, err := args.Object(0, "Color")
		if err != nil {
			return nil, err
		}
		p.colors = append(p.colors, *c.(*Color))
	case "step":
		return nil, p.Step()
	case "simulate":
		n, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		for range n {
			if err := p.Step(); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}
