package render

import (
	"github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/script"
)

// Randomizer draws values in [Min, Max) from the evaluation's shared stream.
type Randomizer struct {
	Min, Max float64
	env      *Env
}

// NewRandomizer returns a Randomizer over [min, max) drawing from env.Stream.
func NewRandomizer(env *Env, min, max float64) *Randomizer {
	return &Randomizer{Min: min, Max: max, env: env}
}

// randomizerClass accepts no arguments for [0, 1), one for [0, max) and two
// for [min, max).
func randomizerClass(env *Env) script.Class {
	return script.Class{
		Name:       "Randomizer",
		Properties: []string{"min", "max"},
		Methods:    []string{"floatValue", "integerValue"},
		New: func(args script.Args) (script.Object, error) {
			vals, err := args.Floats(0)
			if err != nil {
				return nil, err
			}
			switch len(vals) {
			case 0:
				return NewRandomizer(env, 0, 1), nil
			case 1:
				return NewRandomizer(env, 0, vals[0]), nil
			case 2:
				return NewRandomizer(env, vals[0], vals[1]), nil
			}
			return nil, errors.New(errors.ErrCodeMethodArgument, "expected at most 2 arguments, got %d", len(vals))
		},
	}
}

// Float draws the next value scaled into [Min, Max).
func (r *Randomizer) Float() float64 {
	return r.env.Stream.Range(r.Min, r.Max)
}

// Int draws the next value and truncates it toward zero.
func (r *Randomizer) Int() int {
	return int(r.Float())
}

// ClassName implements script.Object.
func (r *Randomizer) ClassName() string { return "Randomizer" }

// GetProperty implements script.Object.
func (r *Randomizer) GetProperty(name string) (any, error) {
	if name == "min" {
		return r.Min, nil
	}
	return r.Max, nil
}

// SetProperty implements script.Object.
func (r *Randomizer) SetProperty(name string, v any) error {
	f, err := script.ToFloat(v)
	if err != nil {
		return err
	}
	if name == "min" {
		r.Min = f
	} else {
		r.Max = f
	}
	return nil
}

// Invoke implements script.Object.
func (r *Randomizer) Invoke(method string, _ script.Args) (any, error) {
	if method == "floatValue" {
		return r.Float(), nil
	}
	return float64(r.Int()), nil
}
