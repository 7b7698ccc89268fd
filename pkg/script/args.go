package script

import (
	"math"
	"strconv"

	"github.com/topdraw/topdraw/pkg/errors"
)

// Args is the positional argument list of a constructor or method call.
//
// Script values arrive already converted to Go: nil for undefined and null,
// float64 for numbers, string, bool, [Object] for registered instances,
// []any for arrays and map[string]any for plain objects.
type Args []any

// Len returns the number of arguments.
func (a Args) Len() int { return len(a) }

// Has reports whether argument i was supplied and is not null.
func (a Args) Has(i int) bool { return i < len(a) && a[i] != nil }

// Float returns argument i as a float64.
func (a Args) Float(i int) (float64, error) {
	if i >= len(a) {
		return 0, missing(i, "number")
	}
	v, err := ToFloat(a[i])
	if err != nil {
		return 0, argError(i, err)
	}
	return v, nil
}

// FloatOr returns argument i as a float64, or def when it is absent.
func (a Args) FloatOr(i int, def float64) (float64, error) {
	if !a.Has(i) {
		return def, nil
	}
	return a.Float(i)
}

// Int returns argument i truncated to an int.
func (a Args) Int(i int) (int, error) {
	if i >= len(a) {
		return 0, missing(i, "integer")
	}
	v, err := ToInt(a[i])
	if err != nil {
		return 0, argError(i, err)
	}
	return v, nil
}

// IntOr returns argument i as an int, or def when it is absent.
func (a Args) IntOr(i int, def int) (int, error) {
	if !a.Has(i) {
		return def, nil
	}
	return a.Int(i)
}

// String returns argument i as a string.
func (a Args) String(i int) (string, error) {
	if i >= len(a) {
		return "", missing(i, "string")
	}
	v, err := ToString(a[i])
	if err != nil {
		return "", argError(i, err)
	}
	return v, nil
}

// Bool returns argument i as a bool.
func (a Args) Bool(i int) (bool, error) {
	if i >= len(a) {
		return false, missing(i, "boolean")
	}
	v, err := ToBool(a[i])
	if err != nil {
		return false, argError(i, err)
	}
	return v, nil
}

// Object returns argument i, which must be an instance of class.
func (a Args) Object(i int, class string) (Object, error) {
	if i >= len(a) {
		return nil, missing(i, class)
	}
	v, err := ToObject(a[i], class)
	if err != nil {
		return nil, argError(i, err)
	}
	return v, nil
}

// Floats returns every argument from i onwards as float64 values.
func (a Args) Floats(i int) ([]float64, error) {
	if i >= len(a) {
		return nil, nil
	}
	out := make([]float64, 0, len(a)-i)
	for j := i; j < len(a); j++ {
		v, err := a.Float(j)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func missing(i int, want string) error {
	return errors.New(errors.ErrCodeMethodArgument, "argument %d: missing %s", i+1, want)
}

func argError(i int, err error) error {
	var msg string
	if e, ok := err.(*errors.Error); ok {
		msg = e.Message
	} else {
		msg = err.Error()
	}
	return errors.Wrap(errors.ErrCodeMethodArgument, err, "argument %d: %s", i+1, msg)
}

// =============================================================================
// Coercion
// =============================================================================

// ToFloat converts a script value to a finite float64. Numeric strings and
// booleans are accepted the way JavaScript arithmetic accepts them.
func ToFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		p, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, coercion(v, "number")
		}
		f = p
	default:
		return 0, coercion(v, "number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New(errors.ErrCodePropertyCoercion, "expected a finite number, got %v", f)
	}
	return f, nil
}

// ToInt converts a script value to an int, truncating toward zero.
func ToInt(v any) (int, error) {
	f, err := ToFloat(v)
	if err != nil {
		return 0, err
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errors.New(errors.ErrCodePropertyCoercion, "integer %v out of range", f)
	}
	return int(f), nil
}

// ToString converts a script value to a string. Numbers are formatted the
// shortest way that round-trips.
func ToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", coercion(v, "string")
	}
}

// ToBool converts a script value to a bool using JavaScript truthiness for
// numbers and strings.
func ToBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case float64:
		return x != 0 && !math.IsNaN(x), nil
	case string:
		return x != "", nil
	case nil:
		return false, nil
	default:
		return false, coercion(v, "boolean")
	}
}

// ToObject checks that v is an instance of class.
func ToObject(v any, class string) (Object, error) {
	o, ok := v.(Object)
	if !ok || o.ClassName() != class {
		return nil, coercion(v, class)
	}
	return o, nil
}

// As converts v to the concrete native type T, which must be the type
// registered for class.
func As[T Object](v any, class string) (T, error) {
	var zero T
	o, err := ToObject(v, class)
	if err != nil {
		return zero, err
	}
	t, ok := o.(T)
	if !ok {
		return zero, coercion(v, class)
	}
	return t, nil
}

func coercion(v any, want string) error {
	return errors.New(errors.ErrCodePropertyCoercion, "expected %s, got %s", want, describe(v))
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "undefined"
	case float64, float32, int, int64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case Object:
		return x.ClassName()
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unsupported value"
	}
}
