package script

import (
	"sort"
	"strconv"

	"github.com/dop251/goja"

	"github.com/topdraw/topdraw/pkg/errors"
)

// maxExportDepth bounds recursion into nested arrays and plain objects.
const maxExportDepth = 8

// toValue converts a native result to a script value. Objects are bound to
// their existing peer, or to a new one on first sight.
func (r *Runtime) toValue(v any) (goja.Value, error) {
	switch x := v.(type) {
	case nil:
		return goja.Undefined(), nil
	case goja.Value:
		return x, nil
	case Object:
		h, err := r.bind(x)
		if err != nil {
			return nil, err
		}
		return h.peer, nil
	case float64, float32, int, int64, uint8, string, bool:
		return r.vm.ToValue(x), nil
	case []float64:
		items := make([]any, len(x))
		for i, f := range x {
			items[i] = f
		}
		return r.toValue(items)
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return r.toValue(items)
	case []Object:
		items := make([]any, len(x))
		for i, o := range x {
			items[i] = o
		}
		return r.toValue(items)
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			sv, err := r.toValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = sv
		}
		return r.vm.NewArray(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := r.vm.NewObject()
		for _, k := range keys {
			sv, err := r.toValue(x[k])
			if err != nil {
				return nil, err
			}
			if err := obj.Set(k, sv); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "set %s", k)
			}
		}
		return obj, nil
	default:
		return nil, errors.New(errors.ErrCodeInternal, "cannot pass %T to scripts", v)
	}
}

// export converts a script value to the Go form described on Args.
func (r *Runtime) export(v goja.Value, depth int) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	if depth > maxExportDepth {
		return nil, errors.New(errors.ErrCodeInvalidInput, "value nested too deeply")
	}

	if o, ok := v.(*goja.Object); ok {
		if h, ok := r.byPeer[o]; ok {
			if h.released {
				return nil, errors.New(errors.ErrCodeResource, "%s object has been released", h.binding.class.Name)
			}
			return h.obj, nil
		}
		if _, ok := goja.AssertFunction(o); ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "functions cannot be passed to native objects")
		}
		if o.ClassName() == "Array" {
			n := int(o.Get("length").ToInteger())
			items := make([]any, n)
			for i := range items {
				item, err := r.export(o.Get(strconv.Itoa(i)), depth+1)
				if err != nil {
					return nil, err
				}
				items[i] = item
			}
			return items, nil
		}
		if o.ClassName() == "Object" {
			m := make(map[string]any)
			for _, k := range o.Keys() {
				item, err := r.export(o.Get(k), depth+1)
				if err != nil {
					return nil, err
				}
				m[k] = item
			}
			return m, nil
		}
	}

	switch x := v.Export().(type) {
	case int64:
		return float64(x), nil
	case float64, string, bool:
		return x, nil
	default:
		return v.String(), nil
	}
}

func (r *Runtime) exportArgs(vals []goja.Value) (Args, error) {
	args := make(Args, len(vals))
	for i, v := range vals {
		a, err := r.export(v, 0)
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	return args, nil
}
