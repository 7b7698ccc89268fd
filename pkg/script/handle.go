package script

import (
	"github.com/dop251/goja"

	"github.com/topdraw/topdraw/pkg/errors"
)

// handle is the script peer of one native object. It implements
// goja.DynamicObject so that every property access from script code is
// routed through the class binding.
type handle struct {
	id       uint64
	rt       *Runtime
	obj      Object
	binding  *binding
	peer     *goja.Object
	methods  map[string]goja.Value
	released bool
}

// bind returns the handle for obj, creating it on first sight.
func (r *Runtime) bind(obj Object) (*handle, error) {
	if h, ok := r.byObject[obj]; ok {
		return h, nil
	}
	b, err := r.bindingOf(obj)
	if err != nil {
		return nil, err
	}
	r.nextID++
	h := &handle{id: r.nextID, rt: r, obj: obj, binding: b}
	h.peer = r.vm.NewDynamicObject(h)
	if err := h.peer.SetPrototype(r.protos[b.id]); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "set prototype of %s", b.class.Name)
	}
	r.handles[h.id] = h
	r.byObject[obj] = h
	r.byPeer[h.peer] = h
	return h, nil
}

func (h *handle) checkLive() {
	if h.released {
		h.rt.throw(errors.New(errors.ErrCodeResource, "%s object has been released", h.binding.class.Name))
	}
}

// Get implements goja.DynamicObject. Names the class does not declare
// resolve through the prototype chain.
func (h *handle) Get(key string) goja.Value {
	h.checkLive()
	switch {
	case h.binding.hasProperty(key):
		v, err := h.rt.GetProperty(h.obj, key)
		if err != nil {
			h.rt.throw(err)
		}
		sv, err := h.rt.toValue(v)
		if err != nil {
			h.rt.throw(err)
		}
		return sv
	case h.binding.methods[key]:
		return h.method(key)
	}
	return nil
}

// Set implements goja.DynamicObject.
func (h *handle) Set(key string, val goja.Value) bool {
	h.checkLive()
	v, err := h.rt.export(val, 0)
	if err == nil {
		err = h.rt.SetProperty(h.obj, key, v)
	}
	if err != nil {
		h.rt.throw(err)
	}
	return true
}

// Has implements goja.DynamicObject.
func (h *handle) Has(key string) bool {
	return h.binding.hasProperty(key) || h.binding.methods[key]
}

// Delete implements goja.DynamicObject. Declared members cannot be removed.
func (h *handle) Delete(key string) bool {
	return !h.Has(key)
}

// Keys implements goja.DynamicObject.
func (h *handle) Keys() []string {
	return append([]string(nil), h.binding.class.Properties...)
}

func (h *handle) method(name string) goja.Value {
	if fn, ok := h.methods[name]; ok {
		return fn
	}
	fn := h.rt.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		h.checkLive()
		args, err := h.rt.exportArgs(call.Arguments)
		if err != nil {
			h.rt.throw(annotate(err, errors.ErrCodeMethodArgument, "%s.%s", h.binding.class.Name, name))
		}
		res, err := h.rt.Invoke(h.obj, name, args...)
		if err != nil {
			h.rt.throw(err)
		}
		v, err := h.rt.toValue(res)
		if err != nil {
			h.rt.throw(err)
		}
		return v
	})
	if h.methods == nil {
		h.methods = make(map[string]goja.Value)
	}
	h.methods[name] = fn
	return fn
}
