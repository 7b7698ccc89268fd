package script

import (
	"github.com/topdraw/topdraw/pkg/errors"
)

// Object is the capability set a native type implements to be reachable
// from scripts.
//
// The Runtime only calls GetProperty, SetProperty and Invoke with names the
// object's Class declared, and never calls SetProperty for a read-only
// name. Implementations report coercion problems by returning errors built
// with [ToFloat], [ToInt] and friends, or with [Args] accessors.
type Object interface {
	// ClassName returns the Name of the Class the object was registered with.
	ClassName() string
	// GetProperty returns the current value of a declared property.
	GetProperty(name string) (any, error)
	// SetProperty assigns a declared, writable property.
	SetProperty(name string, value any) error
	// Invoke calls a declared method.
	Invoke(method string, args Args) (any, error)
}

// Releaser is implemented by objects that hold resources worth freeing as
// soon as [Runtime.Release] unbinds them.
type Releaser interface {
	Release()
}

// Class describes a native type to the Runtime.
type Class struct {
	Name       string                          // Script-visible constructor name
	Properties []string                        // Readable property names
	ReadOnly   []string                        // Subset of Properties that reject writes
	Methods    []string                        // Callable method names
	New        func(args Args) (Object, error) // Constructor for `new Name(...)`
}

// binding is the validated, indexed form of a Class.
type binding struct {
	id         int
	class      Class
	properties map[string]bool // name -> read-only
	methods    map[string]bool
}

func (b *binding) hasProperty(name string) bool {
	_, ok := b.properties[name]
	return ok
}

func (b *binding) readOnly(name string) bool {
	return b.properties[name]
}

// newBinding validates c and indexes its member names. It rejects classes
// whose member declarations are inconsistent on their own; collisions with
// other classes are checked by the Runtime.
func newBinding(c Class) (*binding, error) {
	if c.Name == "" {
		return nil, errors.New(errors.ErrCodeRegistration, "class name is empty")
	}
	if c.New == nil {
		return nil, errors.New(errors.ErrCodeRegistration, "class %s has no constructor", c.Name)
	}

	b := &binding{
		class:      c,
		properties: make(map[string]bool, len(c.Properties)),
		methods:    make(map[string]bool, len(c.Methods)),
	}
	for _, p := range c.Properties {
		if p == "" {
			return nil, errors.New(errors.ErrCodeRegistration, "class %s declares an empty property name", c.Name)
		}
		if _, dup := b.properties[p]; dup {
			return nil, errors.New(errors.ErrCodeRegistration, "class %s declares property %q twice", c.Name, p)
		}
		b.properties[p] = false
	}
	for _, p := range c.ReadOnly {
		if _, ok := b.properties[p]; !ok {
			return nil, errors.New(errors.ErrCodeRegistration,
				"class %s marks %q read-only but does not declare it as a property", c.Name, p)
		}
		b.properties[p] = true
	}
	for _, m := range c.Methods {
		if m == "" {
			return nil, errors.New(errors.ErrCodeRegistration, "class %s declares an empty method name", c.Name)
		}
		if _, clash := b.properties[m]; clash {
			return nil, errors.New(errors.ErrCodeRegistration,
				"class %s declares %q as both a property and a method", c.Name, m)
		}
		if b.methods[m] {
			return nil, errors.New(errors.ErrCodeRegistration, "class %s declares method %q twice", c.Name, m)
		}
		b.methods[m] = true
	}
	return b, nil
}
