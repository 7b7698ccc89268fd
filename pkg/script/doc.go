// Package script exposes native Go objects to an embedded JavaScript engine.
//
// # Overview
//
// A [Runtime] wraps one goja interpreter together with the registries that
// connect script values to native objects. Native types become visible to
// scripts by describing themselves with a [Class] and implementing
// [Object]:
//
//	rt := script.New()
//	err := rt.Register(script.Class{
//	    Name:       "Point",
//	    Properties: []string{"x", "y"},
//	    Methods:    []string{"distance"},
//	    New:        newPoint,
//	})
//
// Scripts then construct instances with `new Point(1, 2)`, read and write the
// declared properties and call the declared methods. Every access is routed
// through the class binding: unknown names, writes to read-only properties
// and values that cannot be coerced are reported as structured errors from
// [github.com/topdraw/topdraw/pkg/errors] and raised inside the script as
// TypeError exceptions.
//
// # Identity
//
// Each native instance is bound to exactly one script peer for as long as it
// is registered. A method that returns an object the script has already seen
// yields the same peer: `rect.inset(2) === rect` holds because inset returns
// its receiver, while `rect.copy() !== rect`.
//
// # Isolation
//
// Runtimes share nothing. Registering a class or creating an instance only
// mutates the Runtime it happens in, and a Runtime is meant to serve exactly
// one evaluation. [Runtime.Release] unbinds a single object and
// [Runtime.Close] unbinds all of them; a peer that outlives its binding
// raises an error on every access instead of dangling.
//
// # Concurrency
//
// A Runtime is not safe for concurrent use. The only exception is
// [Runtime.Interrupt], which may be called from another goroutine to abort a
// running evaluation.
package script
