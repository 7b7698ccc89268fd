package script

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/topdraw/topdraw/pkg/errors"
)

// Runtime is one scripting context plus the registries that bind script
// peers to native objects.
type Runtime struct {
	vm *goja.Runtime

	classes []*binding          // arena; a binding's id is its index
	byName  map[string]*binding // class name -> binding
	protos  []*goja.Object      // installed prototype per binding id

	nextID   uint64
	handles  map[uint64]*handle
	byObject map[Object]*handle
	byPeer   map[*goja.Object]*handle

	thrown map[*goja.Object]error // exceptions raised by the bridge
	logf   func(string)
	closed bool
}

// New creates an empty Runtime with the global log function installed.
func New() *Runtime {
	r := &Runtime{
		vm:       goja.New(),
		byName:   make(map[string]*binding),
		handles:  make(map[uint64]*handle),
		byObject: make(map[Object]*handle),
		byPeer:   make(map[*goja.Object]*handle),
		thrown:   make(map[*goja.Object]error),
	}
	_ = r.vm.Set("log", r.scriptLog)
	return r
}

// =============================================================================
// Registration
// =============================================================================

// Register makes c constructible from scripts under c.Name.
//
// Registration fails without side effects when the class declaration is
// inconsistent or when c.Name is already taken by another class or global.
func (r *Runtime) Register(c Class) error {
	if r.closed {
		return errors.New(errors.ErrCodeRegistration, "runtime is closed")
	}
	b, err := newBinding(c)
	if err != nil {
		return err
	}
	if _, dup := r.byName[c.Name]; dup {
		return errors.New(errors.ErrCodeRegistration, "class %s is already registered", c.Name)
	}
	if v := r.vm.Get(c.Name); v != nil {
		return errors.New(errors.ErrCodeRegistration, "class name %s collides with an existing global", c.Name)
	}

	ctor := r.vm.ToValue(func(call goja.ConstructorCall) *goja.Object {
		return r.construct(b, call)
	}).ToObject(r.vm)
	proto, ok := ctor.Get("prototype").(*goja.Object)
	if !ok {
		proto = r.vm.NewObject()
		if err := ctor.Set("prototype", proto); err != nil {
			return errors.Wrap(errors.ErrCodeRegistration, err, "install prototype for %s", c.Name)
		}
	}
	if err := r.vm.Set(c.Name, ctor); err != nil {
		return errors.Wrap(errors.ErrCodeRegistration, err, "install constructor for %s", c.Name)
	}

	b.id = len(r.classes)
	r.classes = append(r.classes, b)
	r.protos = append(r.protos, proto)
	r.byName[c.Name] = b
	return nil
}

// Registered reports whether a class named name has been registered.
func (r *Runtime) Registered(name string) bool {
	_, ok := r.byName[name]
	return ok
}

func (r *Runtime) construct(b *binding, call goja.ConstructorCall) *goja.Object {
	args, err := r.exportArgs(call.Arguments)
	if err != nil {
		r.throw(annotate(err, errors.ErrCodeMethodArgument, "new %s", b.class.Name))
	}
	obj, err := b.class.New(args)
	if err != nil {
		r.throw(annotate(err, errors.ErrCodeMethodArgument, "new %s", b.class.Name))
	}
	if obj == nil {
		r.throw(errors.New(errors.ErrCodeInternal, "new %s: constructor returned nothing", b.class.Name))
	}
	h, err := r.bind(obj)
	if err != nil {
		r.throw(err)
	}
	return h.peer
}

// =============================================================================
// Bridge operations
// =============================================================================

// GetProperty reads a declared property of obj.
func (r *Runtime) GetProperty(obj Object, name string) (any, error) {
	b, err := r.bindingOf(obj)
	if err != nil {
		return nil, err
	}
	if !b.hasProperty(name) {
		return nil, unknownProperty(b, name)
	}
	v, err := obj.GetProperty(name)
	if err != nil {
		return nil, annotate(err, errors.ErrCodeInternal, "%s.%s", b.class.Name, name)
	}
	return v, nil
}

// SetProperty assigns a declared property of obj. Writes to read-only
// properties fail with READ_ONLY and never reach the native object.
func (r *Runtime) SetProperty(obj Object, name string, value any) error {
	b, err := r.bindingOf(obj)
	if err != nil {
		return err
	}
	if !b.hasProperty(name) {
		return unknownProperty(b, name)
	}
	if b.readOnly(name) {
		return errors.New(errors.ErrCodeReadOnly, "property %s of %s is read-only", name, b.class.Name)
	}
	if err := obj.SetProperty(name, value); err != nil {
		return annotate(err, errors.ErrCodePropertyCoercion, "%s.%s", b.class.Name, name)
	}
	return nil
}

// Invoke calls a declared method of obj.
func (r *Runtime) Invoke(obj Object, method string, args ...any) (any, error) {
	b, err := r.bindingOf(obj)
	if err != nil {
		return nil, err
	}
	if !b.methods[method] {
		return nil, errors.New(errors.ErrCodeUnknownMethod, "%s has no method %s", b.class.Name, method)
	}
	v, err := obj.Invoke(method, Args(args))
	if err != nil {
		return nil, annotate(err, errors.ErrCodeMethodArgument, "%s.%s", b.class.Name, method)
	}
	return v, nil
}

func (r *Runtime) bindingOf(obj Object) (*binding, error) {
	if r.closed {
		return nil, errors.New(errors.ErrCodeResource, "runtime is closed")
	}
	if obj == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil object")
	}
	b, ok := r.byName[obj.ClassName()]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "class %s is not registered", obj.ClassName())
	}
	return b, nil
}

func unknownProperty(b *binding, name string) error {
	if b.methods[name] {
		return errors.New(errors.ErrCodeUnknownProperty, "%s.%s is a method, not a property", b.class.Name, name)
	}
	return errors.New(errors.ErrCodeUnknownProperty, "%s has no property %s", b.class.Name, name)
}

// annotate prefixes err's message with where, keeping err's code when it
// has one and falling back to def otherwise.
func annotate(err error, def errors.Code, where string, args ...any) *errors.Error {
	code := errors.GetCode(err)
	if code == "" {
		code = def
	}
	return errors.Wrap(code, err, "%s: %s", fmt.Sprintf(where, args...), errors.UserMessage(err))
}

// =============================================================================
// Globals and logging
// =============================================================================

// Set installs a global script variable. Objects are bound to their peers.
func (r *Runtime) Set(name string, value any) error {
	v, err := r.toValue(value)
	if err != nil {
		return err
	}
	if err := r.vm.Set(name, v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "set global %s", name)
	}
	return nil
}

// Get reads a global script variable, converted the same way as
// method arguments.
func (r *Runtime) Get(name string) (any, error) {
	return r.export(r.vm.Get(name), 0)
}

// SetLogger routes script and native log messages to fn. A nil fn
// discards them.
func (r *Runtime) SetLogger(fn func(msg string)) {
	r.logf = fn
}

// Log forwards a diagnostic message to the log callback.
func (r *Runtime) Log(msg string) {
	if r.logf != nil {
		r.logf(msg)
	}
}

func (r *Runtime) scriptLog(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		if o, ok := a.(*goja.Object); ok {
			if h, ok := r.byPeer[o]; ok {
				parts[i] = "[object " + h.binding.class.Name + "]"
				continue
			}
		}
		parts[i] = a.String()
	}
	r.Log(strings.Join(parts, " "))
	return goja.Undefined()
}

// =============================================================================
// Determinism hooks
// =============================================================================

// SetRandSource replaces the source behind Math.random.
func (r *Runtime) SetRandSource(fn func() float64) {
	r.vm.SetRandSource(fn)
}

// SetTimeSource replaces the clock behind Date.
func (r *Runtime) SetTimeSource(fn func() time.Time) {
	r.vm.SetTimeSource(fn)
}

// =============================================================================
// Evaluation
// =============================================================================

// Evaluate compiles and runs src. name labels the source in stack traces.
//
// Syntax errors and uncaught exceptions are returned as
// *errors.ScriptError carrying the 1-based line when it is known. If the
// exception was raised by the bridge, the ScriptError's Cause is the
// structured bridge error. An evaluation stopped by Interrupt fails with
// code TIMEOUT.
func (r *Runtime) Evaluate(name, src string) (err error) {
	if r.closed {
		return errors.New(errors.ErrCodeResource, "runtime is closed")
	}
	prg, err := goja.Compile(name, src, false)
	if err != nil {
		return r.scriptError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = errors.New(errors.ErrCodeInternal, "native code panicked: %v", p)
		}
	}()
	if _, err := r.vm.RunProgram(prg); err != nil {
		return r.scriptError(err)
	}
	return nil
}

// Interrupt aborts a running Evaluate. It is safe to call from another
// goroutine.
func (r *Runtime) Interrupt(reason string) {
	r.vm.Interrupt(reason)
}

var (
	lineRE = regexp.MustCompile(`Line (\d+):\d+ `)
	// frameRE matches the position of a stack frame, "name:line:col(pc)".
	frameRE = regexp.MustCompile(`:(\d+):\d+\(\d+\)`)
)

func (r *Runtime) scriptError(err error) error {
	var interrupted *goja.InterruptedError
	if stderrors.As(err, &interrupted) {
		return errors.Wrap(errors.ErrCodeTimeout, err, "evaluation interrupted: %v", interrupted.Value())
	}

	var syntax *goja.CompilerSyntaxError
	if stderrors.As(err, &syntax) {
		se := &errors.ScriptError{Message: syntax.Message}
		if syntax.File != nil {
			se.Line = syntax.File.Position(syntax.Offset).Line
		}
		if loc := lineRE.FindStringSubmatchIndex(se.Message); loc != nil {
			if se.Line == 0 {
				se.Line, _ = strconv.Atoi(se.Message[loc[2]:loc[3]])
			}
			se.Message = se.Message[loc[1]:]
		}
		se.Message = "SyntaxError: " + se.Message
		return se
	}

	var exc *goja.Exception
	if stderrors.As(err, &exc) {
		se := &errors.ScriptError{Message: exc.Error()}
		if v := exc.Value(); v != nil {
			se.Message = v.String()
			if o, ok := v.(*goja.Object); ok {
				se.Cause = r.thrown[o]
			}
		}
		se.Line = exceptionLine(exc.String())
		return se
	}
	return &errors.ScriptError{Message: err.Error()}
}

// exceptionLine returns the line of the innermost script frame in a
// formatted exception, or 0 when no frame carries a position.
func exceptionLine(trace string) int {
	for _, m := range frameRE.FindAllStringSubmatch(trace, -1) {
		if line, err := strconv.Atoi(m[1]); err == nil && line > 0 {
			return line
		}
	}
	return 0
}

// throw raises err inside the script as a TypeError and remembers err as
// the exception's cause.
func (r *Runtime) throw(err error) {
	o := r.vm.NewTypeError("%s", errors.UserMessage(err))
	r.thrown[o] = err
	panic(o)
}

// =============================================================================
// Lifetime
// =============================================================================

// Release unbinds obj from its script peer and, when obj implements
// Releaser, frees it. Later script accesses through the old peer raise an
// error.
func (r *Runtime) Release(obj Object) {
	h, ok := r.byObject[obj]
	if !ok {
		return
	}
	r.detach(h)
	if rel, ok := obj.(Releaser); ok {
		rel.Release()
	}
}

func (r *Runtime) detach(h *handle) {
	h.released = true
	delete(r.byObject, h.obj)
	delete(r.handles, h.id)
}

// Instances returns the number of live bound objects.
func (r *Runtime) Instances() int {
	return len(r.handles)
}

// Close detaches every script peer and retires the Runtime. Native objects
// stay usable from Go; their owners decide when to free them. Further
// operations on the Runtime fail.
func (r *Runtime) Close() {
	if r.closed {
		return
	}
	for _, h := range r.handles {
		h.released = true
	}
	clear(r.handles)
	clear(r.byObject)
	clear(r.byPeer)
	clear(r.thrown)
	r.logf = nil
	r.closed = true
}
