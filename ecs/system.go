package ecs

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// System represents a behavior that operates on the World once per frame.
//
// A struct system can declare its parameters as fields: Query, Res, ResMut,
// EventReader and EventWriter values (or pointers to them) are initialized when
// the system is added to a Schedule, and a *World field marks the system as
// exclusive. Other fields are free to hold state that persists between frames.
type System interface {
	Execute(frame *UpdateFrame)
}

// UpdateFrame is handed to a system on every run.
type UpdateFrame struct {
	// DeltaTime is the frame delta in seconds, taken from the Time resource.
	DeltaTime float64
	// Commands buffers structural changes until the end of the stage.
	Commands *Commands
	// World is the running World. Structural changes made through it directly
	// are only safe from exclusive systems.
	World *World
	// System is the name the system was registered under.
	System string
	// LastRun is the tick of the system's previous run, ThisRun of the current one.
	LastRun Tick
	ThisRun Tick
}

// SystemFunc adapts a plain function over the frame to the System interface.
type SystemFunc func(frame *UpdateFrame)

func (f SystemFunc) Execute(frame *UpdateFrame) { f(frame) }

var (
	worldPtrType    = reflect.TypeOf((*World)(nil))
	commandsPtrType = reflect.TypeOf((*Commands)(nil))
	framePtrType    = reflect.TypeOf((*UpdateFrame)(nil))
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
)

// funcSystem calls a function whose parameters are all system parameters.
type funcSystem struct {
	fn    reflect.Value
	args  []reflect.Value
	kinds []argKind
}

// systemError carries an error returned by a function system up to the Schedule.
type systemError struct {
	err error
}

type argKind uint8

const (
	argParam argKind = iota
	argWorld
	argCommands
	argFrame
)

func (s *funcSystem) Execute(frame *UpdateFrame) {
	for i, kind := range s.kinds {
		switch kind {
		case argWorld:
			s.args[i] = reflect.ValueOf(frame.World)
		case argCommands:
			s.args[i] = reflect.ValueOf(frame.Commands)
		case argFrame:
			s.args[i] = reflect.ValueOf(frame)
		}
	}

	out := s.fn.Call(s.args)
	if len(out) == 1 && !out[0].IsNil() {
		panic(systemError{err: out[0].Interface().(error)})
	}
}

// boundSystem is a system with its parameters initialized against a World.
type boundSystem struct {
	name     string
	system   System
	params   []SystemParam
	access   SystemAccess
	explicit bool
	lastRun  Tick
}

func systemName(sys any) string {
	v := reflect.ValueOf(sys)
	if v.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
			name := fn.Name()
			if i := strings.LastIndex(name, "/"); i >= 0 {
				name = name[i+1:]
			}
			return name
		}
		return "func"
	}

	t := v.Type()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// bindSystem turns sys into a boundSystem. sys may be a System or a function
// whose parameters are SystemParam pointers, *World, *Commands or *UpdateFrame,
// returning nothing or an error.
func bindSystem(w *World, sys any) (*boundSystem, error) {
	if sys == nil {
		return nil, fmt.Errorf("%w: nil system", ErrInvalidSystem)
	}

	bound := &boundSystem{name: systemName(sys)}

	if s, ok := sys.(System); ok {
		bound.system = s
		if err := bound.initFields(w, reflect.ValueOf(s)); err != nil {
			return nil, err
		}
		return bound, nil
	}

	fn := reflect.ValueOf(sys)
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T is neither a System nor a func", ErrInvalidSystem, sys)
	}
	s, err := bound.initFunc(w, fn)
	if err != nil {
		return nil, err
	}
	bound.system = s
	return bound, nil
}

func (b *boundSystem) addParam(w *World, p SystemParam) error {
	if err := p.Init(w, &b.access); err != nil {
		return fmt.Errorf("system %s: %w", b.name, err)
	}
	b.params = append(b.params, p)
	return nil
}

func (b *boundSystem) initFields(w *World, v reflect.Value) error {
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		switch {
		case field.Type() == worldPtrType:
			field.Set(reflect.ValueOf(w))
			b.access.Exclusive = true
		case field.Kind() == reflect.Struct && field.Addr().Type().Implements(systemParamType):
			if err := b.addParam(w, field.Addr().Interface().(SystemParam)); err != nil {
				return err
			}
		case field.Kind() == reflect.Pointer && field.Type().Implements(systemParamType):
			if field.IsNil() {
				field.Set(reflect.New(field.Type().Elem()))
			}
			if err := b.addParam(w, field.Interface().(SystemParam)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *boundSystem) initFunc(w *World, fn reflect.Value) (*funcSystem, error) {
	t := fn.Type()
	if t.NumOut() > 1 || (t.NumOut() == 1 && t.Out(0) != errorType) {
		return nil, fmt.Errorf("%w: %s must return nothing or an error", ErrInvalidSystem, b.name)
	}

	s := &funcSystem{
		fn:    fn,
		args:  make([]reflect.Value, t.NumIn()),
		kinds: make([]argKind, t.NumIn()),
	}
	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		switch {
		case in == worldPtrType:
			s.kinds[i] = argWorld
			b.access.Exclusive = true
		case in == commandsPtrType:
			s.kinds[i] = argCommands
		case in == framePtrType:
			s.kinds[i] = argFrame
		case in.Kind() == reflect.Pointer && in.Implements(systemParamType):
			param := reflect.New(in.Elem())
			if err := b.addParam(w, param.Interface().(SystemParam)); err != nil {
				return nil, err
			}
			s.kinds[i] = argParam
			s.args[i] = param
		default:
			return nil, fmt.Errorf("%w: %s parameter %d has unsupported type %s", ErrInvalidSystem, b.name, i, in)
		}
	}
	return s, nil
}

// begin hands the run's ticks to the parameters and takes their borrows.
func (b *boundSystem) begin(thisRun Tick) func() {
	var releases []func()
	for _, p := range b.params {
		if ra, ok := p.(runAware); ok {
			ra.beginSystemRun(b.lastRun, thisRun)
		}
		if bp, ok := p.(borrowingParam); ok {
			releases = append(releases, bp.acquire())
		}
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
		b.lastRun = thisRun
	}
}
