package ecs

import (
	"fmt"
	"reflect"
)

// SystemParam is implemented by the values a system can declare to reach the
// World: Query, Res, ResMut, EventReader and EventWriter. Init binds the
// parameter to a World and adds its footprint to access.
type SystemParam interface {
	Init(w *World, access *SystemAccess) error
}

// runAware params receive the system's change ticks before every run.
type runAware interface {
	beginSystemRun(lastRun, thisRun Tick)
}

// borrowingParam params hold checked borrows for the duration of a run.
type borrowingParam interface {
	acquire() func()
}

var systemParamType = reflect.TypeOf((*SystemParam)(nil)).Elem()

// mergeParamAccess adds a parameter's footprint to the system's, rejecting a
// parameter that conflicts with the ones declared before it.
func mergeParamAccess(access *SystemAccess, param SystemAccess, name string) error {
	if access == nil {
		return nil
	}
	if !access.Exclusive && !param.Exclusive && access.Conflicts(param) {
		return fmt.Errorf("%w: %s (%s) overlaps %s", ErrConflictingParams, name, param, *access)
	}
	access.Merge(param)
	return nil
}

// Res is a system parameter with shared access to resource T.
type Res[T any] struct {
	world *World
}

func (r *Res[T]) Init(w *World, access *SystemAccess) error {
	r.world = w
	return mergeParamAccess(access, NewAccess(ReadsResource[T]()), fmt.Sprintf("Res[%s]", typeOf[T]()))
}

// Get returns the resource, or nil if it is absent.
func (r *Res[T]) Get() *T {
	v, _ := GetResource[T](r.world)
	return v
}

// Exists reports whether the resource is present.
func (r *Res[T]) Exists() bool {
	return HasResource[T](r.world)
}

func (r *Res[T]) acquire() func() {
	_, release, _ := BorrowResource[T](r.world)
	return release
}

// ResMut is a system parameter with exclusive access to resource T.
type ResMut[T any] struct {
	world *World
}

func (r *ResMut[T]) Init(w *World, access *SystemAccess) error {
	r.world = w
	return mergeParamAccess(access, NewAccess(WritesResource[T]()), fmt.Sprintf("ResMut[%s]", typeOf[T]()))
}

// Get returns the resource, or nil if it is absent.
func (r *ResMut[T]) Get() *T {
	v, _ := GetResourceMut[T](r.world)
	return v
}

// Exists reports whether the resource is present.
func (r *ResMut[T]) Exists() bool {
	return HasResource[T](r.world)
}

// Set replaces the resource value, inserting it if absent.
func (r *ResMut[T]) Set(value T) {
	if v, ok := GetResourceMut[T](r.world); ok {
		*v = value
		return
	}
	InsertResource(r.world, value)
}

func (r *ResMut[T]) acquire() func() {
	_, release, _ := BorrowResourceMut[T](r.world)
	return release
}

var (
	_ SystemParam    = (*Query[struct{}])(nil)
	_ SystemParam    = (*Res[struct{}])(nil)
	_ SystemParam    = (*ResMut[struct{}])(nil)
	_ SystemParam    = (*EventReader[struct{}])(nil)
	_ SystemParam    = (*EventWriter[struct{}])(nil)
	_ runAware       = (*Query[struct{}])(nil)
	_ borrowingParam = (*ResMut[struct{}])(nil)
)
