package ecs

import "reflect"

// ComponentID is a dense per-World identifier assigned when a component type is registered.
type ComponentID uint32

// ComponentInfo describes a registered component type.
type ComponentInfo struct {
	ID   ComponentID
	Type reflect.Type
	Name string
}

// Tick is a value of the World's monotonically increasing change counter.
type Tick uint64

// ComponentTicks records when a component value was added and last changed.
type ComponentTicks struct {
	Added   Tick
	Changed Tick
}

// IsAdded reports whether the component was added after lastRun.
func (t ComponentTicks) IsAdded(lastRun Tick) bool {
	return t.Added > lastRun
}

// IsChanged reports whether the component was added or mutated after lastRun.
func (t ComponentTicks) IsChanged(lastRun Tick) bool {
	return t.Changed > lastRun
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
