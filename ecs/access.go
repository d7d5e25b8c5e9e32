package ecs

import (
	"reflect"
	"sort"
	"strings"
)

// TypeSet is a set of component or resource types.
type TypeSet map[reflect.Type]struct{}

// Add inserts t into the set, allocating it if needed.
func (s *TypeSet) Add(t reflect.Type) {
	if *s == nil {
		*s = make(TypeSet)
	}
	(*s)[t] = struct{}{}
}

// Has reports whether t is in the set.
func (s TypeSet) Has(t reflect.Type) bool {
	_, ok := s[t]
	return ok
}

// Intersects reports whether the two sets share a type.
func (s TypeSet) Intersects(other TypeSet) bool {
	if len(other) < len(s) {
		s, other = other, s
	}
	for t := range s {
		if other.Has(t) {
			return true
		}
	}
	return false
}

// Names returns the sorted type names in the set.
func (s TypeSet) Names() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}

// SystemAccess is the footprint of a system: the resource and component types it
// reads and writes. Exclusive systems conflict with everything.
type SystemAccess struct {
	ResourcesRead   TypeSet
	ResourcesWrite  TypeSet
	ComponentsRead  TypeSet
	ComponentsWrite TypeSet
	Exclusive       bool
}

// AccessOption adds a type to a SystemAccess under construction.
type AccessOption func(a *SystemAccess)

// NewAccess builds a SystemAccess from options.
func NewAccess(opts ...AccessOption) SystemAccess {
	var a SystemAccess
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// ReadsResource declares shared access to resource R.
func ReadsResource[R any]() AccessOption {
	return func(a *SystemAccess) { a.ResourcesRead.Add(typeOf[R]()) }
}

// WritesResource declares exclusive access to resource R.
func WritesResource[R any]() AccessOption {
	return func(a *SystemAccess) { a.ResourcesWrite.Add(typeOf[R]()) }
}

// ReadsComponent declares shared access to component T.
func ReadsComponent[T any]() AccessOption {
	return func(a *SystemAccess) { a.ComponentsRead.Add(typeOf[T]()) }
}

// WritesComponent declares exclusive access to component T.
func WritesComponent[T any]() AccessOption {
	return func(a *SystemAccess) { a.ComponentsWrite.Add(typeOf[T]()) }
}

// Exclusive declares that the system touches the whole World.
func Exclusive() AccessOption {
	return func(a *SystemAccess) { a.Exclusive = true }
}

// IsEmpty reports whether the access declares nothing at all.
func (a SystemAccess) IsEmpty() bool {
	return !a.Exclusive && len(a.ResourcesRead) == 0 && len(a.ResourcesWrite) == 0 &&
		len(a.ComponentsRead) == 0 && len(a.ComponentsWrite) == 0
}

// Conflicts reports whether a and b cannot run at the same time: one of them is
// exclusive, or a type written by one is read or written by the other.
func (a SystemAccess) Conflicts(b SystemAccess) bool {
	if a.Exclusive || b.Exclusive {
		return true
	}
	return writeConflict(a.ComponentsWrite, b.ComponentsRead, b.ComponentsWrite) ||
		writeConflict(b.ComponentsWrite, a.ComponentsRead, a.ComponentsWrite) ||
		writeConflict(a.ResourcesWrite, b.ResourcesRead, b.ResourcesWrite) ||
		writeConflict(b.ResourcesWrite, a.ResourcesRead, a.ResourcesWrite)
}

func writeConflict(write, read, otherWrite TypeSet) bool {
	return write.Intersects(read) || write.Intersects(otherWrite)
}

// Merge adds every type of other to a.
func (a *SystemAccess) Merge(other SystemAccess) {
	for t := range other.ResourcesRead {
		a.ResourcesRead.Add(t)
	}
	for t := range other.ResourcesWrite {
		a.ResourcesWrite.Add(t)
	}
	for t := range other.ComponentsRead {
		a.ComponentsRead.Add(t)
	}
	for t := range other.ComponentsWrite {
		a.ComponentsWrite.Add(t)
	}
	a.Exclusive = a.Exclusive || other.Exclusive
}

func (a SystemAccess) String() string {
	if a.Exclusive {
		return "exclusive"
	}
	var parts []string
	add := func(label string, s TypeSet) {
		if len(s) > 0 {
			parts = append(parts, label+"["+strings.Join(s.Names(), " ")+"]")
		}
	}
	add("res", a.ResourcesRead)
	add("res_mut", a.ResourcesWrite)
	add("read", a.ComponentsRead)
	add("write", a.ComponentsWrite)
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
