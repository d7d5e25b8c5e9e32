package ecs

import (
	"reflect"
	"sort"
)

// resourceCell holds the single instance of a resource type. value is always a
// pointer to the stored value, so pointers handed out survive an overwrite.
type resourceCell struct {
	typ   reflect.Type
	value reflect.Value
	flag  borrowFlag
}

func (c *resourceCell) set(v reflect.Value) {
	c.value.Elem().Set(v)
}

// InsertResource stores value as the resource of its dynamic type, replacing any
// prior value. Pointer values are dereferenced.
func (w *World) InsertResource(value any) {
	if value == nil {
		return
	}
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	w.insertResourceValue(v)
}

func (w *World) insertResourceValue(v reflect.Value) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t := v.Type()
	if cell, ok := w.resources[t]; ok {
		cell.set(v)
		return
	}
	cell := &resourceCell{typ: t, value: reflect.New(t)}
	cell.set(v)
	w.resources[t] = cell
}

func (w *World) resourceCell(t reflect.Type) (*resourceCell, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cell, ok := w.resources[t]
	return cell, ok
}

// Resource returns a pointer to the resource of type t.
func (w *World) Resource(t reflect.Type) (any, bool) {
	cell, ok := w.resourceCell(t)
	if !ok {
		return nil, false
	}
	return cell.value.Interface(), true
}

// ResourceTypes lists the types of every stored resource ordered by name.
func (w *World) ResourceTypes() []reflect.Type {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]reflect.Type, 0, len(w.resources))
	for t := range w.resources {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// InsertResource stores value as the R resource, replacing any prior value.
func InsertResource[R any](w *World, value R) {
	w.insertResourceValue(reflect.ValueOf(&value).Elem())
}

// GetResource returns the R resource for reading. Like GetResourceMut it does
// not consult the borrow flag.
func GetResource[R any](w *World) (*R, bool) {
	cell, ok := w.resourceCell(typeOf[R]())
	if !ok {
		return nil, false
	}
	return cell.value.Interface().(*R), true
}

// GetResourceMut returns the R resource for writing. The access is unchecked:
// nothing stops a system holding Res[R] from reading it concurrently. Outside
// exclusive systems and stage boundaries, use BorrowResourceMut, which panics
// with ErrBorrowConflict on overlapping access.
func GetResourceMut[R any](w *World) (*R, bool) {
	return GetResource[R](w)
}

// HasResource reports whether an R resource is stored.
func HasResource[R any](w *World) bool {
	_, ok := w.resourceCell(typeOf[R]())
	return ok
}

// RemoveResource deletes the R resource and returns its value.
func RemoveResource[R any](w *World) (R, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t := typeOf[R]()
	cell, ok := w.resources[t]
	if !ok {
		var zero R
		return zero, false
	}
	delete(w.resources, t)
	return *cell.value.Interface().(*R), true
}

// BorrowResource returns the R resource together with a release func, holding a
// shared borrow until release is called. It panics with ErrBorrowConflict if R is
// mutably borrowed.
func BorrowResource[R any](w *World) (*R, func(), bool) {
	return borrowResource[R](w, false)
}

// BorrowResourceMut is BorrowResource with an exclusive borrow.
func BorrowResourceMut[R any](w *World) (*R, func(), bool) {
	return borrowResource[R](w, true)
}

func borrowResource[R any](w *World, write bool) (*R, func(), bool) {
	cell, ok := w.resourceCell(typeOf[R]())
	if !ok {
		return nil, func() {}, false
	}
	release := cell.flag.acquire(cell.typ, write)
	return cell.value.Interface().(*R), release, true
}

// ResourceScope removes the R resource for the duration of fn so fn may use the
// World and the resource at the same time, then puts it back. It reports whether
// the resource existed.
func ResourceScope[R any](w *World, fn func(w *World, r *R)) bool {
	r, ok := RemoveResource[R](w)
	if !ok {
		return false
	}
	defer func() {
		if !HasResource[R](w) {
			InsertResource(w, r)
		}
	}()
	fn(w, &r)
	return true
}
