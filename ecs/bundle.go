package ecs

import (
	"fmt"
	"reflect"
)

// A bundle is a struct whose exported fields are components inserted together.
// A field tagged `ecs:"bundle"` is itself a bundle and is flattened into its parent:
//
//	type Transform struct {
//		Position Position
//		Rotation Rotation
//	}
//
//	type Player struct {
//		Transform Transform `ecs:"bundle"`
//		Health    Health
//	}
type bundleLayout struct {
	typ    reflect.Type
	fields []bundleField
}

type bundleField struct {
	index []int
	typ   reflect.Type
}

func buildBundleLayout(t reflect.Type) (*bundleLayout, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidBundle, t)
	}

	layout := &bundleLayout{typ: t}
	seen := make(map[reflect.Type]bool)
	if err := layout.collect(t, nil, seen); err != nil {
		return nil, err
	}
	return layout, nil
}

func (l *bundleLayout) collect(t reflect.Type, prefix []int, seen map[reflect.Type]bool) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		index := append(append([]int(nil), prefix...), i)

		if field.Tag.Get("ecs") == "bundle" {
			if field.Type.Kind() != reflect.Struct {
				return fmt.Errorf("%w: nested bundle %s.%s is not a struct", ErrInvalidBundle, t, field.Name)
			}
			if err := l.collect(field.Type, index, seen); err != nil {
				return err
			}
			continue
		}

		if k := field.Type.Kind(); k == reflect.Pointer || k == reflect.Interface {
			return fmt.Errorf("%w: field %s.%s must be a value type", ErrInvalidBundle, t, field.Name)
		}
		if seen[field.Type] {
			return fmt.Errorf("%w: %s appears twice in %s", ErrInvalidBundle, field.Type, l.typ)
		}
		seen[field.Type] = true
		l.fields = append(l.fields, bundleField{index: index, typ: field.Type})
	}
	return nil
}

// bundleLayoutLocked returns the cached layout for t, registering its component
// types on first use. Callers hold the write lock.
func (w *World) bundleLayoutLocked(t reflect.Type) (*bundleLayout, error) {
	if layout, ok := w.bundles[t]; ok {
		return layout, nil
	}
	layout, err := buildBundleLayout(t)
	if err != nil {
		return nil, err
	}
	for _, f := range layout.fields {
		w.registerTypeLocked(f.typ)
	}
	w.bundles[t] = layout
	return layout, nil
}

func (w *World) insertBundleLocked(e Entity, v reflect.Value, tick Tick) (bool, error) {
	layout, err := w.bundleLayoutLocked(v.Type())
	if err != nil {
		return false, err
	}
	if !w.entities.IsAlive(e) {
		return false, nil
	}
	for _, f := range layout.fields {
		w.byType[f.typ].InsertAny(e, v.FieldByIndex(f.index).Interface(), tick)
	}
	return true, nil
}

// RegisterBundle registers every component of bundle B, recursively, and returns
// their IDs in field order.
func RegisterBundle[B any](w *World) ([]ComponentID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	layout, err := w.bundleLayoutLocked(typeOf[B]())
	if err != nil {
		return nil, err
	}
	ids := make([]ComponentID, len(layout.fields))
	for i, f := range layout.fields {
		ids[i] = w.byType[f.typ].Info().ID
	}
	return ids, nil
}

// BundleComponentIDs is RegisterBundle for callers that already know B is valid.
func BundleComponentIDs[B any](w *World) []ComponentID {
	ids, err := RegisterBundle[B](w)
	if err != nil {
		panic(err)
	}
	return ids
}

// BundleTypes returns the component types of bundle B in field order.
func BundleTypes[B any]() ([]reflect.Type, error) {
	layout, err := buildBundleLayout(typeOf[B]())
	if err != nil {
		return nil, err
	}
	out := make([]reflect.Type, len(layout.fields))
	for i, f := range layout.fields {
		out[i] = f.typ
	}
	return out, nil
}

// SpawnBundle spawns an entity holding every component of b.
func SpawnBundle[B any](w *World, b B) (Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.bundleLayoutLocked(typeOf[B]()); err != nil {
		return 0, err
	}
	e := w.entities.Spawn()
	_, err := w.insertBundleLocked(e, reflect.ValueOf(&b).Elem(), w.Tick())
	return e, err
}

// InsertBundle attaches every component of b to e. It returns false if e is not alive.
func InsertBundle[B any](w *World, e Entity, b B) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.insertBundleLocked(e, reflect.ValueOf(&b).Elem(), w.Tick())
}
