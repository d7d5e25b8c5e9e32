package ecs

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// queryLayout is the parsed shape of a query data struct.
//
// Pointer fields are components: read-only by default, writable with the
// `ecs:"mut"` tag, and allowed to be nil with `ecs:"optional"`. Tags combine as
// `ecs:"mut,optional"`. A field of type Entity receives the matched entity and
// fields whose type implements QueryFilter narrow the match.
type queryLayout struct {
	typ      reflect.Type
	fields   []queryField
	entities []uintptr
	filters  []filterExpr
}

type queryField struct {
	name     string
	typ      reflect.Type
	offset   uintptr
	mut      bool
	optional bool
}

var entityType = reflect.TypeOf(Entity(0))

func parseQueryLayout(t reflect.Type) (*queryLayout, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidQuery, t)
	}

	layout := &queryLayout{typ: t}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if f, ok := filterExprOf(field.Type); ok {
			layout.filters = append(layout.filters, f)
			continue
		}
		if field.Type == entityType {
			layout.entities = append(layout.entities, field.Offset)
			continue
		}
		if field.Type.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("%w: field %s of %s must be a component pointer, Entity or filter", ErrInvalidQuery, field.Name, t)
		}

		qf := queryField{name: field.Name, typ: field.Type.Elem(), offset: field.Offset}
		if tag := field.Tag.Get("ecs"); tag != "" {
			for _, opt := range strings.Split(tag, ",") {
				switch strings.TrimSpace(opt) {
				case "mut":
					qf.mut = true
				case "optional":
					qf.optional = true
				default:
					return nil, fmt.Errorf("%w: invalid ecs tag %q on field %s", ErrInvalidQuery, tag, field.Name)
				}
			}
		}
		layout.fields = append(layout.fields, qf)
	}

	if err := layout.checkAliasing(); err != nil {
		return nil, err
	}
	return layout, nil
}

func (l *queryLayout) checkAliasing() error {
	mutable := make(map[reflect.Type]bool)
	for _, f := range l.fields {
		prev, seen := mutable[f.typ]
		if seen && (prev || f.mut) {
			return fmt.Errorf("%w: %s in %s", ErrQueryAliasing, f.typ, l.typ)
		}
		mutable[f.typ] = f.mut
	}
	return nil
}

// access is the component footprint of the layout, filters included.
func (l *queryLayout) access() SystemAccess {
	var a SystemAccess
	for _, f := range l.fields {
		if f.mut {
			a.ComponentsWrite.Add(f.typ)
		}
	}
	for _, f := range l.fields {
		if !f.mut && !a.ComponentsWrite.Has(f.typ) {
			a.ComponentsRead.Add(f.typ)
		}
	}
	var filtered TypeSet
	for _, f := range l.filters {
		f.reads(&filtered)
	}
	for t := range filtered {
		if !a.ComponentsWrite.Has(t) {
			a.ComponentsRead.Add(t)
		}
	}
	return a
}

// requiredTypes returns the component types an entity must hold to match.
func (l *queryLayout) requiredTypes() []reflect.Type {
	var out []reflect.Type
	for _, f := range l.fields {
		if !f.optional {
			out = append(out, f.typ)
		}
	}
	for _, f := range l.filters {
		if t, ok := f.requires(); ok {
			out = append(out, t)
		}
	}
	return out
}

// fill writes e's component pointers into the struct at dst. It returns false
// when a required component is missing. tables holds the resolved table of each
// field, nil when the type is not registered. Callers hold the World's read lock.
func (l *queryLayout) fill(dst unsafe.Pointer, e Entity, tables []componentTable) bool {
	for i, f := range l.fields {
		fieldPtr := (*unsafe.Pointer)(unsafe.Add(dst, f.offset))

		var ptr unsafe.Pointer
		if ct := tables[i]; ct != nil {
			if slot, ok := ct.slotOf(e); ok {
				ptr = ct.ptrAt(slot)
			}
		}
		if ptr == nil && !f.optional {
			return false
		}
		*fieldPtr = ptr
	}
	for _, offset := range l.entities {
		*(*Entity)(unsafe.Add(dst, offset)) = e
	}
	return true
}
