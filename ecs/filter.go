package ecs

import (
	"fmt"
	"reflect"
)

// QueryFilter is implemented by the marker types that can appear as fields of a
// query data struct. Filters narrow the matched entities without yielding data.
//
//	ecs.Query[struct {
//		Position *Position
//		_        ecs.With[Player]
//		_        ecs.Without[Frozen]
//	}]
type QueryFilter interface {
	filterExpr() filterExpr
}

// With matches entities that hold a T. The value is not borrowed.
type With[T any] struct{}

// Without matches entities that do not hold a T.
type Without[T any] struct{}

// Added matches entities whose T was added since the query last ran.
type Added[T any] struct{}

// Changed matches entities whose T was added or mutated since the query last ran.
type Changed[T any] struct{}

// Or matches entities matched by either filter.
type Or[A, B QueryFilter] struct{}

// Or3 matches entities matched by any of three filters.
type Or3[A, B, C QueryFilter] struct{}

type filterKind uint8

const (
	filterWith filterKind = iota
	filterWithout
	filterAdded
	filterChanged
	filterOr
)

func (k filterKind) String() string {
	switch k {
	case filterWith:
		return "With"
	case filterWithout:
		return "Without"
	case filterAdded:
		return "Added"
	case filterChanged:
		return "Changed"
	case filterOr:
		return "Or"
	default:
		return fmt.Sprintf("filterKind(%d)", k)
	}
}

type filterExpr struct {
	kind     filterKind
	typ      reflect.Type
	children []filterExpr
}

func (With[T]) filterExpr() filterExpr    { return filterExpr{kind: filterWith, typ: typeOf[T]()} }
func (Without[T]) filterExpr() filterExpr { return filterExpr{kind: filterWithout, typ: typeOf[T]()} }
func (Added[T]) filterExpr() filterExpr   { return filterExpr{kind: filterAdded, typ: typeOf[T]()} }
func (Changed[T]) filterExpr() filterExpr { return filterExpr{kind: filterChanged, typ: typeOf[T]()} }

func (Or[A, B]) filterExpr() filterExpr {
	var a A
	var b B
	return filterExpr{kind: filterOr, children: []filterExpr{a.filterExpr(), b.filterExpr()}}
}

func (Or3[A, B, C]) filterExpr() filterExpr {
	var a A
	var b B
	var c C
	return filterExpr{kind: filterOr, children: []filterExpr{a.filterExpr(), b.filterExpr(), c.filterExpr()}}
}

func (f filterExpr) String() string {
	if f.kind != filterOr {
		return f.kind.String() + "[" + f.typ.String() + "]"
	}
	s := "Or["
	for i, c := range f.children {
		if i > 0 {
			s += ", "
		}
		s += c.String()
	}
	return s + "]"
}

// reads adds the component types whose ticks the filter inspects.
func (f filterExpr) reads(set *TypeSet) {
	switch f.kind {
	case filterAdded, filterChanged:
		set.Add(f.typ)
	case filterOr:
		for _, c := range f.children {
			c.reads(set)
		}
	}
}

// requires reports the component type an entity must hold for f to match, if any.
func (f filterExpr) requires() (reflect.Type, bool) {
	switch f.kind {
	case filterWith, filterAdded, filterChanged:
		return f.typ, true
	}
	return nil, false
}

// matches evaluates f for e. Callers hold the World's read lock.
func (f filterExpr) matches(w *World, e Entity, lastRun Tick) bool {
	if f.kind == filterOr {
		for _, c := range f.children {
			if c.matches(w, e, lastRun) {
				return true
			}
		}
		return false
	}

	ct, ok := w.byType[f.typ]
	if !ok {
		return f.kind == filterWithout
	}
	slot, ok := ct.slotOf(e)
	switch f.kind {
	case filterWith:
		return ok
	case filterWithout:
		return !ok
	case filterAdded:
		return ok && ct.ticksAt(slot).IsAdded(lastRun)
	case filterChanged:
		return ok && ct.ticksAt(slot).IsChanged(lastRun)
	}
	return false
}

var queryFilterType = reflect.TypeOf((*QueryFilter)(nil)).Elem()

func filterExprOf(t reflect.Type) (filterExpr, bool) {
	if !t.Implements(queryFilterType) {
		return filterExpr{}, false
	}
	return reflect.Zero(t).Interface().(QueryFilter).filterExpr(), true
}
