package ecs

import (
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
)

const tableBlockSize = 64

// componentTable is the type-erased view of a single component type's storage.
type componentTable interface {
	Info() ComponentInfo
	Len() int
	Has(e Entity) bool
	InsertAny(e Entity, value any, tick Tick) bool
	GetAny(e Entity) (any, bool)
	RemoveAny(e Entity) (any, bool)
	Purge(e Entity) bool

	slotOf(e Entity) (int, bool)
	ptrAt(slot int) unsafe.Pointer
	ticksAt(slot int) *ComponentTicks
	appendEntities(dst []Entity) []Entity
	borrow() *borrowFlag
}

// slots is the bookkeeping shared by every table: which entity owns which slot,
// the change ticks of each slot and the free list.
type slots struct {
	info   ComponentInfo
	index  *intmap.Map[uint32, int]
	owners []Entity
	ticks  []ComponentTicks
	filled []bool
	free   []int
	flag   borrowFlag
}

func (s *slots) init(id ComponentID, t reflect.Type) {
	s.info = ComponentInfo{ID: id, Type: t, Name: t.String()}
	s.index = intmap.New[uint32, int](256)
}

func (s *slots) Info() ComponentInfo { return s.info }

func (s *slots) Len() int { return s.index.Len() }

func (s *slots) borrow() *borrowFlag { return &s.flag }

func (s *slots) slotOf(e Entity) (int, bool) {
	slot, ok := s.index.Get(e.Index())
	if !ok || s.owners[slot] != e {
		return 0, false
	}
	return slot, true
}

func (s *slots) Has(e Entity) bool {
	_, ok := s.slotOf(e)
	return ok
}

func (s *slots) ticksAt(slot int) *ComponentTicks {
	return &s.ticks[slot]
}

// claim returns the slot for e. An existing slot keeps its Added tick and gets
// a new Changed tick; a fresh slot gets both.
func (s *slots) claim(e Entity, tick Tick) (slot int, fresh bool) {
	if slot, ok := s.slotOf(e); ok {
		s.ticks[slot].Changed = tick
		return slot, false
	}

	if n := len(s.free); n > 0 {
		slot = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		slot = len(s.owners)
		s.owners = append(s.owners, 0)
		s.ticks = append(s.ticks, ComponentTicks{})
		s.filled = append(s.filled, false)
	}

	s.owners[slot] = e
	s.ticks[slot] = ComponentTicks{Added: tick, Changed: tick}
	s.filled[slot] = true
	s.index.Put(e.Index(), slot)
	return slot, true
}

func (s *slots) release(e Entity) (int, bool) {
	slot, ok := s.slotOf(e)
	if !ok {
		return 0, false
	}
	s.owners[slot] = 0
	s.ticks[slot] = ComponentTicks{}
	s.filled[slot] = false
	s.index.Del(e.Index())
	s.free = append(s.free, slot)
	return slot, true
}

// appendEntities appends the owner of every filled slot in slot order.
func (s *slots) appendEntities(dst []Entity) []Entity {
	for slot, filled := range s.filled {
		if filled {
			dst = append(dst, s.owners[slot])
		}
	}
	return dst
}

// table stores every value of component type T. Values live in fixed-size blocks
// allocated individually, so a pointer handed out stays valid until the value is removed.
type table[T any] struct {
	slots
	blocks []*[tableBlockSize]T
}

func newTable[T any](id ComponentID) *table[T] {
	t := &table[T]{}
	t.init(id, typeOf[T]())
	return t
}

func (t *table[T]) at(slot int) *T {
	return &t.blocks[slot/tableBlockSize][slot%tableBlockSize]
}

func (t *table[T]) ptrAt(slot int) unsafe.Pointer {
	return unsafe.Pointer(t.at(slot))
}

// insert moves value into the table, overwriting any value e already holds.
func (t *table[T]) insert(e Entity, value T, tick Tick) {
	slot, _ := t.claim(e, tick)
	for slot/tableBlockSize >= len(t.blocks) {
		t.blocks = append(t.blocks, new([tableBlockSize]T))
	}
	*t.at(slot) = value
}

func (t *table[T]) get(e Entity) (*T, bool) {
	slot, ok := t.slotOf(e)
	if !ok {
		return nil, false
	}
	return t.at(slot), true
}

// remove moves e's value out of the table.
func (t *table[T]) remove(e Entity) (T, bool) {
	var zero T
	slot, ok := t.release(e)
	if !ok {
		return zero, false
	}
	ptr := t.at(slot)
	value := *ptr
	*ptr = zero
	return value, true
}

func (t *table[T]) InsertAny(e Entity, value any, tick Tick) bool {
	switch v := value.(type) {
	case T:
		t.insert(e, v, tick)
	case *T:
		if v == nil {
			return false
		}
		t.insert(e, *v, tick)
	default:
		return false
	}
	return true
}

func (t *table[T]) GetAny(e Entity) (any, bool) {
	ptr, ok := t.get(e)
	if !ok {
		return nil, false
	}
	return ptr, true
}

func (t *table[T]) RemoveAny(e Entity) (any, bool) {
	v, ok := t.remove(e)
	if !ok {
		return nil, false
	}
	return v, true
}

func (t *table[T]) Purge(e Entity) bool {
	_, ok := t.remove(e)
	return ok
}

// dynamicTable stores a component type that was registered from a reflect.Type,
// e.g. by a bundle or a type-erased insert, where no type parameter is available.
type dynamicTable struct {
	slots
	blocks []reflect.Value
}

func newDynamicTable(id ComponentID, t reflect.Type) *dynamicTable {
	dt := &dynamicTable{}
	dt.init(id, t)
	return dt
}

func (t *dynamicTable) at(slot int) reflect.Value {
	return t.blocks[slot/tableBlockSize].Index(slot % tableBlockSize)
}

func (t *dynamicTable) ptrAt(slot int) unsafe.Pointer {
	return t.at(slot).Addr().UnsafePointer()
}

func (t *dynamicTable) InsertAny(e Entity, value any, tick Tick) bool {
	if value == nil {
		return false
	}
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Pointer && v.Type().Elem() == t.info.Type {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if v.Type() != t.info.Type {
		return false
	}

	slot, _ := t.claim(e, tick)
	for slot/tableBlockSize >= len(t.blocks) {
		t.blocks = append(t.blocks, reflect.New(reflect.ArrayOf(tableBlockSize, t.info.Type)).Elem())
	}
	t.at(slot).Set(v)
	return true
}

func (t *dynamicTable) GetAny(e Entity) (any, bool) {
	slot, ok := t.slotOf(e)
	if !ok {
		return nil, false
	}
	return t.at(slot).Addr().Interface(), true
}

func (t *dynamicTable) RemoveAny(e Entity) (any, bool) {
	slot, ok := t.release(e)
	if !ok {
		return nil, false
	}
	stored := t.at(slot)
	out := reflect.New(t.info.Type).Elem()
	out.Set(stored)
	stored.SetZero()
	return out.Interface(), true
}

func (t *dynamicTable) Purge(e Entity) bool {
	_, ok := t.RemoveAny(e)
	return ok
}

var (
	_ componentTable = (*table[struct{}])(nil)
	_ componentTable = (*dynamicTable)(nil)
)
