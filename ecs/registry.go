package ecs

import "reflect"

// RegisterComponent registers T with w and returns its ComponentID.
// Registering the same type again returns the existing ID.
func RegisterComponent[T any](w *World) ComponentID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return registerLocked[T](w)
}

func registerLocked[T any](w *World) ComponentID {
	t := typeOf[T]()
	if ct, ok := w.byType[t]; ok {
		return ct.Info().ID
	}
	if k := t.Kind(); k == reflect.Pointer || k == reflect.Interface {
		panic("ecs: component type must not be a pointer or interface: " + t.String())
	}

	ct := newTable[T](ComponentID(len(w.tables)))
	w.tables = append(w.tables, ct)
	w.byType[t] = ct
	return ct.info.ID
}

// ComponentIDOf returns the ComponentID of T if it is registered.
func ComponentIDOf[T any](w *World) (ComponentID, bool) {
	info, ok := w.ComponentInfoOf(typeOf[T]())
	return info.ID, ok
}

// RegisterComponentType registers a component type known only at runtime.
func (w *World) RegisterComponentType(t reflect.Type) ComponentID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registerTypeLocked(t)
}

func (w *World) registerTypeLocked(t reflect.Type) ComponentID {
	if ct, ok := w.byType[t]; ok {
		return ct.Info().ID
	}
	if k := t.Kind(); k == reflect.Pointer || k == reflect.Interface {
		panic("ecs: component type must not be a pointer or interface: " + t.String())
	}

	ct := newDynamicTable(ComponentID(len(w.tables)), t)
	w.tables = append(w.tables, ct)
	w.byType[t] = ct
	return ct.info.ID
}

// Insert attaches value to e, registering T on first use. Re-inserting over an
// existing value replaces it and marks it changed. It returns false if e is not alive.
func Insert[T any](w *World, e Entity, value T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.entities.IsAlive(e) {
		return false
	}
	registerLocked[T](w)
	ct := w.byType[typeOf[T]()]
	if typed, ok := ct.(*table[T]); ok {
		typed.insert(e, value, w.Tick())
		return true
	}
	return ct.InsertAny(e, value, w.Tick())
}

// Get returns a pointer to e's T for reading.
func Get[T any](w *World, e Entity) (*T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ct, ok := w.byType[typeOf[T]()]
	if !ok {
		return nil, false
	}
	slot, ok := ct.slotOf(e)
	if !ok {
		return nil, false
	}
	return (*T)(ct.ptrAt(slot)), true
}

// GetMut returns a pointer to e's T for writing and marks the value changed.
func GetMut[T any](w *World, e Entity) (*T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ct, ok := w.byType[typeOf[T]()]
	if !ok {
		return nil, false
	}
	slot, ok := ct.slotOf(e)
	if !ok {
		return nil, false
	}
	ct.ticksAt(slot).Changed = w.Tick()
	return (*T)(ct.ptrAt(slot)), true
}

// Has reports whether e holds a T.
func Has[T any](w *World, e Entity) bool {
	return w.HasComponent(e, typeOf[T]())
}

// Remove detaches e's T and returns it.
func Remove[T any](w *World, e Entity) (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var zero T
	ct, ok := w.byType[typeOf[T]()]
	if !ok {
		return zero, false
	}
	if typed, ok := ct.(*table[T]); ok {
		return typed.remove(e)
	}
	v, ok := ct.RemoveAny(e)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// TicksOf returns the change ticks of e's T.
func TicksOf[T any](w *World, e Entity) (ComponentTicks, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ct, ok := w.byType[typeOf[T]()]
	if !ok {
		return ComponentTicks{}, false
	}
	slot, ok := ct.slotOf(e)
	if !ok {
		return ComponentTicks{}, false
	}
	return *ct.ticksAt(slot), true
}
