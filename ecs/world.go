package ecs

import (
	"iter"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// World owns every entity, component table and resource of one ECS instance.
//
// Structural operations (spawn, despawn, insert, remove, registration) take the
// World's write lock. Lookups and query snapshots take the read lock. Component
// values reached through returned pointers are not guarded by the lock; the
// Schedule guarantees that no two concurrently running systems touch the same
// component type when one of them writes it.
type World struct {
	mu         sync.RWMutex
	entities   *EntityAllocator
	tables     []componentTable
	byType     map[reflect.Type]componentTable
	resources  map[reflect.Type]*resourceCell
	bundles    map[reflect.Type]*bundleLayout
	events     map[reflect.Type]func(*World)
	eventOrder []reflect.Type
	changeTick atomic.Uint64
}

// NewWorld creates an empty World.
func NewWorld() *World {
	w := &World{
		entities:  NewEntityAllocator(),
		byType:    make(map[reflect.Type]componentTable),
		resources: make(map[reflect.Type]*resourceCell),
		bundles:   make(map[reflect.Type]*bundleLayout),
		events:    make(map[reflect.Type]func(*World)),
	}
	w.changeTick.Store(1)
	return w
}

// Tick returns the current change tick.
func (w *World) Tick() Tick {
	return Tick(w.changeTick.Load())
}

// IncrementTick advances the change tick and returns the value it had before.
func (w *World) IncrementTick() Tick {
	return Tick(w.changeTick.Add(1) - 1)
}

// Spawn allocates an entity and attaches the given components, registering any
// component type seen for the first time.
func (w *World) Spawn(components ...any) Entity {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := w.entities.Spawn()
	tick := w.Tick()
	for _, c := range components {
		w.insertLocked(e, c, tick)
	}
	return e
}

// Despawn removes e and purges it from every component table. It returns false
// if e is not alive.
func (w *World) Despawn(e Entity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.entities.Despawn(e) {
		return false
	}
	for _, t := range w.tables {
		t.Purge(e)
	}
	return true
}

// IsAlive reports whether e is alive.
func (w *World) IsAlive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities.IsAlive(e)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities.Len()
}

// Entities yields every live entity. The set is captured when iteration starts.
func (w *World) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		w.mu.RLock()
		snapshot := make([]Entity, 0, w.entities.Len())
		for e := range w.entities.IterAlive() {
			snapshot = append(snapshot, e)
		}
		w.mu.RUnlock()

		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

// InsertComponent attaches value to e using the value's dynamic type, registering
// the type on first use. Pointers are dereferenced. It returns false if e is dead.
func (w *World) InsertComponent(e Entity, value any) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.insertLocked(e, value, w.Tick())
}

func (w *World) insertLocked(e Entity, value any, tick Tick) bool {
	if value == nil || !w.entities.IsAlive(e) {
		return false
	}
	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	w.registerTypeLocked(t)
	return w.byType[t].InsertAny(e, value, tick)
}

// GetComponent returns a pointer to e's component of type t.
func (w *World) GetComponent(e Entity, t reflect.Type) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ct, ok := w.byType[t]
	if !ok {
		return nil, false
	}
	return ct.GetAny(e)
}

// GetComponentMut is GetComponent for writing: it marks the component changed.
func (w *World) GetComponentMut(e Entity, t reflect.Type) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ct, ok := w.byType[t]
	if !ok {
		return nil, false
	}
	slot, ok := ct.slotOf(e)
	if !ok {
		return nil, false
	}
	ct.ticksAt(slot).Changed = w.Tick()
	return ct.GetAny(e)
}

// HasComponent reports whether e holds a component of type t.
func (w *World) HasComponent(e Entity, t reflect.Type) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ct, ok := w.byType[t]
	return ok && ct.Has(e)
}

// RemoveComponent detaches e's component of type t and returns its value.
func (w *World) RemoveComponent(e Entity, t reflect.Type) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ct, ok := w.byType[t]
	if !ok {
		return nil, false
	}
	return ct.RemoveAny(e)
}

// ComponentsOf returns pointers to every component e holds, ordered by ComponentID.
func (w *World) ComponentsOf(e Entity) []any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []any
	for _, t := range w.tables {
		if v, ok := t.GetAny(e); ok {
			out = append(out, v)
		}
	}
	return out
}

// Components lists every registered component type ordered by ComponentID.
func (w *World) Components() []ComponentInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]ComponentInfo, len(w.tables))
	for i, t := range w.tables {
		out[i] = t.Info()
	}
	return out
}

// ComponentInfoOf returns the registration info for t.
func (w *World) ComponentInfoOf(t reflect.Type) (ComponentInfo, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ct, ok := w.byType[t]
	if !ok {
		return ComponentInfo{}, false
	}
	return ct.Info(), true
}

func (w *World) tableOf(t reflect.Type) (componentTable, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ct, ok := w.byType[t]
	return ct, ok
}

// WorldStats summarizes a World's contents.
type WorldStats struct {
	EntityCount        int
	ComponentTypeCount int
	ResourceCount      int
	EventTypeCount     int
	Tick               Tick
	Tables             []TableStats
	ResourceTypes      []string
}

// TableStats describes one component table.
type TableStats struct {
	ID    ComponentID
	Name  string
	Count int
}

// Stats collects a snapshot of the World's size.
func (w *World) Stats() WorldStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := WorldStats{
		EntityCount:        w.entities.Len(),
		ComponentTypeCount: len(w.tables),
		ResourceCount:      len(w.resources),
		EventTypeCount:     len(w.eventOrder),
		Tick:               w.Tick(),
		Tables:             make([]TableStats, len(w.tables)),
	}
	for i, t := range w.tables {
		info := t.Info()
		stats.Tables[i] = TableStats{ID: info.ID, Name: info.Name, Count: t.Len()}
	}
	for t := range w.resources {
		stats.ResourceTypes = append(stats.ResourceTypes, t.String())
	}
	sort.Strings(stats.ResourceTypes)
	return stats
}
