package ecs

import (
	"iter"
	"math"
	"strconv"
)

// Entity identifies a conceptual object in a World. The lower 32 bits hold the
// slot index and the upper 32 bits hold the generation of that slot.
type Entity uint64

func newEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// Index extracts the slot index.
func (e Entity) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the generation counter.
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.Index()), 10) + "v" + strconv.FormatUint(uint64(e.Generation()), 10)
}

// EntityAllocator issues entity handles and recycles despawned slots with a bumped
// generation so stale handles fail liveness checks instead of aliasing new objects.
//
// EntityAllocator is not safe for concurrent use; World guards it.
type EntityAllocator struct {
	generations []uint32
	alive       []bool
	free        []Entity
	count       int
}

// NewEntityAllocator creates an empty allocator.
func NewEntityAllocator() *EntityAllocator {
	return &EntityAllocator{}
}

// Spawn returns a recycled handle when one is available, otherwise a new index at generation 0.
func (a *EntityAllocator) Spawn() Entity {
	a.count++

	if n := len(a.free); n > 0 {
		e := a.free[n-1]
		a.free = a.free[:n-1]
		a.alive[e.Index()] = true
		return e
	}

	index := uint32(len(a.generations))
	a.generations = append(a.generations, 0)
	a.alive = append(a.alive, true)
	return newEntity(index, 0)
}

// Despawn retires e. It returns false if e is stale or unknown. A slot whose
// generation is exhausted is never reused.
func (a *EntityAllocator) Despawn(e Entity) bool {
	if !a.IsAlive(e) {
		return false
	}

	index := e.Index()
	a.alive[index] = false
	a.count--
	if a.generations[index] == math.MaxUint32 {
		return true
	}
	a.generations[index]++
	a.free = append(a.free, newEntity(index, a.generations[index]))
	return true
}

// IsAlive reports whether e refers to the current generation of a live slot.
func (a *EntityAllocator) IsAlive(e Entity) bool {
	index := e.Index()
	if int(index) >= len(a.generations) {
		return false
	}
	return a.alive[index] && a.generations[index] == e.Generation()
}

// Len returns the number of live entities.
func (a *EntityAllocator) Len() int {
	return a.count
}

// IterAlive yields every live entity in index order.
func (a *EntityAllocator) IterAlive() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i := range a.generations {
			if !a.alive[i] {
				continue
			}
			if !yield(newEntity(uint32(i), a.generations[i])) {
				return
			}
		}
	}
}
