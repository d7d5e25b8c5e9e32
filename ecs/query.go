package ecs

import (
	"fmt"
	"iter"
	"sync"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// Query iterates the entities matching a data struct D together with pointers
// to their components. The component types a query reads and writes are
// captured once, when it is created, and exposed through Access.
//
//	q := ecs.MustQuery[struct {
//		Position *Position `ecs:"mut"`
//		Velocity *Velocity
//		_        ecs.Without[Frozen]
//	}](world)
//
//	for _, item := range q.IterMut() {
//		item.Position.X += item.Velocity.DX
//	}
//
// A Query is meant to be used from one goroutine at a time.
type Query[D any] struct {
	world  *World
	layout *queryLayout
	tables []componentTable

	lastRun  Tick
	thisRun  Tick
	inSystem bool
}

// NewQuery parses D and returns a query over w.
func NewQuery[D any](w *World) (*Query[D], error) {
	q := &Query[D]{}
	if err := q.init(w); err != nil {
		return nil, err
	}
	return q, nil
}

// MustQuery is NewQuery that panics on an invalid data struct.
func MustQuery[D any](w *World) *Query[D] {
	q, err := NewQuery[D](w)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Query[D]) init(w *World) error {
	layout, err := parseQueryLayout(typeOf[D]())
	if err != nil {
		return err
	}
	q.world = w
	q.layout = layout
	q.tables = make([]componentTable, len(layout.fields))
	q.lastRun = 0
	q.inSystem = false
	return nil
}

// Init prepares the query as a system parameter and adds its footprint to access.
func (q *Query[D]) Init(w *World, access *SystemAccess) error {
	if err := q.init(w); err != nil {
		return err
	}
	return mergeParamAccess(access, q.Access(), fmt.Sprintf("Query[%s]", q.layout.typ))
}

func (q *Query[D]) beginSystemRun(lastRun, thisRun Tick) {
	q.inSystem = true
	q.lastRun = lastRun
	q.thisRun = thisRun
}

// Access returns the component types the query reads and writes.
func (q *Query[D]) Access() SystemAccess {
	return q.layout.access()
}

// LastRun returns the tick Added and Changed filters compare against.
func (q *Query[D]) LastRun() Tick {
	return q.lastRun
}

// begin returns the ticks for one pass over the query. Outside a system every
// pass advances the World tick and becomes the new baseline once it finishes.
func (q *Query[D]) begin() (lastRun, thisRun Tick, done func()) {
	if q.inSystem {
		return q.lastRun, q.thisRun, func() {}
	}
	lastRun = q.lastRun
	thisRun = q.world.IncrementTick()
	return lastRun, thisRun, func() { q.lastRun = thisRun }
}

func (q *Query[D]) resolveLocked() {
	for i, f := range q.layout.fields {
		if q.tables[i] == nil {
			q.tables[i] = q.world.byType[f.typ]
		}
	}
}

// matchLocked fills item for e and evaluates the filters. Callers hold the read lock.
func (q *Query[D]) matchLocked(e Entity, item *D, lastRun Tick) bool {
	if !q.layout.fill(unsafe.Pointer(item), e, q.tables) {
		return false
	}
	for _, f := range q.layout.filters {
		if !f.matches(q.world, e, lastRun) {
			return false
		}
	}
	return true
}

// snapshot collects every match. Candidates come from the smallest table the
// query requires, or from all live entities when nothing is required.
func (q *Query[D]) snapshot(lastRun Tick) ([]Entity, []D) {
	w := q.world
	w.mu.RLock()
	defer w.mu.RUnlock()

	q.resolveLocked()

	var driver componentTable
	for _, t := range q.layout.requiredTypes() {
		ct, ok := w.byType[t]
		if !ok {
			return nil, nil
		}
		if driver == nil || ct.Len() < driver.Len() || (ct.Len() == driver.Len() && ct.Info().ID < driver.Info().ID) {
			driver = ct
		}
	}

	var candidates []Entity
	if driver != nil {
		candidates = driver.appendEntities(make([]Entity, 0, driver.Len()))
	} else {
		candidates = make([]Entity, 0, w.entities.Len())
		for e := range w.entities.IterAlive() {
			candidates = append(candidates, e)
		}
	}

	entities := make([]Entity, 0, len(candidates))
	items := make([]D, 0, len(candidates))
	for _, e := range candidates {
		var item D
		if q.matchLocked(e, &item, lastRun) {
			entities = append(entities, e)
			items = append(items, item)
		}
	}
	return entities, items
}

// acquire takes the checked borrows for one pass. It panics with
// ErrBorrowConflict if another live pass holds an incompatible borrow.
func (q *Query[D]) acquire(write bool) func() {
	releases := make([]func(), 0, len(q.tables))
	release := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for i, f := range q.layout.fields {
		ct := q.tables[i]
		if ct == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					release()
					panic(r)
				}
			}()
			releases = append(releases, ct.borrow().acquire(f.typ, write && f.mut))
		}()
	}
	return release
}

func (q *Query[D]) markChanged(e Entity, tick Tick) {
	q.world.mu.RLock()
	defer q.world.mu.RUnlock()

	for i, f := range q.layout.fields {
		if !f.mut || q.tables[i] == nil {
			continue
		}
		if slot, ok := q.tables[i].slotOf(e); ok {
			q.tables[i].ticksAt(slot).Changed = tick
		}
	}
}

func (q *Query[D]) iter(write bool) iter.Seq2[Entity, D] {
	return func(yield func(Entity, D) bool) {
		lastRun, thisRun, done := q.begin()
		defer done()

		entities, items := q.snapshot(lastRun)
		release := q.acquire(write)
		defer release()

		for i, e := range entities {
			if write {
				q.markChanged(e, thisRun)
			}
			if !yield(e, items[i]) {
				return
			}
		}
	}
}

// Iter yields every match with shared borrows. Mutable fields may still be
// read but must not be written through.
func (q *Query[D]) Iter() iter.Seq2[Entity, D] {
	return q.iter(false)
}

// IterMut yields every match, borrowing the `mut` fields exclusively and
// marking them changed.
func (q *Query[D]) IterMut() iter.Seq2[Entity, D] {
	return q.iter(true)
}

// Values yields the data of every match.
func (q *Query[D]) Values() iter.Seq[D] {
	return func(yield func(D) bool) {
		for _, item := range q.Iter() {
			if !yield(item) {
				return
			}
		}
	}
}

// Get returns the data for e if e matches the query.
func (q *Query[D]) Get(e Entity) (D, bool) {
	var item D
	w := q.world
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.entities.IsAlive(e) {
		return item, false
	}
	q.resolveLocked()
	if !q.matchLocked(e, &item, q.lastRun) {
		var zero D
		return zero, false
	}
	return item, true
}

// GetMut is Get that marks e's `mut` fields changed.
func (q *Query[D]) GetMut(e Entity) (D, bool) {
	item, ok := q.Get(e)
	if ok {
		tick := q.thisRun
		if !q.inSystem {
			tick = q.world.Tick()
		}
		q.markChanged(e, tick)
	}
	return item, ok
}

// Single returns the only match. It reports false when there are zero or
// several matches.
func (q *Query[D]) Single() (Entity, D, bool) {
	entities, items := q.snapshot(q.lastRun)
	if len(entities) != 1 {
		var zero D
		return 0, zero, false
	}
	return entities[0], items[0], true
}

// Count returns the number of matches without advancing the change baseline.
func (q *Query[D]) Count() int {
	entities, _ := q.snapshot(q.lastRun)
	return len(entities)
}

// Entities returns the matched entities without advancing the change baseline.
func (q *Query[D]) Entities() []Entity {
	entities, _ := q.snapshot(q.lastRun)
	return entities
}

// ParForEach calls f once for every match, spreading the matches over worker
// goroutines. Matches are split into consecutive chunks of a fixed size, so the
// partitioning depends only on the match order; each chunk is visited in order
// by a single goroutine. ParForEach returns after every call to f has returned.
func (q *Query[D]) ParForEach(f func(Entity, D)) {
	q.parForEach(false, f)
}

// ParForEachMut is ParForEach with the borrows and change marking of IterMut.
func (q *Query[D]) ParForEachMut(f func(Entity, D)) {
	q.parForEach(true, f)
}

func (q *Query[D]) parForEach(write bool, f func(Entity, D)) {
	lastRun, thisRun, done := q.begin()
	defer done()

	entities, items := q.snapshot(lastRun)
	release := q.acquire(write)
	defer release()

	visit := func(start, end int) {
		for i := start; i < end; i++ {
			if write {
				q.markChanged(entities[i], thisRun)
			}
			f(entities[i], items[i])
		}
	}

	opts := q.world.parallelism()
	if opts.Workers <= 1 || len(entities) <= opts.ChunkSize {
		visit(0, len(entities))
		return
	}

	var (
		g         errgroup.Group
		panicOnce sync.Once
		panicked  any
	)
	g.SetLimit(opts.Workers)
	for start := 0; start < len(entities); start += opts.ChunkSize {
		end := min(start+opts.ChunkSize, len(entities))
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked = r })
				}
			}()
			visit(start, end)
			return nil
		})
	}
	_ = g.Wait()

	if panicked != nil {
		panic(panicked)
	}
}
