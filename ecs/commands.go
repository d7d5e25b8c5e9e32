package ecs

import (
	"reflect"
	"sync"
)

// Command is a deferred mutation of a World.
type Command interface {
	Apply(w *World)
}

// CommandFunc adapts a function to the Command interface.
type CommandFunc func(w *World)

func (f CommandFunc) Apply(w *World) { f(w) }

// Commands buffers structural mutations so systems can request them while the
// World is being iterated. The queue is applied in FIFO order at the end of the
// stage that produced it. Commands is safe for concurrent use.
type Commands struct {
	mu       sync.Mutex
	world    *World
	queue    []Command
	reserved []Entity
}

// NewCommands creates an empty queue bound to w. w is used to reserve entity
// handles for Spawn so they can be referenced by later commands.
func NewCommands(w *World) *Commands {
	return &Commands{world: w}
}

// Push appends cmd without executing it.
func (c *Commands) Push(cmd Command) {
	c.mu.Lock()
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

type spawnCommand struct {
	entity     Entity
	components []any
}

func (cmd spawnCommand) Apply(w *World) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tick := w.Tick()
	for _, component := range cmd.components {
		w.insertLocked(cmd.entity, component, tick)
	}
}

type bundleCommand struct {
	entity Entity
	bundle reflect.Value
}

func (cmd bundleCommand) Apply(w *World) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = w.insertBundleLocked(cmd.entity, cmd.bundle, w.Tick())
}

type despawnCommand struct {
	entity Entity
}

func (cmd despawnCommand) Apply(w *World) {
	w.Despawn(cmd.entity)
}

type removeCommand struct {
	entity Entity
	typ    reflect.Type
}

func (cmd removeCommand) Apply(w *World) {
	w.RemoveComponent(cmd.entity, cmd.typ)
}

type insertResourceCommand struct {
	value any
}

func (cmd insertResourceCommand) Apply(w *World) {
	w.InsertResource(cmd.value)
}

func (c *Commands) reserve() Entity {
	e := c.world.Spawn()
	c.mu.Lock()
	c.reserved = append(c.reserved, e)
	c.mu.Unlock()
	return e
}

// Spawn reserves an entity now and queues attaching the given components to it.
func (c *Commands) Spawn(components ...any) Entity {
	e := c.reserve()
	c.Push(spawnCommand{entity: e, components: components})
	return e
}

// SpawnBundle reserves an entity now and queues attaching bundle b to it.
func (c *Commands) SpawnBundle(b any) (Entity, error) {
	v := reflect.ValueOf(b)
	if _, err := buildBundleLayout(v.Type()); err != nil {
		return 0, err
	}
	e := c.reserve()
	c.Push(bundleCommand{entity: e, bundle: v})
	return e, nil
}

// Despawn queues the removal of e.
func (c *Commands) Despawn(e Entity) {
	c.Push(despawnCommand{entity: e})
}

// Insert queues attaching components to e.
func (c *Commands) Insert(e Entity, components ...any) {
	c.Push(spawnCommand{entity: e, components: components})
}

// InsertBundle queues attaching bundle b to e.
func (c *Commands) InsertBundle(e Entity, b any) error {
	v := reflect.ValueOf(b)
	if _, err := buildBundleLayout(v.Type()); err != nil {
		return err
	}
	c.Push(bundleCommand{entity: e, bundle: v})
	return nil
}

// RemoveComponent queues detaching e's component of type t.
func (c *Commands) RemoveComponent(e Entity, t reflect.Type) {
	c.Push(removeCommand{entity: e, typ: t})
}

// RemoveCommand queues detaching e's T.
func RemoveCommand[T any](c *Commands, e Entity) {
	c.RemoveComponent(e, typeOf[T]())
}

// InsertResource queues storing value as a resource.
func (c *Commands) InsertResource(value any) {
	c.Push(insertResourceCommand{value: value})
}

// Defer queues an arbitrary function against the World.
func (c *Commands) Defer(fn func(w *World)) {
	c.Push(CommandFunc(fn))
}

func (c *Commands) take() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.queue
	c.queue = nil
	c.reserved = c.reserved[:0]
	return queue
}

// Apply drains the queue in FIFO order against w. Commands that target an
// entity which is no longer alive are ignored by the World.
func (c *Commands) Apply(w *World) {
	for _, cmd := range c.take() {
		cmd.Apply(w)
	}
}

// Discard drops every queued command and despawns entities reserved by Spawn.
func (c *Commands) Discard() {
	c.mu.Lock()
	reserved := append([]Entity(nil), c.reserved...)
	c.queue = nil
	c.reserved = c.reserved[:0]
	c.mu.Unlock()

	for _, e := range reserved {
		c.world.Despawn(e)
	}
}
