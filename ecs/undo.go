package ecs

import (
	"fmt"
	"reflect"
)

// UndoCommand is a World edit that records enough state to reverse itself.
// Unlike Command it runs immediately and reports failure. A failed Execute
// leaves the World as it found it.
type UndoCommand interface {
	Execute(w *World) error
	Undo(w *World) error
	Description() string
}

// Merger is implemented by undo commands that can absorb the command executed
// right after them, so that a burst of edits undoes as one step.
type Merger interface {
	// Merge folds next into the receiver and reports whether it did.
	Merge(next UndoCommand) bool
}

// DefaultHistorySize bounds a CommandHistory created with a non-positive size.
const DefaultHistorySize = 100

// CommandHistory is a bounded undo/redo stack of executed UndoCommands.
// It is not safe for concurrent use.
type CommandHistory struct {
	commands []UndoCommand
	// position is the number of commands currently applied; commands at and
	// after it can be redone.
	position int
	maxSize  int
}

func NewCommandHistory(maxSize int) *CommandHistory {
	if maxSize < 1 {
		maxSize = DefaultHistorySize
	}
	return &CommandHistory{maxSize: maxSize}
}

// Execute runs cmd and records it, discarding anything that could be redone.
// Nothing is recorded when cmd fails.
func (h *CommandHistory) Execute(w *World, cmd UndoCommand) error {
	if err := cmd.Execute(w); err != nil {
		return err
	}
	h.commands = h.commands[:h.position]

	if n := len(h.commands); n > 0 {
		if m, ok := h.commands[n-1].(Merger); ok && m.Merge(cmd) {
			return nil
		}
	}

	h.commands = append(h.commands, cmd)
	if over := len(h.commands) - h.maxSize; over > 0 {
		clear(h.commands[:over])
		h.commands = h.commands[over:]
	}
	h.position = len(h.commands)
	return nil
}

// Undo reverses the most recently applied command.
func (h *CommandHistory) Undo(w *World) error {
	if h.position == 0 {
		return ErrNothingToUndo
	}
	if err := h.commands[h.position-1].Undo(w); err != nil {
		return fmt.Errorf("undo %s: %w", h.commands[h.position-1].Description(), err)
	}
	h.position--
	return nil
}

// Redo re-executes the most recently undone command.
func (h *CommandHistory) Redo(w *World) error {
	if h.position == len(h.commands) {
		return ErrNothingToRedo
	}
	if err := h.commands[h.position].Execute(w); err != nil {
		return fmt.Errorf("redo %s: %w", h.commands[h.position].Description(), err)
	}
	h.position++
	return nil
}

func (h *CommandHistory) CanUndo() bool { return h.position > 0 }
func (h *CommandHistory) CanRedo() bool { return h.position < len(h.commands) }

// Len returns the number of recorded commands, applied or not.
func (h *CommandHistory) Len() int { return len(h.commands) }

// Position returns the number of applied commands.
func (h *CommandHistory) Position() int { return h.position }

// UndoDescription describes the command Undo would reverse.
func (h *CommandHistory) UndoDescription() (string, bool) {
	if !h.CanUndo() {
		return "", false
	}
	return h.commands[h.position-1].Description(), true
}

// RedoDescription describes the command Redo would re-execute.
func (h *CommandHistory) RedoDescription() (string, bool) {
	if !h.CanRedo() {
		return "", false
	}
	return h.commands[h.position].Description(), true
}

// Descriptions lists the recorded commands oldest first.
func (h *CommandHistory) Descriptions() []string {
	out := make([]string, len(h.commands))
	for i, cmd := range h.commands {
		out[i] = cmd.Description()
	}
	return out
}

func (h *CommandHistory) Clear() {
	h.commands = nil
	h.position = 0
}

// copyComponent returns the value behind a component pointer from the
// type-erased World API.
func copyComponent(ptr any) any {
	return reflect.ValueOf(ptr).Elem().Interface()
}

func componentType(value any) reflect.Type {
	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// SpawnEntityCommand spawns an entity with the given components.
type SpawnEntityCommand struct {
	Components []any
	entity     Entity
	spawned    bool
}

func NewSpawnEntityCommand(components ...any) *SpawnEntityCommand {
	return &SpawnEntityCommand{Components: components}
}

func (c *SpawnEntityCommand) Execute(w *World) error {
	c.entity = w.Spawn(c.Components...)
	c.spawned = true
	return nil
}

func (c *SpawnEntityCommand) Undo(w *World) error {
	if !c.spawned {
		return nil
	}
	if !w.Despawn(c.entity) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, c.entity)
	}
	c.spawned = false
	return nil
}

// Entity returns the entity created by the latest Execute.
func (c *SpawnEntityCommand) Entity() Entity { return c.entity }

func (c *SpawnEntityCommand) Description() string {
	if c.spawned {
		return "spawn entity " + c.entity.String()
	}
	return "spawn entity"
}

// DespawnEntityCommand despawns an entity, keeping copies of its components.
// Undo spawns a new entity with those components; Entity reports its handle.
type DespawnEntityCommand struct {
	entity Entity
	saved  []any
}

func NewDespawnEntityCommand(e Entity) *DespawnEntityCommand {
	return &DespawnEntityCommand{entity: e}
}

func (c *DespawnEntityCommand) Execute(w *World) error {
	if !w.IsAlive(c.entity) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, c.entity)
	}
	ptrs := w.ComponentsOf(c.entity)
	c.saved = make([]any, len(ptrs))
	for i, p := range ptrs {
		c.saved[i] = copyComponent(p)
	}
	w.Despawn(c.entity)
	return nil
}

func (c *DespawnEntityCommand) Undo(w *World) error {
	c.entity = w.Spawn(c.saved...)
	return nil
}

// Entity returns the despawned entity, or its replacement after Undo.
func (c *DespawnEntityCommand) Entity() Entity { return c.entity }

func (c *DespawnEntityCommand) Description() string {
	return "despawn entity " + c.entity.String()
}

// InsertComponentCommand attaches a component, replacing any existing value
// of the same type. Undo restores the replaced value or removes the component.
type InsertComponentCommand struct {
	Entity   Entity
	Value    any
	previous any
}

func NewInsertComponentCommand[T any](e Entity, value T) *InsertComponentCommand {
	return &InsertComponentCommand{Entity: e, Value: value}
}

func (c *InsertComponentCommand) Execute(w *World) error {
	t := componentType(c.Value)
	c.previous = nil
	if p, ok := w.GetComponent(c.Entity, t); ok {
		c.previous = copyComponent(p)
	}
	if !w.InsertComponent(c.Entity, c.Value) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, c.Entity)
	}
	return nil
}

func (c *InsertComponentCommand) Undo(w *World) error {
	if c.previous != nil {
		if !w.InsertComponent(c.Entity, c.previous) {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, c.Entity)
		}
		return nil
	}
	if _, ok := w.RemoveComponent(c.Entity, componentType(c.Value)); !ok {
		return fmt.Errorf("%w: %s on %s", ErrComponentNotFound, componentType(c.Value), c.Entity)
	}
	return nil
}

func (c *InsertComponentCommand) Description() string {
	return fmt.Sprintf("insert %s on %s", componentType(c.Value), c.Entity)
}

// RemoveComponentCommand detaches a component the entity must hold.
type RemoveComponentCommand struct {
	Entity Entity
	Type   reflect.Type
	old    any
}

func NewRemoveComponentCommand[T any](e Entity) *RemoveComponentCommand {
	return &RemoveComponentCommand{Entity: e, Type: typeOf[T]()}
}

func (c *RemoveComponentCommand) Execute(w *World) error {
	old, ok := w.RemoveComponent(c.Entity, c.Type)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrComponentNotFound, c.Type, c.Entity)
	}
	c.old = old
	return nil
}

func (c *RemoveComponentCommand) Undo(w *World) error {
	if !w.InsertComponent(c.Entity, c.old) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, c.Entity)
	}
	return nil
}

func (c *RemoveComponentCommand) Description() string {
	return fmt.Sprintf("remove %s from %s", c.Type, c.Entity)
}

// ModifyComponentCommand overwrites a component the entity must already hold.
// Consecutive modifications of the same component merge in a CommandHistory.
type ModifyComponentCommand struct {
	Entity Entity
	Value  any
	old    any
}

func NewModifyComponentCommand[T any](e Entity, value T) *ModifyComponentCommand {
	return &ModifyComponentCommand{Entity: e, Value: value}
}

func (c *ModifyComponentCommand) Execute(w *World) error {
	t := componentType(c.Value)
	p, ok := w.GetComponent(c.Entity, t)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrComponentNotFound, t, c.Entity)
	}
	c.old = copyComponent(p)
	w.InsertComponent(c.Entity, c.Value)
	return nil
}

func (c *ModifyComponentCommand) Undo(w *World) error {
	if !w.InsertComponent(c.Entity, c.old) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, c.Entity)
	}
	return nil
}

// Merge keeps the receiver's original value and takes next's new value.
func (c *ModifyComponentCommand) Merge(next UndoCommand) bool {
	n, ok := next.(*ModifyComponentCommand)
	if !ok || n.Entity != c.Entity || componentType(n.Value) != componentType(c.Value) {
		return false
	}
	c.Value = n.Value
	return true
}

func (c *ModifyComponentCommand) Description() string {
	return fmt.Sprintf("modify %s on %s", componentType(c.Value), c.Entity)
}
