package ecs

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// AtomicCommand runs its steps in order as one undoable unit. When a step
// fails, the steps that already ran are undone in reverse order and Execute
// returns an error wrapping ErrRolledBack and the step's error.
type AtomicCommand struct {
	Name     string
	steps    []UndoCommand
	executed int
}

func NewAtomicCommand(name string, steps ...UndoCommand) *AtomicCommand {
	return &AtomicCommand{Name: name, steps: steps}
}

func (c *AtomicCommand) Add(step UndoCommand) {
	c.steps = append(c.steps, step)
}

func (c *AtomicCommand) Len() int { return len(c.steps) }

func (c *AtomicCommand) Execute(w *World) error {
	c.executed = 0
	for i, step := range c.steps {
		if err := step.Execute(w); err != nil {
			rollbackErr := c.rollback(w)
			return errors.Join(
				fmt.Errorf("%w: %s step %d/%d (%s): %w", ErrRolledBack, c.Name, i+1, len(c.steps), step.Description(), err),
				rollbackErr,
			)
		}
		c.executed++
	}
	return nil
}

func (c *AtomicCommand) rollback(w *World) error {
	var errs []error
	for i := c.executed - 1; i >= 0; i-- {
		if err := c.steps[i].Undo(w); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", c.steps[i].Description(), err))
		}
	}
	c.executed = 0
	return errors.Join(errs...)
}

// Undo reverses every step, last first, stopping at the first failure.
func (c *AtomicCommand) Undo(w *World) error {
	for i := len(c.steps) - 1; i >= 0; i-- {
		if err := c.steps[i].Undo(w); err != nil {
			return err
		}
	}
	return nil
}

func (c *AtomicCommand) Description() string {
	if len(c.steps) == 0 {
		return c.Name + " (empty)"
	}
	return fmt.Sprintf("%s (%d operations)", c.Name, len(c.steps))
}

// CommandID identifies a command within one CommandGraph.
type CommandID int

type graphNode struct {
	cmd  UndoCommand
	deps []CommandID
}

// CommandGraph is a batch of undo commands executed in dependency order.
// Commands with no ordering between them run in the order they were added.
// Execution is atomic: a failure rolls back what already ran.
type CommandGraph struct {
	Name  string
	nodes []graphNode
	batch *AtomicCommand
}

func NewCommandGraph(name string) *CommandGraph {
	return &CommandGraph{Name: name}
}

// Add appends cmd and returns its id.
func (g *CommandGraph) Add(cmd UndoCommand) CommandID {
	g.nodes = append(g.nodes, graphNode{cmd: cmd})
	return CommandID(len(g.nodes) - 1)
}

func (g *CommandGraph) Len() int { return len(g.nodes) }

func (g *CommandGraph) valid(id CommandID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// DependOn makes dependent run after dependency. A dependency that would
// close a cycle is rejected with ErrDependencyCycle and not recorded.
func (g *CommandGraph) DependOn(dependent, dependency CommandID) error {
	if !g.valid(dependent) || !g.valid(dependency) {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidCommandID, dependent, dependency)
	}
	if dependent == dependency {
		return fmt.Errorf("%w: %d depends on itself", ErrDependencyCycle, dependent)
	}
	node := &g.nodes[dependent]
	if slices.Contains(node.deps, dependency) {
		return nil
	}
	if path := g.pathTo(dependency, dependent, make([]bool, len(g.nodes))); path != nil {
		cycle := append([]CommandID{dependent}, path...)
		return fmt.Errorf("%w: %s", ErrDependencyCycle, formatPath(cycle))
	}
	node.deps = append(node.deps, dependency)
	return nil
}

// Dependencies returns the commands id waits for.
func (g *CommandGraph) Dependencies(id CommandID) []CommandID {
	if !g.valid(id) {
		return nil
	}
	return slices.Clone(g.nodes[id].deps)
}

// pathTo returns the dependency chain from -> ... -> to, or nil.
func (g *CommandGraph) pathTo(from, to CommandID, seen []bool) []CommandID {
	if from == to {
		return []CommandID{to}
	}
	seen[from] = true
	for _, dep := range g.nodes[from].deps {
		if seen[dep] {
			continue
		}
		if rest := g.pathTo(dep, to, seen); rest != nil {
			return append([]CommandID{from}, rest...)
		}
	}
	return nil
}

func formatPath(ids []CommandID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, " -> ")
}

// Order returns the ids in execution order: every command after its
// dependencies, ties broken by the lowest id.
func (g *CommandGraph) Order() []CommandID {
	n := len(g.nodes)
	pending := make([]int, n)
	dependents := make([][]CommandID, n)
	for id, node := range g.nodes {
		pending[id] = len(node.deps)
		for _, dep := range node.deps {
			dependents[dep] = append(dependents[dep], CommandID(id))
		}
	}

	var ready []CommandID
	for id := range n {
		if pending[id] == 0 {
			ready = append(ready, CommandID(id))
		}
	}

	order := make([]CommandID, 0, n)
	for len(ready) > 0 {
		slices.Sort(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, d := range dependents[id] {
			if pending[d]--; pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return order
}

// Execute runs the commands in Order, rolling back on the first failure.
func (g *CommandGraph) Execute(w *World) error {
	order := g.Order()
	batch := NewAtomicCommand(g.Name)
	for _, id := range order {
		batch.Add(g.nodes[id].cmd)
	}
	if err := batch.Execute(w); err != nil {
		return err
	}
	g.batch = batch
	return nil
}

// Undo reverses the last successful Execute.
func (g *CommandGraph) Undo(w *World) error {
	if g.batch == nil {
		return nil
	}
	if err := g.batch.Undo(w); err != nil {
		return err
	}
	g.batch = nil
	return nil
}

func (g *CommandGraph) Description() string {
	return fmt.Sprintf("%s (%d commands)", g.Name, len(g.nodes))
}
