// Package console provides a developer console resource: a registry of named
// commands that inspect the running App, plus a Lua command for ad-hoc scripts.
package console

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/plus3/luminara/app"
)

// ErrUnknownCommand is returned by Exec for unregistered command names.
var ErrUnknownCommand = errors.New("console: unknown command")

// DefaultMaxHistory bounds the History of a Console built by New.
const DefaultMaxHistory = 256

// Command is a named console command. Run receives the words after the name.
type Command struct {
	Name  string
	Usage string
	Help  string
	Run   func(c *Console, args []string) (string, error)
}

// Console is a resource holding the registered commands and the transcript of
// executed lines. It is used from one goroutine at a time.
type Console struct {
	// History alternates "> input" lines with their output.
	History    []string
	MaxHistory int
	Open       bool

	app      *app.App
	commands map[string]Command
	vm       *lua.LState
}

// New creates a Console bound to a with the builtin commands registered.
func New(a *app.App) *Console {
	c := &Console{
		MaxHistory: DefaultMaxHistory,
		app:        a,
		commands:   make(map[string]Command),
	}
	for _, cmd := range builtins() {
		c.Register(cmd)
	}
	return c
}

// App returns the App the console inspects.
func (c *Console) App() *app.App {
	return c.app
}

// Register adds cmd, replacing any command with the same name.
func (c *Console) Register(cmd Command) {
	c.commands[cmd.Name] = cmd
}

// Commands returns the registered commands ordered by name.
func (c *Console) Commands() []Command {
	out := make([]Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Exec runs one input line and records it in History.
func (c *Console) Exec(line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}

	out, err := c.run(line)
	c.record("> " + line)
	if err != nil {
		c.record("error: " + err.Error())
		c.app.Logger().Debug("console command failed", zap.String("line", line), zap.Error(err))
		return out, err
	}
	if out != "" {
		c.record(out)
	}
	return out, nil
}

func (c *Console) run(line string) (string, error) {
	name, rest, _ := strings.Cut(line, " ")
	cmd, ok := c.commands[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return cmd.Run(c, strings.Fields(rest))
}

func (c *Console) record(s string) {
	c.History = append(c.History, s)
	if c.MaxHistory > 0 && len(c.History) > c.MaxHistory {
		c.History = append(c.History[:0], c.History[len(c.History)-c.MaxHistory:]...)
	}
}

// Clear empties History.
func (c *Console) Clear() {
	c.History = c.History[:0]
}

// Close releases the Lua state, if one was created.
func (c *Console) Close() {
	if c.vm != nil {
		c.vm.Close()
		c.vm = nil
	}
}
