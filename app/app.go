// Package app wires an ecs World and Schedule into a runnable application with
// plugins, configuration, logging and a frame loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plus3/luminara/ecs"
)

// Runner replaces the default frame loop of Run.
type Runner func(app *App) error

// Option configures an App at construction.
type Option func(*App)

// WithConfig sets the App configuration.
func WithConfig(cfg Config) Option {
	return func(a *App) { a.config = cfg }
}

// WithLogger sets the logger instead of building one from the config.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// App owns a World, the Schedule that runs against it and the plugins that
// populated both. Configuration errors are collected and reported by Err, Update
// and Run, so setup calls can be chained.
type App struct {
	world    *ecs.World
	schedule *ecs.Schedule
	logger   *zap.Logger
	config   Config

	plugins []*pluginEntry
	byName  map[string]*pluginEntry
	errs    []error

	runner    Runner
	started   bool
	lastFrame time.Time
}

// New creates an App with an empty World.
func New(opts ...Option) *App {
	a := &App{
		config: DefaultConfig(),
		byName: make(map[string]*pluginEntry),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		logger, err := NewLogger(a.config.Logging)
		if err != nil {
			logger = zap.NewNop()
		}
		a.logger = logger
	}

	a.world = ecs.NewWorld()
	a.schedule = ecs.NewSchedule(a.world)
	a.schedule.SetLogger(a.logger.Named("schedule"))

	ecs.InsertResource(a.world, a.config)
	ecs.InsertResource(a.world, a.config.Parallelism())
	ecs.InsertResource(a.world, ecs.Time{})
	return a
}

func (a *App) World() *ecs.World       { return a.world }
func (a *App) Schedule() *ecs.Schedule { return a.schedule }
func (a *App) Logger() *zap.Logger     { return a.logger }
func (a *App) Config() Config          { return a.config }

// Err returns every setup error collected so far.
func (a *App) Err() error {
	return errors.Join(a.errs...)
}

func (a *App) fail(err error) {
	a.errs = append(a.errs, err)
	a.logger.Error("app setup failed", zap.Error(err))
}

// AddPlugin validates p's dependencies and builds it. A plugin that fails
// validation is not built.
func (a *App) AddPlugin(p Plugin) *App {
	name := p.Name()
	if _, ok := a.byName[name]; ok {
		a.fail(fmt.Errorf("%w: %s", ErrDuplicatePlugin, name))
		return a
	}
	version, err := pluginVersion(p)
	if err != nil {
		a.fail(err)
		return a
	}
	if err := checkDependencies(p, a.byName); err != nil {
		a.fail(err)
		return a
	}

	entry := &pluginEntry{plugin: p, version: version}
	a.byName[name] = entry
	a.plugins = append(a.plugins, entry)

	p.Build(a)

	fields := []zap.Field{zap.String("plugin", name)}
	if version != nil {
		fields = append(fields, zap.Stringer("version", version))
	}
	a.logger.Debug("plugin built", fields...)
	return a
}

// AddPlugins adds each plugin in order.
func (a *App) AddPlugins(plugins ...Plugin) *App {
	for _, p := range plugins {
		a.AddPlugin(p)
	}
	return a
}

// HasPlugin reports whether a plugin named name was added.
func (a *App) HasPlugin(name string) bool {
	_, ok := a.byName[name]
	return ok
}

// Plugins lists the added plugins in the order they were built.
func (a *App) Plugins() []PluginInfo {
	out := make([]PluginInfo, len(a.plugins))
	for i, entry := range a.plugins {
		out[i].Name = entry.plugin.Name()
		if entry.version != nil {
			out[i].Version = entry.version.String()
		}
	}
	return out
}

// RegisterComponent registers T with the App's World.
func RegisterComponent[T any](a *App) *App {
	ecs.RegisterComponent[T](a.world)
	return a
}

// RegisterBundle registers every component of bundle B.
func RegisterBundle[B any](a *App) *App {
	if _, err := ecs.RegisterBundle[B](a.world); err != nil {
		a.fail(err)
	}
	return a
}

// AddEvent registers event type E; its buffers are aged at the start of every frame.
func AddEvent[E any](a *App) *App {
	ecs.AddEvent[E](a.world)
	return a
}

// InsertResource stores value as a resource of its dynamic type.
func (a *App) InsertResource(value any) *App {
	a.world.InsertResource(value)
	return a
}

// AddSystem adds sys to stage.
func (a *App) AddSystem(stage ecs.Stage, sys any, opts ...ecs.SystemOption) *App {
	if err := a.schedule.AddSystem(stage, sys, opts...); err != nil {
		a.fail(err)
	}
	return a
}

// AddStartupSystem adds sys to the Startup stage.
func (a *App) AddStartupSystem(sys any, opts ...ecs.SystemOption) *App {
	return a.AddSystem(ecs.Startup, sys, opts...)
}

// SetRunner replaces the loop used by Run.
func (a *App) SetRunner(r Runner) *App {
	a.runner = r
	return a
}

// Update runs one frame timed against the previous call. The first call runs
// the Startup stage and reports a zero delta.
func (a *App) Update() error {
	now := time.Now()
	var dt time.Duration
	if !a.lastFrame.IsZero() {
		dt = now.Sub(a.lastFrame)
	}
	a.lastFrame = now
	return a.Step(dt)
}

// Step runs one frame with a fixed delta.
func (a *App) Step(dt time.Duration) error {
	if err := a.Err(); err != nil {
		return err
	}

	if !a.started {
		a.logger.Info("starting app", zap.Int("plugins", len(a.plugins)))
		if err := a.schedule.RunStartup(); err != nil {
			return err
		}
		a.started = true
	}

	if t, ok := ecs.GetResourceMut[ecs.Time](a.world); ok {
		t.Advance(dt)
	}
	a.world.UpdateEvents()

	err := a.schedule.Run()
	a.world.IncrementTick()
	if err != nil {
		a.logger.Error("frame failed", zap.Error(err))
		return err
	}
	return nil
}

// Run drives frames until ctx is done or a frame fails. A runner set with
// SetRunner takes over the loop instead.
func (a *App) Run(ctx context.Context) error {
	if err := a.Err(); err != nil {
		return err
	}
	if a.runner != nil {
		return a.runner(a)
	}

	interval := a.config.FrameInterval
	if interval <= 0 {
		interval = DefaultConfig().FrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("run loop started", zap.Duration("frame_interval", interval))
	for {
		if err := a.Update(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			a.logger.Info("run loop stopped")
			return nil
		}
		select {
		case <-ctx.Done():
			a.logger.Info("run loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}
