package ecs

import (
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ScheduleStats provides statistics about schedule execution.
type ScheduleStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	Stage          Stage
	Access         string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func (s *systemStatsInternal) record(d time.Duration) {
	s.executionCount++
	s.lastDuration = d
	s.totalDuration += d
	if d < s.minDuration {
		s.minDuration = d
	}
	if d > s.maxDuration {
		s.maxDuration = d
	}
}

type scheduledSystem struct {
	*boundSystem
	commands *Commands
	stats    systemStatsInternal
}

type stageSystems struct {
	systems []*scheduledSystem
	// dependents[i] lists the later systems that conflict with system i;
	// blockers[j] counts the earlier systems system j waits for.
	dependents [][]int
	blockers   []int
}

func (st *stageSystems) add(sys *scheduledSystem) {
	j := len(st.systems)
	st.systems = append(st.systems, sys)
	st.dependents = append(st.dependents, nil)
	st.blockers = append(st.blockers, 0)
	for i := 0; i < j; i++ {
		if st.systems[i].access.Conflicts(sys.access) {
			st.dependents[i] = append(st.dependents[i], j)
			st.blockers[j]++
		}
	}
}

// snapshot copies st deeply enough that a later add cannot touch what a
// running stage reads.
func (st *stageSystems) snapshot() stageSystems {
	out := stageSystems{
		systems:    slices.Clone(st.systems),
		dependents: make([][]int, len(st.dependents)),
		blockers:   slices.Clone(st.blockers),
	}
	for i, deps := range st.dependents {
		out.dependents[i] = slices.Clone(deps)
	}
	return out
}

// SystemOption configures a system as it is added to a Schedule.
type SystemOption func(*systemOptions)

type systemOptions struct {
	access *SystemAccess
	name   string
}

// WithAccess replaces the footprint derived from the system's parameters.
func WithAccess(access SystemAccess) SystemOption {
	return func(o *systemOptions) { o.access = &access }
}

// WithName overrides the name used in stats, logs and errors.
func WithName(name string) SystemOption {
	return func(o *systemOptions) { o.name = name }
}

// Schedule runs systems stage by stage against one World. Within a stage,
// systems whose footprints do not conflict may run concurrently; conflicting
// systems keep their registration order. Commands produced by a stage are
// applied after every system of that stage has returned.
//
// Systems added while a stage is running take effect from the next run of that stage.
type Schedule struct {
	mu         sync.Mutex
	world      *World
	stages     [stageCount]stageSystems
	ranStartup bool
	logger     *zap.Logger
}

// NewSchedule creates an empty schedule for w.
func NewSchedule(w *World) *Schedule {
	return &Schedule{
		world:  w,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used for registration and failure messages.
func (s *Schedule) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.logger = logger
}

// World returns the World the schedule runs against.
func (s *Schedule) World() *World {
	return s.world
}

// AddSystem binds sys to the World and appends it to stage. sys is either a
// System or a function of system parameters (see System). The footprint is
// derived from the parameters unless WithAccess is given; a system that
// declares nothing is treated as exclusive.
func (s *Schedule) AddSystem(stage Stage, sys any, opts ...SystemOption) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStage, int(stage))
	}

	var o systemOptions
	for _, opt := range opts {
		opt(&o)
	}

	bound, err := bindSystem(s.world, sys)
	if err != nil {
		return err
	}
	if o.name != "" {
		bound.name = o.name
	}
	if o.access != nil {
		bound.access = *o.access
		bound.explicit = true
	}
	if !bound.explicit && bound.access.IsEmpty() {
		bound.access.Exclusive = true
	}

	s.mu.Lock()
	s.stages[stage].add(&scheduledSystem{
		boundSystem: bound,
		commands:    NewCommands(s.world),
		stats:       systemStatsInternal{minDuration: time.Duration(1<<63 - 1)},
	})
	s.mu.Unlock()

	s.logger.Debug("system added",
		zap.String("system", bound.name),
		zap.Stringer("stage", stage),
		zap.Stringer("access", bound.access),
	)
	return nil
}

// RunStartup runs the Startup stage. It does nothing after the first successful call.
func (s *Schedule) RunStartup() error {
	if s.ranStartup {
		return nil
	}
	if err := s.RunStage(Startup); err != nil {
		return err
	}
	s.ranStartup = true
	return nil
}

// Run runs every frame stage once, in order. It stops at the first stage that fails.
func (s *Schedule) Run() error {
	for _, stage := range FrameStages() {
		if err := s.RunStage(stage); err != nil {
			return err
		}
	}
	return nil
}

// RunStage runs the systems of one stage and then applies their commands in
// registration order. When a system fails, no further systems of the stage
// are started and the stage's commands are discarded.
func (s *Schedule) RunStage(stage Stage) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStage, int(stage))
	}

	s.mu.Lock()
	st := s.stages[stage].snapshot()
	s.mu.Unlock()

	if len(st.systems) == 0 {
		return nil
	}

	dt := 0.0
	if t, ok := GetResource[Time](s.world); ok {
		dt = t.DeltaSeconds()
	}

	var err error
	if workers := s.world.parallelism().Workers; workers <= 1 || len(st.systems) == 1 {
		err = s.runSerial(&st, dt)
	} else {
		err = s.runParallel(&st, dt, workers)
	}

	if err != nil {
		for _, sys := range st.systems {
			sys.commands.Discard()
		}
		s.logger.Error("stage failed", zap.Stringer("stage", stage), zap.Error(err))
		return fmt.Errorf("stage %s: %w", stage, err)
	}

	for _, sys := range st.systems {
		sys.commands.Apply(s.world)
	}
	return nil
}

func (s *Schedule) runSerial(st *stageSystems, dt float64) error {
	for _, sys := range st.systems {
		if err := s.runSystem(sys, dt); err != nil {
			return err
		}
	}
	return nil
}

// runParallel dispatches the stage's dependency graph on a bounded pool. A
// system starts once every earlier system it conflicts with has finished.
func (s *Schedule) runParallel(st *stageSystems, dt float64, workers int) error {
	n := len(st.systems)
	blockers := append([]int(nil), st.blockers...)

	type result struct {
		index int
		err   error
	}
	results := make(chan result, n)

	ready := make([]int, 0, n)
	for i, b := range blockers {
		if b == 0 {
			ready = append(ready, i)
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)

	var errs []error
	running := 0
	for {
		if len(errs) == 0 {
			for _, i := range ready {
				sys := st.systems[i]
				running++
				g.Go(func() error {
					results <- result{index: i, err: s.runSystem(sys, dt)}
					return nil
				})
			}
		}
		ready = ready[:0]

		if running == 0 {
			break
		}

		r := <-results
		running--
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		for _, j := range st.dependents[r.index] {
			if j >= n {
				break
			}
			blockers[j]--
			if blockers[j] == 0 {
				ready = append(ready, j)
			}
		}
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (s *Schedule) runSystem(sys *scheduledSystem, dt float64) (err error) {
	thisRun := s.world.IncrementTick()
	frame := &UpdateFrame{
		DeltaTime: dt,
		Commands:  sys.commands,
		World:     s.world,
		System:    sys.name,
		LastRun:   sys.lastRun,
		ThisRun:   thisRun,
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if se, ok := r.(systemError); ok {
			err = fmt.Errorf("system %s: %w", sys.name, se.err)
			return
		}
		err = fmt.Errorf("%w: %s: %v", ErrSystemPanic, sys.name, r)
		s.logger.Error("system panicked",
			zap.String("system", sys.name),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()),
		)
	}()

	release := sys.begin(thisRun)
	defer release()

	start := time.Now()
	sys.system.Execute(frame)
	sys.stats.record(time.Since(start))
	return nil
}

// Systems returns the names of the systems in stage, in registration order.
func (s *Schedule) Systems(stage Stage) []string {
	if !stage.Valid() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.stages[stage].systems))
	for i, sys := range s.stages[stage].systems {
		names[i] = sys.name
	}
	return names
}

// Stats returns statistics about system execution.
func (s *Schedule) Stats() *ScheduleStats {
	stats := &ScheduleStats{}

	s.mu.Lock()
	stages := s.stages
	s.mu.Unlock()

	for stage := Startup; stage < stageCount; stage++ {
		for _, sys := range stages[stage].systems {
			internal := sys.stats
			avgDuration := time.Duration(0)
			minDuration := time.Duration(0)
			if internal.executionCount > 0 {
				avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
				minDuration = internal.minDuration
			}

			stats.Systems = append(stats.Systems, SystemStats{
				Name:           sys.name,
				Stage:          stage,
				Access:         sys.access.String(),
				ExecutionCount: internal.executionCount,
				MinDuration:    minDuration,
				MaxDuration:    internal.maxDuration,
				AvgDuration:    avgDuration,
				LastDuration:   internal.lastDuration,
				TotalDuration:  internal.totalDuration,
			})
			stats.TotalExecutions += internal.executionCount
		}
	}

	stats.SystemCount = len(stats.Systems)
	return stats
}
