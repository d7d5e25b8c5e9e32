package ecs_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/luminara/ecs"
)

type MovementSystem struct {
	Entities ecs.Query[struct {
		Position *Position `ecs:"mut"`
		Velocity *Velocity
	}]
	ExecuteCount int
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	for _, item := range s.Entities.IterMut() {
		item.Position.X += item.Velocity.DX * float32(frame.DeltaTime)
		item.Position.Y += item.Velocity.DY * float32(frame.DeltaTime)
	}
}

type HealthSystem struct {
	Entities     ecs.Query[struct{ Health *Health }]
	ExecuteCount int
	TotalHealth  float64
}

func (s *HealthSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	s.TotalHealth = 0
	for _, item := range s.Entities.Iter() {
		s.TotalHealth += float64(item.Health.Current)
	}
}

func TestSchedule(t *testing.T) {
	t.Run("struct systems get their queries initialized", func(t *testing.T) {
		w := newTestWorld()
		ecs.InsertResource(w, ecs.Time{Delta: time.Second})
		schedule := ecs.NewSchedule(w)

		movement := &MovementSystem{}
		health := &HealthSystem{}
		require.NoError(t, schedule.AddSystem(ecs.Update, movement))
		require.NoError(t, schedule.AddSystem(ecs.Update, health))

		e := w.Spawn(Position{X: 0, Y: 0}, Velocity{DX: 1, DY: 2})
		w.Spawn(Health{Current: 100, Max: 100})

		require.NoError(t, schedule.Run())
		require.NoError(t, schedule.Run())

		assert.Equal(t, 2, movement.ExecuteCount)
		assert.Equal(t, 2, health.ExecuteCount)
		assert.Equal(t, 100.0, health.TotalHealth)

		pos, _ := ecs.Get[Position](w, e)
		assert.Equal(t, Position{X: 2, Y: 4}, *pos)
	})

	t.Run("startup runs exactly once", func(t *testing.T) {
		w := ecs.NewWorld()
		schedule := ecs.NewSchedule(w)

		var startups, updates int
		require.NoError(t, schedule.AddSystem(ecs.Startup, func(*ecs.Commands) { startups++ }))
		require.NoError(t, schedule.AddSystem(ecs.Update, func(*ecs.Commands) { updates++ }))

		require.NoError(t, schedule.RunStartup())
		require.NoError(t, schedule.RunStartup())
		require.NoError(t, schedule.Run())
		require.NoError(t, schedule.Run())

		assert.Equal(t, 1, startups)
		assert.Equal(t, 2, updates)
	})

	t.Run("stages run in order", func(t *testing.T) {
		w := ecs.NewWorld()
		schedule := ecs.NewSchedule(w)

		var order []ecs.Stage
		for _, stage := range []ecs.Stage{ecs.PostRender, ecs.Update, ecs.PreUpdate, ecs.Render, ecs.FixedUpdate, ecs.PostUpdate, ecs.PreRender} {
			stage := stage
			require.NoError(t, schedule.AddSystem(stage, func() { order = append(order, stage) }))
		}
		require.NoError(t, schedule.Run())

		assert.Equal(t, ecs.FrameStages(), order)
	})

	t.Run("commands are applied at the stage boundary", func(t *testing.T) {
		w := newTestWorld()
		schedule := ecs.NewSchedule(w)

		var sameStage, nextStage int
		require.NoError(t, schedule.AddSystem(ecs.Update, func(cmds *ecs.Commands) {
			cmds.Spawn(Position{})
		}))
		require.NoError(t, schedule.AddSystem(ecs.Update, func(q *ecs.Query[struct{ Position *Position }]) {
			sameStage = q.Count()
		}))
		require.NoError(t, schedule.AddSystem(ecs.PostUpdate, func(q *ecs.Query[struct{ Position *Position }]) {
			nextStage = q.Count()
		}))

		require.NoError(t, schedule.Run())
		assert.Equal(t, 0, sameStage)
		assert.Equal(t, 1, nextStage)
	})

	t.Run("systems without parameters are exclusive", func(t *testing.T) {
		w := ecs.NewWorld()
		schedule := ecs.NewSchedule(w)
		require.NoError(t, schedule.AddSystem(ecs.Update, func() {}, ecs.WithName("bare")))
		require.NoError(t, schedule.AddSystem(ecs.Update, func(*ecs.Res[GameConfig]) {}, ecs.WithName("reader")))

		stats := schedule.Stats()
		require.Len(t, stats.Systems, 2)
		assert.Equal(t, "exclusive", stats.Systems[0].Access)
		assert.Equal(t, "res[ecs_test.GameConfig]", stats.Systems[1].Access)
		assert.Equal(t, []string{"bare", "reader"}, schedule.Systems(ecs.Update))
	})

	t.Run("explicit access replaces the derived one", func(t *testing.T) {
		w := ecs.NewWorld()
		schedule := ecs.NewSchedule(w)
		access := ecs.NewAccess(ecs.WritesResource[uint32]())
		require.NoError(t, schedule.AddSystem(ecs.Update, func(w *ecs.World) {}, ecs.WithAccess(access)))

		assert.Equal(t, "res_mut[uint32]", schedule.Stats().Systems[0].Access)
	})

	t.Run("registration errors", func(t *testing.T) {
		w := ecs.NewWorld()
		schedule := ecs.NewSchedule(w)

		err := schedule.AddSystem(ecs.Update, func(*ecs.Res[GameConfig], *ecs.ResMut[GameConfig]) {})
		assert.ErrorIs(t, err, ecs.ErrConflictingParams)

		err = schedule.AddSystem(ecs.Update, func(*ecs.Query[struct {
			P *Position `ecs:"mut"`
		}], *ecs.Query[struct{ P *Position }]) {
		})
		assert.ErrorIs(t, err, ecs.ErrConflictingParams)

		err = schedule.AddSystem(ecs.Update, func(int) {})
		assert.ErrorIs(t, err, ecs.ErrInvalidSystem)

		err = schedule.AddSystem(ecs.Update, func() int { return 0 })
		assert.ErrorIs(t, err, ecs.ErrInvalidSystem)

		err = schedule.AddSystem(ecs.Update, 42)
		assert.ErrorIs(t, err, ecs.ErrInvalidSystem)

		err = schedule.AddSystem(ecs.Stage(99), func() {})
		assert.ErrorIs(t, err, ecs.ErrInvalidStage)
	})
}

func TestScheduleFailures(t *testing.T) {
	t.Run("panics abort the stage and drop its commands", func(t *testing.T) {
		w := newTestWorld()
		ecs.InsertResource(w, ecs.Parallelism{Workers: 1})
		schedule := ecs.NewSchedule(w)

		var after bool
		require.NoError(t, schedule.AddSystem(ecs.Update, func(cmds *ecs.Commands) {
			cmds.Spawn(Position{})
		}))
		require.NoError(t, schedule.AddSystem(ecs.Update, func() { panic("kaboom") }, ecs.WithName("exploder")))
		require.NoError(t, schedule.AddSystem(ecs.Update, func() { after = true }))

		err := schedule.Run()
		require.Error(t, err)
		assert.ErrorIs(t, err, ecs.ErrSystemPanic)
		assert.Contains(t, err.Error(), "exploder")
		assert.False(t, after)
		assert.Equal(t, 0, w.Len(), "reserved entities are released")
	})

	t.Run("function systems may return errors", func(t *testing.T) {
		w := ecs.NewWorld()
		schedule := ecs.NewSchedule(w)
		sentinel := errors.New("out of mana")
		require.NoError(t, schedule.AddSystem(ecs.Update, func() error { return sentinel }))

		err := schedule.Run()
		assert.ErrorIs(t, err, sentinel)
		assert.NotErrorIs(t, err, ecs.ErrSystemPanic)
	})
}

func TestScheduleParallelism(t *testing.T) {
	counter := func(w *ecs.World, workers int) (uint32, int32) {
		ecs.InsertResource(w, ecs.Parallelism{Workers: workers})
		ecs.InsertResource(w, uint32(0))
		ecs.InsertResource(w, int32(0))

		schedule := ecs.NewSchedule(w)
		require.NoError(t, schedule.AddSystem(ecs.Update, func(r *ecs.ResMut[uint32]) { *r.Get() += 1 }))
		require.NoError(t, schedule.AddSystem(ecs.Update, func(r *ecs.ResMut[int32]) { *r.Get() += 1 }))
		for i := 0; i < 10; i++ {
			require.NoError(t, schedule.Run())
		}
		u, _ := ecs.GetResource[uint32](w)
		i, _ := ecs.GetResource[int32](w)
		return *u, *i
	}

	t.Run("disjoint systems reach the same state serially and in parallel", func(t *testing.T) {
		u1, i1 := counter(ecs.NewWorld(), 1)
		u4, i4 := counter(ecs.NewWorld(), 4)
		assert.Equal(t, u1, u4)
		assert.Equal(t, i1, i4)
		assert.Equal(t, uint32(10), u4)
		assert.Equal(t, int32(10), i4)
	})

	t.Run("conflicting systems keep registration order", func(t *testing.T) {
		type Log struct{ Entries []string }

		w := ecs.NewWorld()
		ecs.InsertResource(w, ecs.Parallelism{Workers: 8})
		ecs.InsertResource(w, Log{})
		schedule := ecs.NewSchedule(w)

		for _, name := range []string{"a", "b", "c"} {
			name := name
			require.NoError(t, schedule.AddSystem(ecs.Update, func(l *ecs.ResMut[Log]) {
				time.Sleep(time.Millisecond)
				l.Get().Entries = append(l.Get().Entries, name)
			}))
		}

		for i := 0; i < 5; i++ {
			require.NoError(t, schedule.Run())
		}
		log, _ := ecs.GetResource[Log](w)
		assert.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a", "b", "c", "a", "b", "c", "a", "b", "c"}, log.Entries)
	})

	t.Run("non conflicting systems overlap", func(t *testing.T) {
		w := ecs.NewWorld()
		ecs.InsertResource(w, ecs.Parallelism{Workers: 4})
		schedule := ecs.NewSchedule(w)

		var running, peak atomic.Int32
		track := func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
		}
		require.NoError(t, schedule.AddSystem(ecs.Update, func(*ecs.Res[uint32]) { track() }))
		require.NoError(t, schedule.AddSystem(ecs.Update, func(*ecs.Res[uint32]) { track() }))

		require.NoError(t, schedule.Run())
		assert.Equal(t, int32(2), peak.Load())
	})
}

func TestScheduleChangeTicks(t *testing.T) {
	w := newTestWorld()
	schedule := ecs.NewSchedule(w)

	var seen []int
	require.NoError(t, schedule.AddSystem(ecs.Update, func(q *ecs.Query[struct {
		Position *Position
		_        ecs.Added[Position]
	}]) {
		seen = append(seen, q.Count())
	}))

	w.Spawn(Position{})
	require.NoError(t, schedule.Run())
	require.NoError(t, schedule.Run())
	w.Spawn(Position{})
	w.Spawn(Position{})
	require.NoError(t, schedule.Run())

	assert.Equal(t, []int{1, 0, 2}, seen)
}

func TestScheduleAddSystemWhileRunning(t *testing.T) {
	w := ecs.NewWorld()
	ecs.InsertResource(w, ecs.Parallelism{Workers: 4})
	ecs.InsertResource(w, int32(0))
	ecs.InsertResource(w, uint32(0))
	schedule := ecs.NewSchedule(w)

	var added, lateRuns atomic.Int32
	require.NoError(t, schedule.AddSystem(ecs.Update, func(n *ecs.ResMut[int32]) {
		*n.Get()++
		if added.Add(1) > 1 {
			return
		}
		for range 8 {
			assert.NoError(t, schedule.AddSystem(ecs.Update, func(*ecs.ResMut[int32]) {
				lateRuns.Add(1)
			}))
		}
	}, ecs.WithName("adder")))
	for range 3 {
		require.NoError(t, schedule.AddSystem(ecs.Update, func(*ecs.Res[uint32]) {
			time.Sleep(time.Millisecond)
		}))
	}

	require.NoError(t, schedule.RunStage(ecs.Update))
	assert.Zero(t, lateRuns.Load(), "systems added mid-stage wait for the next run")
	assert.Len(t, schedule.Systems(ecs.Update), 12)

	require.NoError(t, schedule.RunStage(ecs.Update))
	assert.Equal(t, int32(8), lateRuns.Load())
	n, _ := ecs.GetResource[int32](w)
	assert.Equal(t, int32(2), *n)
}
