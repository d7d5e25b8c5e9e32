package ecs_test

import (
	"testing"

	"github.com/plus3/luminara/ecs"
)

func BenchmarkSpawn(b *testing.B) {
	w := newTestWorld()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Spawn(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5})
	}
}

func BenchmarkSpawnWithMultipleComponents(b *testing.B) {
	w := newTestWorld()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Spawn(
			Position{X: 1.0, Y: 2.0},
			Velocity{DX: 0.5, DY: 0.5},
			Health{Current: 100, Max: 100},
			Name{Value: "Entity"},
		)
	}
}

func BenchmarkDespawn(b *testing.B) {
	w := newTestWorld()

	ids := make([]ecs.Entity, b.N)
	for i := 0; i < b.N; i++ {
		ids[i] = w.Spawn(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Despawn(ids[i])
	}
}

func BenchmarkGet(b *testing.B) {
	w := newTestWorld()
	e := w.Spawn(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ecs.Get[Position](w, e)
	}
}

func BenchmarkInsertRemove(b *testing.B) {
	w := newTestWorld()
	e := w.Spawn(Position{X: 1.0, Y: 2.0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ecs.Insert(w, e, Health{Current: 1, Max: 1})
		ecs.Remove[Health](w, e)
	}
}

func populate(w *ecs.World, n int) {
	for i := 0; i < n; i++ {
		switch i % 3 {
		case 0:
			w.Spawn(Position{X: float32(i)}, Velocity{DX: 1, DY: 1})
		case 1:
			w.Spawn(Position{X: float32(i)}, Velocity{DX: 1, DY: 1}, Health{Current: 100, Max: 100})
		default:
			w.Spawn(Position{X: float32(i)})
		}
	}
}

func BenchmarkQueryIter(b *testing.B) {
	w := newTestWorld()
	populate(w, 10000)
	q := ecs.MustQuery[struct {
		Position *Position `ecs:"mut"`
		Velocity *Velocity
	}](w)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, item := range q.IterMut() {
			item.Position.X += item.Velocity.DX
		}
	}
}

func BenchmarkQueryParForEach(b *testing.B) {
	w := newTestWorld()
	ecs.InsertResource(w, ecs.Parallelism{Workers: 4})
	populate(w, 10000)
	q := ecs.MustQuery[struct {
		Position *Position `ecs:"mut"`
		Velocity *Velocity
	}](w)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.ParForEachMut(func(_ ecs.Entity, item struct {
			Position *Position `ecs:"mut"`
			Velocity *Velocity
		}) {
			item.Position.X += item.Velocity.DX
		})
	}
}

func BenchmarkScheduleRun(b *testing.B) {
	w := newTestWorld()
	populate(w, 1000)
	schedule := ecs.NewSchedule(w)
	_ = schedule.AddSystem(ecs.Update, func(q *ecs.Query[struct {
		Position *Position `ecs:"mut"`
		Velocity *Velocity
	}]) {
		for _, item := range q.IterMut() {
			item.Position.Y += item.Velocity.DY
		}
	})
	_ = schedule.AddSystem(ecs.Update, func(q *ecs.Query[struct{ Health *Health }]) {
		for range q.Iter() {
		}
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = schedule.Run()
	}
}
