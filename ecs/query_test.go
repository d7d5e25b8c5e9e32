package ecs_test

import (
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/luminara/ecs"
)

func collect[D any](q *ecs.Query[D]) []ecs.Entity {
	var out []ecs.Entity
	for e := range q.Iter() {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

func sorted(entities ...ecs.Entity) []ecs.Entity {
	slices.Sort(entities)
	return entities
}

func TestQueryFilters(t *testing.T) {
	w := newTestWorld()
	posOnly := w.Spawn(Position{})
	posVel := w.Spawn(Position{}, Velocity{})
	velOnly := w.Spawn(Velocity{})
	posHealth := w.Spawn(Position{}, Health{})
	health := w.Spawn(Health{})
	w.Spawn(Name{})

	t.Run("with", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			Position *Position
			_        ecs.With[Velocity]
		}](w)
		assert.Equal(t, sorted(posVel), collect(q))
	})

	t.Run("without", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			Position *Position
			_        ecs.Without[Velocity]
		}](w)
		assert.Equal(t, sorted(posOnly, posHealth), collect(q))
	})

	t.Run("or of with filters is a union without duplicates", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			_ ecs.Or[ecs.With[Velocity], ecs.With[Health]]
		}](w)
		assert.Equal(t, sorted(posVel, velOnly, posHealth, health), collect(q))
	})

	t.Run("or3", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			Position *Position
			_        ecs.Or3[ecs.With[Velocity], ecs.With[Health], ecs.Without[Name]]
		}](w)
		assert.Equal(t, sorted(posOnly, posVel, posHealth), collect(q))
	})

	t.Run("insertion order does not matter", func(t *testing.T) {
		w2 := newTestWorld()
		a := w2.Spawn(Velocity{}, Position{})
		b := w2.Spawn()
		ecs.Insert(w2, b, Velocity{})
		ecs.Insert(w2, b, Position{})
		w2.Spawn(Position{})

		q := ecs.MustQuery[struct {
			Position *Position
			_        ecs.With[Velocity]
		}](w2)
		assert.Equal(t, sorted(a, b), collect(q))
	})

	t.Run("dead entities never match", func(t *testing.T) {
		w2 := newTestWorld()
		a := w2.Spawn(Position{})
		b := w2.Spawn(Position{})
		w2.Despawn(a)

		q := ecs.MustQuery[struct{ Position *Position }](w2)
		assert.Equal(t, []ecs.Entity{b}, collect(q))
	})

	t.Run("unregistered required type matches nothing", func(t *testing.T) {
		type neverInserted struct{}
		q := ecs.MustQuery[struct{ V *neverInserted }](w)
		assert.Equal(t, 0, q.Count())

		without := ecs.MustQuery[struct {
			Name *Name
			_    ecs.Without[neverInserted]
		}](w)
		assert.Equal(t, 1, without.Count())
	})
}

func TestQueryData(t *testing.T) {
	w := newTestWorld()
	a := w.Spawn(Position{X: 1}, Health{Current: 5})
	b := w.Spawn(Position{X: 2})

	t.Run("optional fields are nil when missing", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			Position *Position
			Health   *Health `ecs:"optional"`
		}](w)

		item, ok := q.Get(a)
		require.True(t, ok)
		require.NotNil(t, item.Health)
		assert.Equal(t, 5, item.Health.Current)

		item, ok = q.Get(b)
		require.True(t, ok)
		assert.Nil(t, item.Health)
	})

	t.Run("embedded pointers and entity fields", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			ecs.Entity
			*Position
		}](w)

		for e, item := range q.Iter() {
			assert.Equal(t, e, item.Entity)
			assert.NotNil(t, item.Position)
		}
		assert.Equal(t, 2, q.Count())
	})

	t.Run("iter mut writes through to storage", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			Position *Position `ecs:"mut"`
		}](w)
		for _, item := range q.IterMut() {
			item.Position.Y = 7
		}

		pos, _ := ecs.Get[Position](w, b)
		assert.Equal(t, float32(7), pos.Y)
	})

	t.Run("single", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			Health *Health
		}](w)
		e, item, ok := q.Single()
		require.True(t, ok)
		assert.Equal(t, a, e)
		assert.Equal(t, 5, item.Health.Current)

		many := ecs.MustQuery[struct{ Position *Position }](w)
		_, _, ok = many.Single()
		assert.False(t, ok)
	})

	t.Run("iteration is restartable and stable", func(t *testing.T) {
		q := ecs.MustQuery[struct{ Position *Position }](w)
		var first, second []ecs.Entity
		for e := range q.Iter() {
			first = append(first, e)
		}
		for e := range q.Iter() {
			second = append(second, e)
		}
		assert.Equal(t, first, second)
	})

	t.Run("access is captured at construction", func(t *testing.T) {
		q := ecs.MustQuery[struct {
			Position *Position `ecs:"mut"`
			Velocity *Velocity
			_        ecs.With[Health]
			_        ecs.Changed[Name]
		}](w)
		access := q.Access()
		assert.Equal(t, []string{"ecs_test.Position"}, access.ComponentsWrite.Names())
		assert.Equal(t, []string{"ecs_test.Name", "ecs_test.Velocity"}, access.ComponentsRead.Names())
	})
}

func TestQueryValidation(t *testing.T) {
	w := newTestWorld()

	_, err := ecs.NewQuery[struct {
		A *Position `ecs:"mut"`
		B *Position
	}](w)
	assert.ErrorIs(t, err, ecs.ErrQueryAliasing)

	_, err = ecs.NewQuery[struct {
		A *Position
		B *Position
	}](w)
	assert.NoError(t, err)

	_, err = ecs.NewQuery[struct{ Position Position }](w)
	assert.ErrorIs(t, err, ecs.ErrInvalidQuery)

	_, err = ecs.NewQuery[struct {
		Position *Position `ecs:"sometimes"`
	}](w)
	assert.ErrorIs(t, err, ecs.ErrInvalidQuery)

	_, err = ecs.NewQuery[int](w)
	assert.ErrorIs(t, err, ecs.ErrInvalidQuery)
}

func TestQueryChangeDetection(t *testing.T) {
	w := newTestWorld()
	a := w.Spawn(Position{})

	added := ecs.MustQuery[struct {
		_ ecs.Added[Position]
	}](w)
	changed := ecs.MustQuery[struct {
		_ ecs.Changed[Position]
	}](w)

	assert.Equal(t, []ecs.Entity{a}, collect(added))
	assert.Equal(t, []ecs.Entity{a}, collect(changed))

	assert.Empty(t, collect(added), "nothing new since the last pass")
	assert.Empty(t, collect(changed))

	b := w.Spawn(Position{})
	ecs.GetMut[Position](w, a)

	assert.Equal(t, []ecs.Entity{b}, collect(added))
	assert.Equal(t, sorted(a, b), collect(changed))

	writer := ecs.MustQuery[struct {
		Position *Position `ecs:"mut"`
	}](w)
	for range writer.IterMut() {
	}
	assert.Equal(t, sorted(a, b), collect(changed), "iter mut marks yielded components changed")
	assert.Empty(t, collect(added))
}

func TestQueryBorrowGuard(t *testing.T) {
	w := newTestWorld()
	w.Spawn(Position{})

	writer := ecs.MustQuery[struct {
		Position *Position `ecs:"mut"`
	}](w)
	reader := ecs.MustQuery[struct{ Position *Position }](w)

	assert.Panics(t, func() {
		for range writer.IterMut() {
			for range reader.Iter() {
			}
		}
	})

	// borrows are released after the panic unwinds
	assert.NotPanics(t, func() {
		for range reader.Iter() {
			for range reader.Iter() {
			}
		}
		for range writer.IterMut() {
		}
	})
}

func TestParForEach(t *testing.T) {
	w := newTestWorld()
	ecs.InsertResource(w, ecs.Parallelism{Workers: 4, ChunkSize: 16})

	const n = 1000
	for i := 0; i < n; i++ {
		w.Spawn(Score(i), Position{X: float32(i)})
	}

	q := ecs.MustQuery[struct{ Score *Score }](w)

	var sequential int64
	for _, item := range q.Iter() {
		sequential += int64(*item.Score)
	}

	var (
		parallel atomic.Int64
		visits   sync.Map
		calls    atomic.Int64
	)
	q.ParForEach(func(e ecs.Entity, item struct{ Score *Score }) {
		parallel.Add(int64(*item.Score))
		calls.Add(1)
		_, dup := visits.LoadOrStore(e, true)
		assert.False(t, dup, "entity %s visited twice", e)
	})

	assert.Equal(t, int64(n), calls.Load())
	assert.Equal(t, sequential, parallel.Load())

	t.Run("mut variant writes every match", func(t *testing.T) {
		mq := ecs.MustQuery[struct {
			Position *Position `ecs:"mut"`
		}](w)
		mq.ParForEachMut(func(_ ecs.Entity, item struct {
			Position *Position `ecs:"mut"`
		}) {
			item.Position.Y = 1
		})
		for _, item := range mq.Iter() {
			assert.Equal(t, float32(1), item.Position.Y)
		}
	})

	t.Run("panics propagate to the caller", func(t *testing.T) {
		assert.Panics(t, func() {
			q.ParForEach(func(ecs.Entity, struct{ Score *Score }) {
				panic("boom")
			})
		})
	})
}
