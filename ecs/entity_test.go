package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plus3/luminara/ecs"
)

func TestEntityAllocator(t *testing.T) {
	t.Run("spawn issues fresh indices at generation zero", func(t *testing.T) {
		a := ecs.NewEntityAllocator()
		e0 := a.Spawn()
		e1 := a.Spawn()

		assert.Equal(t, uint32(0), e0.Index())
		assert.Equal(t, uint32(1), e1.Index())
		assert.Equal(t, uint32(0), e0.Generation())
		assert.True(t, a.IsAlive(e0))
		assert.True(t, a.IsAlive(e1))
		assert.Equal(t, 2, a.Len())
	})

	t.Run("despawned entity is dead and its index is recycled with a higher generation", func(t *testing.T) {
		a := ecs.NewEntityAllocator()
		e := a.Spawn()

		assert.True(t, a.Despawn(e))
		assert.False(t, a.IsAlive(e))

		reused := a.Spawn()
		assert.Equal(t, e.Index(), reused.Index())
		assert.Greater(t, reused.Generation(), e.Generation())
		assert.True(t, a.IsAlive(reused))
		assert.False(t, a.IsAlive(e), "stale handle must not alias the recycled slot")
	})

	t.Run("double despawn is a no-op", func(t *testing.T) {
		a := ecs.NewEntityAllocator()
		e := a.Spawn()

		assert.True(t, a.Despawn(e))
		assert.False(t, a.Despawn(e))
		assert.Equal(t, 0, a.Len())

		next := a.Spawn()
		assert.Equal(t, uint32(1), next.Generation())
	})

	t.Run("unknown entities are not alive", func(t *testing.T) {
		a := ecs.NewEntityAllocator()
		assert.False(t, a.IsAlive(ecs.Entity(42)))
		assert.False(t, a.Despawn(ecs.Entity(42)))
	})

	t.Run("iter alive skips despawned slots and can be restarted", func(t *testing.T) {
		a := ecs.NewEntityAllocator()
		e0 := a.Spawn()
		e1 := a.Spawn()
		e2 := a.Spawn()
		a.Despawn(e1)

		var first, second []ecs.Entity
		for e := range a.IterAlive() {
			first = append(first, e)
		}
		for e := range a.IterAlive() {
			second = append(second, e)
		}

		assert.Equal(t, []ecs.Entity{e0, e2}, first)
		assert.Equal(t, first, second)
	})

	t.Run("generations keep increasing across many recycles", func(t *testing.T) {
		a := ecs.NewEntityAllocator()
		e := a.Spawn()
		for i := 0; i < 10; i++ {
			a.Despawn(e)
			next := a.Spawn()
			if next.Generation() <= e.Generation() {
				t.Fatalf("generation did not increase: %s -> %s", e, next)
			}
			e = next
		}
		assert.Equal(t, uint32(10), e.Generation())
	})
}

func TestEntityString(t *testing.T) {
	a := ecs.NewEntityAllocator()
	e := a.Spawn()
	a.Despawn(e)
	e = a.Spawn()
	assert.Equal(t, "0v1", e.String())
}
