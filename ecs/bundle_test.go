package ecs_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/luminara/ecs"
)

type Kinematics struct {
	Position Position
	Velocity Velocity
}

type PlayerBundle struct {
	Kinematics Kinematics `ecs:"bundle"`
	Health     Health
	Name       Name
	internal   int
}

func TestBundles(t *testing.T) {
	t.Run("register flattens nested bundles", func(t *testing.T) {
		w := ecs.NewWorld()
		ids, err := ecs.RegisterBundle[PlayerBundle](w)
		require.NoError(t, err)
		assert.Len(t, ids, 4)

		types, err := ecs.BundleTypes[PlayerBundle]()
		require.NoError(t, err)
		assert.Equal(t, []reflect.Type{
			reflect.TypeOf(Position{}),
			reflect.TypeOf(Velocity{}),
			reflect.TypeOf(Health{}),
			reflect.TypeOf(Name{}),
		}, types)

		again := ecs.BundleComponentIDs[PlayerBundle](w)
		assert.Equal(t, ids, again)
	})

	t.Run("spawn bundle inserts every member", func(t *testing.T) {
		w := ecs.NewWorld()
		e, err := ecs.SpawnBundle(w, PlayerBundle{
			Kinematics: Kinematics{Position: Position{X: 1}, Velocity: Velocity{DX: 2}},
			Health:     Health{Current: 3},
			Name:       Name{Value: "hero"},
		})
		require.NoError(t, err)

		pos, ok := ecs.Get[Position](w, e)
		require.True(t, ok)
		assert.Equal(t, float32(1), pos.X)
		name, _ := ecs.Get[Name](w, e)
		assert.Equal(t, "hero", name.Value)
		assert.Len(t, w.ComponentsOf(e), 4)
	})

	t.Run("insert bundle on a dead entity is a no-op", func(t *testing.T) {
		w := ecs.NewWorld()
		e := w.Spawn()
		w.Despawn(e)

		ok, err := ecs.InsertBundle(w, e, Kinematics{})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid bundles are rejected", func(t *testing.T) {
		type withPointer struct {
			Position *Position
		}
		type duplicate struct {
			A Position
			B Position
		}

		w := ecs.NewWorld()
		_, err := ecs.RegisterBundle[withPointer](w)
		assert.ErrorIs(t, err, ecs.ErrInvalidBundle)
		_, err = ecs.RegisterBundle[duplicate](w)
		assert.ErrorIs(t, err, ecs.ErrInvalidBundle)
		_, err = ecs.RegisterBundle[int](w)
		assert.ErrorIs(t, err, ecs.ErrInvalidBundle)
	})
}
