package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plus3/luminara/ecs"
)

func TestSystemAccessConflicts(t *testing.T) {
	tests := []struct {
		name     string
		a, b     ecs.SystemAccess
		conflict bool
	}{
		{
			name: "disjoint writes",
			a:    ecs.NewAccess(ecs.WritesResource[uint32]()),
			b:    ecs.NewAccess(ecs.WritesResource[int32]()),
		},
		{
			name: "shared reads",
			a:    ecs.NewAccess(ecs.ReadsComponent[Position](), ecs.ReadsResource[GameConfig]()),
			b:    ecs.NewAccess(ecs.ReadsComponent[Position](), ecs.ReadsResource[GameConfig]()),
		},
		{
			name:     "write against read",
			a:        ecs.NewAccess(ecs.WritesComponent[Position]()),
			b:        ecs.NewAccess(ecs.ReadsComponent[Position]()),
			conflict: true,
		},
		{
			name:     "read against write",
			a:        ecs.NewAccess(ecs.ReadsResource[GameConfig]()),
			b:        ecs.NewAccess(ecs.WritesResource[GameConfig]()),
			conflict: true,
		},
		{
			name:     "write against write",
			a:        ecs.NewAccess(ecs.WritesComponent[Velocity]()),
			b:        ecs.NewAccess(ecs.WritesComponent[Velocity](), ecs.ReadsComponent[Position]()),
			conflict: true,
		},
		{
			name: "component and resource of the same type do not mix",
			a:    ecs.NewAccess(ecs.WritesComponent[Score]()),
			b:    ecs.NewAccess(ecs.WritesResource[Score]()),
		},
		{
			name:     "exclusive conflicts with everything",
			a:        ecs.NewAccess(ecs.Exclusive()),
			b:        ecs.SystemAccess{},
			conflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.conflict, tt.a.Conflicts(tt.b))
			assert.Equal(t, tt.conflict, tt.b.Conflicts(tt.a))
		})
	}
}

func TestSystemAccessMerge(t *testing.T) {
	a := ecs.NewAccess(ecs.ReadsComponent[Position]())
	assert.False(t, a.IsEmpty())
	assert.True(t, ecs.SystemAccess{}.IsEmpty())

	a.Merge(ecs.NewAccess(ecs.WritesResource[GameConfig](), ecs.WritesComponent[Velocity]()))
	assert.Equal(t, "res_mut[ecs_test.GameConfig] read[ecs_test.Position] write[ecs_test.Velocity]", a.String())
	assert.Equal(t, "exclusive", ecs.NewAccess(ecs.Exclusive()).String())
	assert.Equal(t, "none", ecs.SystemAccess{}.String())
}
