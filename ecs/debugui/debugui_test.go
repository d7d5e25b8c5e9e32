package debugui_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plus3/luminara/app"
	"github.com/plus3/luminara/ecs"
	"github.com/plus3/luminara/ecs/debugui"
)

type Position struct{ X, Y float32 }
type Velocity struct{ DX, DY float32 }

func newWorld() (*ecs.World, []ecs.Entity) {
	w := ecs.NewWorld()
	return w, []ecs.Entity{
		w.Spawn(Position{}, Velocity{}),
		w.Spawn(Position{}),
		w.Spawn(Position{}, Velocity{}),
	}
}

func TestEntityBrowser(t *testing.T) {
	w, entities := newWorld()
	eb := debugui.NewEntityBrowserComponent(10)
	eb.Rebuild(w)

	rows := eb.FilteredEntities()
	require.Len(t, rows, 3)
	assert.Equal(t, entities[0], rows[0].ID)
	assert.Equal(t, []string{"debugui_test.Position", "debugui_test.Velocity"}, rows[0].ComponentTypes)

	eb.SortBy(2, true)
	assert.Equal(t, entities[1], eb.FilteredEntities()[0].ID)

	eb.SetFilter("velocity")
	assert.Len(t, eb.FilteredEntities(), 2)

	eb.SetFilter("")
	eb.FilterByComponent("debugui_test.Velocity")
	assert.Len(t, eb.FilteredEntities(), 2)

	_, ok := eb.SelectedEntity()
	assert.False(t, ok)
	eb.Select(entities[2])
	selected, ok := eb.SelectedEntity()
	assert.True(t, ok)
	assert.Equal(t, entities[2], selected)
}

func TestTableViewer(t *testing.T) {
	w, _ := newWorld()
	tv := debugui.NewTableViewerComponent()
	tv.Refresh(w)

	tables := tv.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "debugui_test.Position", tables[0].Name, "largest table first by default")
	assert.Equal(t, 3, tables[0].EntityCount)

	tv.SortBy(2, true)
	assert.Equal(t, "debugui_test.Velocity", tv.Tables()[0].Name)
}

func TestMatchingEntities(t *testing.T) {
	w, entities := newWorld()

	matching := debugui.MatchingEntities(w, []reflect.Type{reflect.TypeOf(Position{}), reflect.TypeOf(Velocity{})})
	assert.Equal(t, []ecs.Entity{entities[0], entities[2]}, matching)

	assert.Len(t, debugui.MatchingEntities(w, nil), 3)
}

func TestPerformanceStatsHistory(t *testing.T) {
	ps := debugui.NewPerformanceStatsComponent(4)
	assert.Zero(t, ps.AverageFrameTime())

	ps.Record(0.010)
	ps.Record(0.020)
	assert.InDelta(t, 15.0, ps.AverageFrameTime(), 0.001)

	for i := 0; i < 4; i++ {
		ps.Record(0.005)
	}
	assert.InDelta(t, 5.0, ps.AverageFrameTime(), 0.001)
}

func TestPlugin(t *testing.T) {
	a := app.New(app.WithLogger(zap.NewNop()))
	a.AddPlugin(debugui.Plugin{EntitiesPerPage: 20, HistoryFrames: 60})
	require.NoError(t, a.Err())

	assert.Equal(t, []string{"debugui.items", "debugui.inspector"}, a.Schedule().Systems(ecs.Render))
	assert.True(t, ecs.HasResource[debugui.ImguiInputState](a.World()))
	assert.True(t, ecs.HasResource[ecs.CommandHistory](a.World()))

	windows := ecs.MustQuery[struct {
		Browser *debugui.EntityBrowserComponent
		_       ecs.With[debugui.DebugWindow]
	}](a.World())
	assert.Equal(t, 1, windows.Count())
}

func TestApplyEdit(t *testing.T) {
	w, entities := newWorld()
	e := entities[0]

	for _, x := range []float32{1, 12, 123} {
		require.NoError(t, debugui.ApplyEdit(w, e, Position{X: x}))
	}
	pos, _ := ecs.Get[Position](w, e)
	assert.Equal(t, float32(123), pos.X)

	h := debugui.History(w)
	assert.Equal(t, 1, h.Len(), "keystrokes on one component merge")
	require.NoError(t, h.Undo(w))
	pos, _ = ecs.Get[Position](w, e)
	assert.Equal(t, Position{}, *pos)

	err := debugui.ApplyEdit(w, entities[1], Velocity{DX: 1})
	assert.ErrorIs(t, err, ecs.ErrComponentNotFound)
	assert.False(t, ecs.Has[Velocity](w, entities[1]))
}

type Transform struct {
	Position
	Scale  float32
	Parent *Position
	Tags   []string
	hidden int
}

func TestInspectableFields(t *testing.T) {
	fields := debugui.InspectableFields(reflect.TypeOf(Transform{}))

	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"X", "Y", "Scale", "Parent", "Tags"}, names)
	assert.Equal(t, []int{0, 1}, fields[1].Index)
	assert.True(t, fields[2].Editable)
	assert.False(t, fields[4].Editable)

	assert.Empty(t, debugui.InspectableFields(reflect.TypeOf(0)))
	assert.Equal(t, fields, debugui.InspectableFields(reflect.TypeOf(Transform{})))
}
