package debugui

import (
	"go.uber.org/zap"

	"github.com/plus3/luminara/app"
	"github.com/plus3/luminara/ecs"
)

// Plugin adds the ImGui item system and the inspector windows to the Render
// stage. An ImGui frame must be open while the App updates; see the ebiten
// subpackage for a runner that does this.
type Plugin struct {
	EntitiesPerPage int
	HistoryFrames   int
}

func (Plugin) Name() string    { return "debugui" }
func (Plugin) Version() string { return "1.0.0" }

func (p Plugin) Build(a *app.App) {
	w := a.World()
	RegisterDebugUIComponents(w)
	a.InsertResource(ImguiInputState{})
	a.InsertResource(*ecs.NewCommandHistory(0))

	if _, err := ecs.SpawnBundle(w, NewDebugUIBundle(p.EntitiesPerPage, p.HistoryFrames)); err != nil {
		a.Logger().Error("spawning debug windows failed", zap.Error(err))
	}

	a.AddSystem(ecs.Render, &ImguiSystem{}, ecs.WithName("debugui.items"))
	a.AddSystem(ecs.Render, NewInspectorSystem(a.Schedule()), ecs.WithName("debugui.inspector"))
}
