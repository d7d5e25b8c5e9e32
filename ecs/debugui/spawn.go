package debugui

import "github.com/plus3/luminara/ecs"

// DebugWindow marks the entity that carries the inspector windows.
type DebugWindow struct{}

// DebugUIBundle is the full set of inspector windows.
type DebugUIBundle struct {
	Window    DebugWindow
	Browser   EntityBrowserComponent
	Inspector ComponentInspectorComponent
	Tables    TableViewerComponent
	Perf      PerformanceStatsComponent
	Query     QueryDebuggerComponent
}

// NewDebugUIBundle builds the windows with the given paging and history sizes.
func NewDebugUIBundle(entitiesPerPage, historyFrames int) DebugUIBundle {
	return DebugUIBundle{
		Browser:   NewEntityBrowserComponent(entitiesPerPage),
		Inspector: NewComponentInspectorComponent(),
		Tables:    NewTableViewerComponent(),
		Perf:      NewPerformanceStatsComponent(historyFrames),
		Query:     NewQueryDebuggerComponent(),
	}
}

// SpawnDebugUI spawns an entity carrying every inspector window.
func SpawnDebugUI(w *ecs.World) (ecs.Entity, error) {
	return ecs.SpawnBundle(w, NewDebugUIBundle(100, 120))
}

// RegisterDebugUIComponents registers the component types used by this package.
func RegisterDebugUIComponents(w *ecs.World) {
	ecs.RegisterComponent[ImguiItem](w)
	if _, err := ecs.RegisterBundle[DebugUIBundle](w); err != nil {
		panic(err)
	}
}
