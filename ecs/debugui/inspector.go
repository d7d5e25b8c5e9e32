package debugui

import (
	"github.com/plus3/luminara/ecs"
)

type debugWindows struct {
	Browser   *EntityBrowserComponent      `ecs:"mut,optional"`
	Inspector *ComponentInspectorComponent `ecs:"mut,optional"`
	Tables    *TableViewerComponent        `ecs:"mut,optional"`
	Perf      *PerformanceStatsComponent   `ecs:"mut,optional"`
	Query     *QueryDebuggerComponent      `ecs:"mut,optional"`
	_         ecs.With[DebugWindow]
}

// InspectorSystem draws the inspector windows of every DebugWindow entity.
// It holds the World, so it runs exclusively.
type InspectorSystem struct {
	World   *ecs.World
	Windows ecs.Query[debugWindows]

	schedule *ecs.Schedule
}

// NewInspectorSystem returns an InspectorSystem that reports the timings of schedule.
func NewInspectorSystem(schedule *ecs.Schedule) *InspectorSystem {
	return &InspectorSystem{schedule: schedule}
}

func (s *InspectorSystem) Execute(frame *ecs.UpdateFrame) {
	for _, win := range s.Windows.IterMut() {
		if win.Tables != nil {
			if name, ok := win.Tables.Render(s.World); ok && win.Browser != nil {
				win.Browser.FilterByComponent(name)
			}
		}
		if win.Browser != nil {
			win.Browser.Render(s.World)
			if win.Inspector != nil {
				selected, ok := win.Browser.SelectedEntity()
				win.Inspector.Render(s.World, selected, ok)
			}
		}
		if win.Perf != nil {
			win.Perf.Render(s.World, s.schedule, float32(frame.DeltaTime))
		}
		if win.Query != nil {
			win.Query.Render(s.World)
		}
	}
}
