package debugui

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/plus3/luminara/ecs"
)

type QueryDebuggerCache struct {
	componentTypes []reflect.Type
	lastTableCount int
}

func NewQueryDebuggerComponent() QueryDebuggerComponent {
	return QueryDebuggerComponent{
		selectedComponentTypes: make(map[string]bool),
		cache: &QueryDebuggerCache{
			lastTableCount: -1,
		},
	}
}

func (qd *QueryDebuggerComponent) Render(w *ecs.World) {
	if !imgui.BeginV("Query Debugger", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	qd.rebuildCacheIfNeeded(w)

	imgui.Text("Select Component Types:")
	imgui.Separator()

	if imgui.Button("Clear All") {
		qd.selectedComponentTypes = make(map[string]bool)
	}

	for _, compType := range qd.cache.componentTypes {
		name := compType.String()
		selected := qd.selectedComponentTypes[name]
		if imgui.Checkbox(name, &selected) {
			qd.Toggle(name, selected)
		}
	}

	imgui.Separator()

	selectedTypes := qd.SelectedTypes()
	if len(selectedTypes) == 0 {
		imgui.Text("No component types selected")
		imgui.End()
		return
	}

	matching := MatchingEntities(w, selectedTypes)
	imgui.Text(fmt.Sprintf("Matching Entities: %d", len(matching)))

	if imgui.TreeNodeStr("Entities") {
		for i, e := range matching {
			if i == 256 {
				imgui.Text(fmt.Sprintf("... %d more", len(matching)-i))
				break
			}
			imgui.BulletText(e.String())
		}
		imgui.TreePop()
	}

	imgui.End()
}

func (qd *QueryDebuggerComponent) rebuildCacheIfNeeded(w *ecs.World) {
	components := w.Components()
	if qd.cache.lastTableCount == len(components) {
		return
	}
	qd.cache.lastTableCount = len(components)

	qd.cache.componentTypes = make([]reflect.Type, len(components))
	for i, info := range components {
		qd.cache.componentTypes[i] = info.Type
	}
	sort.Slice(qd.cache.componentTypes, func(i, j int) bool {
		return qd.cache.componentTypes[i].String() < qd.cache.componentTypes[j].String()
	})
}

// Toggle selects or deselects a component type by name.
func (qd *QueryDebuggerComponent) Toggle(name string, selected bool) {
	if selected {
		qd.selectedComponentTypes[name] = true
	} else {
		delete(qd.selectedComponentTypes, name)
	}
}

// SelectedTypes resolves the selected names against the known component types.
func (qd *QueryDebuggerComponent) SelectedTypes() []reflect.Type {
	var out []reflect.Type
	for _, t := range qd.cache.componentTypes {
		if qd.selectedComponentTypes[t.String()] {
			out = append(out, t)
		}
	}
	return out
}

// MatchingEntities returns the live entities that hold every type in types,
// ordered by entity.
func MatchingEntities(w *ecs.World, types []reflect.Type) []ecs.Entity {
	var matching []ecs.Entity
	for e := range w.Entities() {
		if hasAllTypes(w, e, types) {
			matching = append(matching, e)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i] < matching[j] })
	return matching
}

func hasAllTypes(w *ecs.World, e ecs.Entity, types []reflect.Type) bool {
	for _, t := range types {
		if !w.HasComponent(e, t) {
			return false
		}
	}
	return true
}
