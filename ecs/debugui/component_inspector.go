package debugui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/plus3/luminara/ecs"
)

func NewComponentInspectorComponent() ComponentInspectorComponent {
	return ComponentInspectorComponent{}
}

func (ci *ComponentInspectorComponent) Render(w *ecs.World, selected ecs.Entity, ok bool) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	if !ok {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}
	ci.selectedEntity = selected

	if !w.IsAlive(selected) {
		imgui.Text(fmt.Sprintf("Entity %s is no longer alive", selected))
		imgui.End()
		return
	}

	ci.renderHistory(w)

	imgui.Text(fmt.Sprintf("Entity: %s", selected))
	imgui.Text(fmt.Sprintf("Index %d, generation %d", selected.Index(), selected.Generation()))
	imgui.Separator()

	for _, component := range w.ComponentsOf(selected) {
		val := reflect.ValueOf(component).Elem()
		compType := val.Type()

		if imgui.TreeNodeStr(compType.String()) {
			edit := reflect.New(compType).Elem()
			edit.Set(val)
			edited := false
			ci.renderValue(edit, func() { edited = true })
			if edited {
				ci.report(ApplyEdit(w, selected, edit.Interface()))
			}
			imgui.TreePop()
		}
	}

	imgui.End()
}

func (ci *ComponentInspectorComponent) renderHistory(w *ecs.World) {
	h := History(w)
	if imgui.Button("Undo") && h.CanUndo() {
		ci.report(h.Undo(w))
	}
	imgui.SameLine()
	if imgui.Button("Redo") && h.CanRedo() {
		ci.report(h.Redo(w))
	}
	if desc, ok := h.UndoDescription(); ok {
		imgui.SameLine()
		imgui.Text(desc)
	}
	if ci.lastError != "" {
		imgui.Text(ci.lastError)
	}
	imgui.Separator()
}

func (ci *ComponentInspectorComponent) report(err error) {
	if err != nil {
		ci.lastError = err.Error()
		return
	}
	ci.lastError = ""
}

// History returns the world's CommandHistory, inserting an empty one first if
// needed. Callers run on the exclusive path.
func History(w *ecs.World) *ecs.CommandHistory {
	if h, ok := ecs.GetResourceMut[ecs.CommandHistory](w); ok {
		return h
	}
	ecs.InsertResource(w, *ecs.NewCommandHistory(0))
	h, _ := ecs.GetResourceMut[ecs.CommandHistory](w)
	return h
}

// ApplyEdit overwrites e's component of value's type through the world's
// CommandHistory, so the edit can be undone. Repeated edits of one component
// merge into a single undo step.
func ApplyEdit(w *ecs.World, e ecs.Entity, value any) error {
	return History(w).Execute(w, &ecs.ModifyComponentCommand{Entity: e, Value: value})
}

// renderValue draws val's fields. val is addressable; touch is called after
// any edit.
func (ci *ComponentInspectorComponent) renderValue(val reflect.Value, touch func()) {
	if val.Kind() != reflect.Struct {
		ci.renderField("value", val, touch)
		return
	}
	for _, field := range InspectableFields(val.Type()) {
		fieldVal := val.FieldByIndex(field.Index)
		if field.Type.Kind() == reflect.Pointer {
			if fieldVal.IsNil() {
				imgui.Text(fmt.Sprintf("%s: nil", field.Name))
				continue
			}
			fieldVal = fieldVal.Elem()
		}
		ci.renderField(field.Name, fieldVal, touch)
	}
}

func (ci *ComponentInspectorComponent) renderField(name string, val reflect.Value, touch func()) {
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return
	}
	id := fmt.Sprintf("##%s", name)

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(id, &v) && val.CanSet() && !val.OverflowInt(int64(v)) {
			val.SetInt(int64(v))
			touch()
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(id, &v) && v >= 0 && val.CanSet() && !val.OverflowUint(uint64(v)) {
			val.SetUint(uint64(v))
			touch()
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(id, &v) && val.CanSet() {
			val.SetFloat(float64(v))
			touch()
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name, &v) && val.CanSet() {
			val.SetBool(v)
			touch()
		}

	case reflect.String:
		v := val.String()
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(id, "", &v, imgui.InputTextFlagsNone, nil) && val.CanSet() {
			val.SetString(v)
			touch()
		}

	case reflect.Struct:
		if imgui.TreeNodeStr(name) {
			ci.renderValue(val, touch)
			imgui.TreePop()
		}

	case reflect.Slice, reflect.Array:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	case reflect.Func:
		imgui.Text(fmt.Sprintf("%s: func", name))

	default:
		if val.CanInterface() {
			imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
		} else {
			imgui.Text(fmt.Sprintf("%s: %s", name, val.Type()))
		}
	}
}
