package debugui

import (
	"reflect"
	"sync"
)

// Field is one leaf of a component the inspector can show. Fields of embedded
// structs are promoted into their parent's list.
type Field struct {
	Name     string
	Index    []int
	Type     reflect.Type
	Editable bool
}

var fieldCache sync.Map // reflect.Type -> []Field

// InspectableFields lists the exported fields of a component type, flattening
// embedded structs. Pointer fields are dereferenced for display only.
func InspectableFields(t reflect.Type) []Field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]Field)
	}
	var fields []Field
	if t.Kind() == reflect.Struct {
		fields = collectFields(t, nil)
	}
	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]Field)
}

func collectFields(t reflect.Type, prefix []int) []Field {
	var out []Field
	for _, sf := range reflect.VisibleFields(t) {
		if len(sf.Index) != 1 {
			continue
		}
		index := append(append([]int(nil), prefix...), sf.Index[0])
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			out = append(out, collectFields(sf.Type, index)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		out = append(out, Field{
			Name:     sf.Name,
			Index:    index,
			Type:     sf.Type,
			Editable: editable(sf.Type.Kind()),
		})
	}
	return out
}

func editable(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool, reflect.String:
		return true
	}
	return false
}
