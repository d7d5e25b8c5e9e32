package debugui

import (
	"fmt"
	"sort"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/plus3/luminara/ecs"
)

type TableInfo struct {
	ID          ecs.ComponentID
	Name        string
	EntityCount int
}

type TableViewerCache struct {
	tables        []TableInfo
	sortColumn    int
	sortAscending bool
}

func NewTableViewerComponent() TableViewerComponent {
	return TableViewerComponent{
		cache: &TableViewerCache{
			sortColumn:    2,
			sortAscending: false,
		},
		sortColumn:    2,
		sortAscending: false,
	}
}

// Render draws the table list and returns the name of a table the user clicked.
func (tv *TableViewerComponent) Render(w *ecs.World) (string, bool) {
	if !imgui.BeginV("Table Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return "", false
	}

	tv.Refresh(w)

	maxEntityCount := 0
	for _, t := range tv.cache.tables {
		maxEntityCount = max(maxEntityCount, t.EntityCount)
	}

	var clicked string
	var ok bool

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("ComponentTables", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("ID")
		imgui.TableSetupColumn("Component")
		imgui.TableSetupColumn("Entity Count")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			tv.SortBy(int(spec.ColumnIndex()), spec.SortDirection() == imgui.SortDirectionAscending)
			sortSpecs.SetSpecsDirty(false)
		}

		for _, t := range tv.cache.tables {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := tv.selectedTable != nil && *tv.selectedTable == t.ID
			if imgui.SelectableBoolV(fmt.Sprintf("%d", t.ID), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				id := t.ID
				tv.selectedTable = &id
				clicked, ok = t.Name, true
			}

			imgui.TableNextColumn()
			imgui.Text(t.Name)

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", t.EntityCount))

			if maxEntityCount > 0 {
				barWidth := float32(t.EntityCount) / float32(maxEntityCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}
		}

		imgui.EndTable()
	}

	imgui.End()
	return clicked, ok
}

// Refresh reloads the table sizes from the World.
func (tv *TableViewerComponent) Refresh(w *ecs.World) {
	stats := w.Stats()
	tv.cache.tables = tv.cache.tables[:0]
	for _, t := range stats.Tables {
		tv.cache.tables = append(tv.cache.tables, TableInfo{ID: t.ID, Name: t.Name, EntityCount: t.Count})
	}
	tv.sortTables()
}

// Tables returns the rows from the last Refresh in display order.
func (tv *TableViewerComponent) Tables() []TableInfo {
	return tv.cache.tables
}

// SortBy orders the rows by column: 0 id, 1 name, 2 entity count.
func (tv *TableViewerComponent) SortBy(column int, ascending bool) {
	tv.cache.sortColumn = column
	tv.cache.sortAscending = ascending
	tv.sortColumn = column
	tv.sortAscending = ascending
	tv.sortTables()
}

func (tv *TableViewerComponent) sortTables() {
	sort.SliceStable(tv.cache.tables, func(i, j int) bool {
		a, b := tv.cache.tables[i], tv.cache.tables[j]
		if !tv.cache.sortAscending {
			a, b = b, a
		}

		switch tv.cache.sortColumn {
		case 0:
			return a.ID < b.ID
		case 1:
			return a.Name < b.Name
		default:
			return a.EntityCount < b.EntityCount
		}
	})
}
