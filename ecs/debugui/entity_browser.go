package debugui

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/plus3/luminara/ecs"
)

type EntityInfo struct {
	ID             ecs.Entity
	ComponentTypes []string
	ComponentCount int
}

type EntityBrowserCache struct {
	entities       []EntityInfo
	lastEntityLen  int
	lastTableCount int
	sortColumn     int
	sortAscending  bool
}

func NewEntityBrowserComponent(maxEntitiesPerPage int) EntityBrowserComponent {
	if maxEntitiesPerPage < 1 {
		maxEntitiesPerPage = 100
	}
	return EntityBrowserComponent{
		cache: &EntityBrowserCache{
			sortColumn:    0,
			sortAscending: true,
		},
		maxEntitiesPerPage: maxEntitiesPerPage,
	}
}

func (eb *EntityBrowserComponent) Render(w *ecs.World) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	if imgui.Button("Refresh") {
		eb.cache.entities = nil
	}
	imgui.SameLine()
	eb.rebuildCacheIfNeeded(w)

	imgui.InputTextWithHint("##search", "Search...", &eb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.filterText = ""
		eb.filterComponent = ""
	}
	if eb.filterComponent != "" {
		imgui.Text("Table: " + eb.filterComponent)
	}

	filteredEntities := eb.FilteredEntities()

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Count")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.SortBy(int(spec.ColumnIndex()), spec.SortDirection() == imgui.SortDirectionAscending)
			sortSpecs.SetSpecsDirty(false)
			filteredEntities = eb.FilteredEntities()
		}

		startIdx := eb.currentPage * eb.maxEntitiesPerPage
		if startIdx > len(filteredEntities) {
			eb.currentPage, startIdx = 0, 0
		}
		endIdx := min(startIdx+eb.maxEntitiesPerPage, len(filteredEntities))

		for _, entity := range filteredEntities[startIdx:endIdx] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := eb.hasSelection && eb.selectedEntity == entity.ID
			if imgui.SelectableBoolV(entity.ID.String(), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				eb.Select(entity.ID)
			}

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", entity.ComponentCount))
		}

		imgui.EndTable()
	}

	if len(filteredEntities) > eb.maxEntitiesPerPage {
		totalPages := (len(filteredEntities) + eb.maxEntitiesPerPage - 1) / eb.maxEntitiesPerPage
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.currentPage+1, totalPages, len(filteredEntities)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.currentPage > 0 {
			eb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.currentPage < totalPages-1 {
			eb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(filteredEntities)))
	}

	imgui.End()
}

// rebuildCacheIfNeeded rebuilds the rows when the entity count or the set of
// tables changed.
func (eb *EntityBrowserComponent) rebuildCacheIfNeeded(w *ecs.World) {
	stats := w.Stats()
	if eb.cache.lastEntityLen != stats.EntityCount || eb.cache.lastTableCount != stats.ComponentTypeCount {
		eb.cache.entities = nil
	}
	if eb.cache.entities == nil {
		eb.Rebuild(w)
		eb.cache.lastEntityLen = stats.EntityCount
		eb.cache.lastTableCount = stats.ComponentTypeCount
	}
}

// Rebuild snapshots every live entity and its component types.
func (eb *EntityBrowserComponent) Rebuild(w *ecs.World) {
	eb.cache.entities = make([]EntityInfo, 0, w.Len())

	for e := range w.Entities() {
		components := w.ComponentsOf(e)
		componentTypes := make([]string, len(components))
		for i, c := range components {
			componentTypes[i] = reflect.TypeOf(c).Elem().String()
		}
		eb.cache.entities = append(eb.cache.entities, EntityInfo{
			ID:             e,
			ComponentTypes: componentTypes,
			ComponentCount: len(componentTypes),
		})
	}

	eb.sortEntities()
}

// SortBy orders the rows by column: 0 entity, 1 component names, 2 component count.
func (eb *EntityBrowserComponent) SortBy(column int, ascending bool) {
	eb.cache.sortColumn = column
	eb.cache.sortAscending = ascending
	eb.sortEntities()
}

func (eb *EntityBrowserComponent) sortEntities() {
	sort.SliceStable(eb.cache.entities, func(i, j int) bool {
		a, b := eb.cache.entities[i], eb.cache.entities[j]
		if !eb.cache.sortAscending {
			a, b = b, a
		}

		switch eb.cache.sortColumn {
		case 1:
			return strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case 2:
			return a.ComponentCount < b.ComponentCount
		default:
			return a.ID < b.ID
		}
	})
}

// SetFilter restricts the rows to those whose entity or component names
// contain text, case-insensitively.
func (eb *EntityBrowserComponent) SetFilter(text string) {
	eb.filterText = text
	eb.currentPage = 0
}

// FilterByComponent restricts the rows to entities holding the named component.
func (eb *EntityBrowserComponent) FilterByComponent(name string) {
	eb.filterComponent = name
	eb.currentPage = 0
}

// FilteredEntities returns the cached rows that pass the current filters.
func (eb *EntityBrowserComponent) FilteredEntities() []EntityInfo {
	if eb.filterText == "" && eb.filterComponent == "" {
		return eb.cache.entities
	}

	filtered := make([]EntityInfo, 0, len(eb.cache.entities))
	filterLower := strings.ToLower(eb.filterText)

	for _, entity := range eb.cache.entities {
		if eb.filterComponent != "" && !slices.Contains(entity.ComponentTypes, eb.filterComponent) {
			continue
		}

		if eb.filterText != "" {
			idStr := entity.ID.String()
			componentsStr := strings.ToLower(strings.Join(entity.ComponentTypes, " "))

			if !strings.Contains(idStr, filterLower) && !strings.Contains(componentsStr, filterLower) {
				continue
			}
		}

		filtered = append(filtered, entity)
	}

	return filtered
}

func (eb *EntityBrowserComponent) Select(e ecs.Entity) {
	eb.selectedEntity = e
	eb.hasSelection = true
}

// SelectedEntity returns the selected entity, if any.
func (eb *EntityBrowserComponent) SelectedEntity() (ecs.Entity, bool) {
	return eb.selectedEntity, eb.hasSelection
}
