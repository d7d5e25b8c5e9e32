package debugui

import (
	"github.com/plus3/luminara/ecs"
)

// EntityBrowserComponent lists live entities with paging, filtering and sorting.
type EntityBrowserComponent struct {
	cache              *EntityBrowserCache
	selectedEntity     ecs.Entity
	hasSelection       bool
	filterText         string
	filterComponent    string
	maxEntitiesPerPage int
	currentPage        int
}

// ComponentInspectorComponent edits the components of the entity selected in
// the entity browser.
type ComponentInspectorComponent struct {
	selectedEntity ecs.Entity
	lastError      string
}

// TableViewerComponent lists component tables and their sizes.
type TableViewerComponent struct {
	cache         *TableViewerCache
	selectedTable *ecs.ComponentID
	sortColumn    int
	sortAscending bool
}

// PerformanceStatsComponent plots frame times and shows world and schedule statistics.
type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
	filled        int
}

// QueryDebuggerComponent counts the entities matching a set of component types.
type QueryDebuggerComponent struct {
	selectedComponentTypes map[string]bool
	cache                  *QueryDebuggerCache
}
