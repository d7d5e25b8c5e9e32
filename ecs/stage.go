package ecs

import (
	"fmt"
	"strings"
)

// Stage is a named phase of a frame. Stages run in declaration order.
type Stage int

const (
	Startup Stage = iota
	PreUpdate
	Update
	FixedUpdate
	PostUpdate
	PreRender
	Render
	PostRender

	stageCount
)

var stageNames = [stageCount]string{
	Startup:     "Startup",
	PreUpdate:   "PreUpdate",
	Update:      "Update",
	FixedUpdate: "FixedUpdate",
	PostUpdate:  "PostUpdate",
	PreRender:   "PreRender",
	Render:      "Render",
	PostRender:  "PostRender",
}

func (s Stage) String() string {
	if s.Valid() {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Valid reports whether s is one of the declared stages.
func (s Stage) Valid() bool {
	return s >= Startup && s < stageCount
}

// FrameStages returns the stages run every frame, in order.
func FrameStages() []Stage {
	return []Stage{PreUpdate, Update, FixedUpdate, PostUpdate, PreRender, Render, PostRender}
}

// ParseStage looks a stage up by name, ignoring case.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if strings.EqualFold(n, name) {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStage, name)
}
