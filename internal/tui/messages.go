package tui

import (
	"github.com/Veraticus/roomrush/internal/engine"
	"github.com/Veraticus/roomrush/internal/model"
)

// eventMsg carries one engine event into the program.
type eventMsg struct {
	event model.Event
}

// runFinishedMsg reports the orchestrator's terminal result.
type runFinishedMsg struct {
	result engine.RunResult
}
