package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/roomrush/internal/config"
	"github.com/Veraticus/roomrush/internal/model"
)

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 250_000_000, time.Local)
	tests := []struct {
		name  string
		event model.Event
		want  []string
	}{
		{"info", model.Event{Time: at, Level: model.LevelInfo, Message: "Trying condition"}, []string{"09:00:00.250", InfoIcon, "Trying condition"}},
		{"success with room", model.Event{Time: at, Level: model.LevelSuccess, Message: "Room claimed", RoomID: "R-9"}, []string{SuccessIcon, "Room claimed", "[R-9]"}},
		{"warning", model.Event{Time: at, Level: model.LevelWarning, Message: "Room already taken"}, []string{WarningIcon, "Room already taken"}},
		{"error", model.Event{Time: at, Level: model.LevelError, Message: "Session credential rejected"}, []string{ErrorIcon, "Session credential rejected"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := FormatEvent(tt.event)
			for _, want := range tt.want {
				assert.Contains(t, line, want)
			}
		})
	}
}

func TestEventPrinter_CountdownRewritesLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewEventPrinter(&buf)

	p.Emit(model.Event{State: model.StateWaitingForStart, Remaining: 2 * time.Second, Message: "Waiting for start 00:00:02"})
	p.Emit(model.Event{State: model.StateWaitingForStart, Remaining: time.Second, Message: "Waiting for start 00:00:01"})
	p.Emit(model.Event{State: model.StateWaitingForStart, Level: model.LevelSuccess, Message: "Start time reached"})
	p.Emit(model.Event{Level: model.LevelInfo, Message: "Trying condition"})

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\r"))
	assert.Equal(t, 3, strings.Count(out, "\n"), "countdown block is closed by a single newline")
	assert.Less(t, strings.Index(out, "00:00:01"), strings.Index(out, "Start time reached"))
}

func TestPrefetchBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewPrefetchBar(&buf, 2)

	bar.Update(1, 2, model.Condition{CommunityName: "Harbor Court"}, []string{"a", "b"})
	bar.Update(2, 2, model.Condition{CommunityName: "Quiet Gardens"}, nil)

	assert.Equal(t, 2, bar.Found())
}

func TestRenderValidation(t *testing.T) {
	assert.Contains(t, RenderValidation(config.Result{}), "Configuration is valid")

	out := RenderValidation(config.Result{Warnings: []string{"applicant.name is short"}})
	assert.Contains(t, out, "applicant.name is short")
	assert.Contains(t, out, "with warnings")

	out = RenderValidation(config.Result{Errors: []string{"portal.cookie is required"}})
	assert.Contains(t, out, "portal.cookie is required")
	assert.Contains(t, out, "will not start")
}
