package tui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/roomrush/internal/engine"
	"github.com/Veraticus/roomrush/internal/model"
)

var testConditions = []model.Condition{
	{CommunityName: "Harbor Court", HouseType: model.HouseTypeOneRoom},
	{CommunityName: "Quiet Gardens", FloorRange: "3-6", HouseType: model.HouseTypeTwoRoom},
}

func testModel(cancel context.CancelFunc) Model {
	cfg := defaultConfig()
	WithRun("张三", "http", testConditions)(&cfg)
	WithSize(100, 40)(&cfg)
	return newModel(cfg, cancel)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(Model)
	require.True(t, ok)
	return updated, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_Countdown(t *testing.T) {
	m := testModel(nil)

	m, _ = update(t, m, eventMsg{model.Event{
		State:     model.StateWaitingForStart,
		Remaining: 65 * time.Second,
		Message:   "Waiting for start 00:01:05",
		Condition: -1,
	}})

	view := m.View()
	assert.Contains(t, view, "Starts in 00:01:05")
	assert.Contains(t, view, "applicant 张三")
	assert.Empty(t, m.events, "countdown ticks stay out of the log")
}

func TestModel_EventsAndConditions(t *testing.T) {
	m := testModel(nil)

	m, _ = update(t, m, eventMsg{model.Event{State: model.StateResolving, Level: model.LevelInfo, Message: "Trying condition Quiet Gardens", Condition: 1}})
	m, _ = update(t, m, eventMsg{model.Event{State: model.StateClaiming, Level: model.LevelWarning, Message: "Room already taken", RoomID: "Q-7", Condition: 1}})

	require.Len(t, m.events, 2)
	assert.Equal(t, 1, m.condition)
	view := m.View()
	assert.Contains(t, view, "▶ 2. Quiet Gardens")
	assert.Contains(t, view, "Room already taken [Q-7]")
}

func TestModel_MaxEvents(t *testing.T) {
	m := testModel(nil)
	m.config.MaxEvents = 3

	for i := 0; i < 5; i++ {
		m, _ = update(t, m, eventMsg{model.Event{State: model.StateClaiming, Message: string(rune('a' + i)), Condition: -1}})
	}

	require.Len(t, m.events, 3)
	assert.Equal(t, "c", m.events[0].Message)
}

func TestModel_QuitStopsRunFirst(t *testing.T) {
	cancelled := false
	m := testModel(func() { cancelled = true })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, cancelled)
	assert.False(t, isQuit(cmd), "waits for the run to report")
	assert.Contains(t, m.View(), "Stopping...")

	m, cmd = update(t, m, runFinishedMsg{result: engine.RunResult{Outcome: model.OutcomeCancelled, Condition: -1}})
	assert.True(t, isQuit(cmd))
	result, ok := m.Result()
	require.True(t, ok)
	assert.Equal(t, model.OutcomeCancelled, result.Outcome)
}

func TestModel_ResultStaysUntilQuit(t *testing.T) {
	m := testModel(nil)

	m, cmd := update(t, m, runFinishedMsg{result: engine.RunResult{
		Outcome:   model.OutcomeClaimed,
		RoomID:    "H-3",
		Condition: 0,
		Attempts:  2,
	}})
	assert.False(t, isQuit(cmd))
	assert.Equal(t, model.StateClaimed, m.state)

	view := m.View()
	assert.Contains(t, view, "CLAIMED")
	assert.Contains(t, view, "Room: H-3")
	assert.Contains(t, view, "Claim attempts: 2")

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd))
}

func TestModel_ResultShowsError(t *testing.T) {
	m := testModel(nil)
	m, _ = update(t, m, runFinishedMsg{result: engine.RunResult{
		Outcome:   model.OutcomeCredentialInvalid,
		Err:       errors.New("session credential rejected by portal"),
		Condition: -1,
	}})
	assert.Equal(t, model.StateFailed, m.state)
	assert.Contains(t, m.View(), "session credential rejected by portal")
}

func TestModel_ForceQuit(t *testing.T) {
	cancelled := false
	m := testModel(func() { cancelled = true })

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, cancelled)
	assert.True(t, isQuit(cmd))
}

func TestSink_NeverBlocks(t *testing.T) {
	sink := NewSink()
	for i := 0; i < sinkBuffer+10; i++ {
		sink.Emit(model.Event{Message: "queued"})
	}
	assert.Len(t, sink.events, sinkBuffer)
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport := engine.NewMockTransport("A-77")
	transport.Candidates["Harbor Court"] = []string{"H-1"}
	transport.Claims["H-1"] = []engine.MockClaim{{Outcome: model.ClaimClaimed}}

	input, keys := io.Pipe()
	defer keys.Close()

	sink := NewSink()
	pressQuit := engine.SinkFunc(func(e model.Event) {
		if e.State == model.StateClaimed {
			go func() { _, _ = keys.Write([]byte("q")) }()
		}
	})

	cfg := engine.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	orchestrator := engine.NewWithConfig(transport, engine.MultiSink{sink, pressQuit}, cfg)

	result, err := Run(ctx, orchestrator, sink, engine.Request{
		Applicant:  "张三",
		Conditions: testConditions[:1],
	}, RunOptions{Input: input, Output: &bytes.Buffer{}}, WithRun("张三", "mock", testConditions[:1]))

	require.NoError(t, err)
	assert.Equal(t, model.OutcomeClaimed, result.Outcome)
	assert.Equal(t, "H-1", result.RoomID)
}

func TestRenderLog_Empty(t *testing.T) {
	m := testModel(nil)
	assert.True(t, strings.Contains(m.renderLog(), "Waiting for the first event"))
}
