// Package tui renders a live monitor for a selection run with bubbletea.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/roomrush/internal/engine"
	"github.com/Veraticus/roomrush/internal/model"
	"github.com/Veraticus/roomrush/internal/tui/themes"
)

// Model holds the monitor state. The run itself lives outside the program;
// the model only sees its events and final result.
type Model struct {
	theme     themes.Theme
	cancel    context.CancelFunc
	result    *engine.RunResult
	help      help.Model
	spinner   spinner.Model
	log       viewport.Model
	keymap    KeyMap
	config    Config
	state     model.RunState
	events    []model.Event
	remaining time.Duration
	condition int
	width     int
	height    int
	stopping  bool
	quitting  bool
	follow    bool
}

// newModel creates a model. cancel stops the run when the operator quits.
func newModel(cfg Config, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cfg.Theme.StatusInfo

	m := Model{
		theme:     cfg.Theme,
		cancel:    cancel,
		help:      help.New(),
		spinner:   s,
		log:       viewport.New(cfg.Width, 10),
		keymap:    DefaultKeyMap(),
		config:    cfg,
		state:     model.StateIdle,
		condition: -1,
		width:     cfg.Width,
		height:    cfg.Height,
		follow:    true,
	}
	m.help.ShowAll = cfg.ShowHelp
	m.handleResize()
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		return m, nil

	case eventMsg:
		m.applyEvent(msg.event)
		return m, nil

	case runFinishedMsg:
		result := msg.result
		m.result = &result
		m.state = stateFor(result.Outcome)
		if m.stopping {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.result != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.ForceQuit):
		m.stop()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Quit):
		if m.result != nil {
			m.quitting = true
			return m, tea.Quit
		}
		// Quit once the run reports its cancelled result.
		m.stop()
		return m, nil

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.handleResize()
		return m, nil

	case key.Matches(msg, m.keymap.Bottom):
		m.follow = true
		m.log.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	m.follow = m.log.AtBottom()
	return m, cmd
}

func (m *Model) stop() {
	if m.stopping {
		return
	}
	m.stopping = true
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) applyEvent(e model.Event) {
	m.state = e.State
	if e.Condition >= 0 {
		m.condition = e.Condition
	}

	if e.State == model.StateWaitingForStart && e.Remaining > 0 {
		m.remaining = e.Remaining
		return
	}
	m.remaining = 0

	m.events = append(m.events, e)
	if limit := m.config.MaxEvents; limit > 0 && len(m.events) > limit {
		m.events = m.events[len(m.events)-limit:]
	}
	m.log.SetContent(m.renderLog())
	if m.follow {
		m.log.GotoBottom()
	}
}

// handleResize sizes the event log to whatever the header and footer leave.
func (m *Model) handleResize() {
	chrome := 6 + len(m.config.Conditions)
	if m.help.ShowAll {
		chrome += 4
	}
	height := m.height - chrome
	if height < 3 {
		height = 3
	}
	m.log.Width = m.width
	m.log.Height = height
	m.help.Width = m.width
	m.log.SetContent(m.renderLog())
	if m.follow {
		m.log.GotoBottom()
	}
}

// Result returns the run result once it has arrived.
func (m Model) Result() (engine.RunResult, bool) {
	if m.result == nil {
		return engine.RunResult{}, false
	}
	return *m.result, true
}

func stateFor(outcome model.RunOutcome) model.RunState {
	switch outcome {
	case model.OutcomeClaimed:
		return model.StateClaimed
	case model.OutcomeCancelled:
		return model.StateCancelled
	case model.OutcomeExhausted:
		return model.StateExhausted
	default:
		return model.StateFailed
	}
}
