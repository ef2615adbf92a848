package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/roomrush/internal/gate"
	"github.com/Veraticus/roomrush/internal/model"
)

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatus(),
	}
	if len(m.config.Conditions) > 0 {
		sections = append(sections, m.renderConditions())
	}
	sections = append(sections, m.theme.BorderedBox.Render(m.log.View()))
	if m.result != nil {
		sections = append(sections, m.renderResult())
	}
	sections = append(sections, m.help.View(m.keymap))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("🏠 " + m.config.Title)
	var details []string
	if m.config.Applicant != "" {
		details = append(details, "applicant "+m.config.Applicant)
	}
	if m.config.Mode != "" {
		details = append(details, "mode "+m.config.Mode)
	}
	if len(details) == 0 {
		return title
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, m.theme.Subtitle.Render(strings.Join(details, " · ")))
}

func (m Model) renderStatus() string {
	state := string(m.state)
	switch {
	case m.result != nil:
		return m.outcomeStyle().Render(state)
	case m.remaining > 0:
		return m.spinner.View() + " " + m.theme.Countdown.Render("Starts in "+gate.FormatRemaining(m.remaining))
	case m.stopping:
		return m.spinner.View() + " " + m.theme.StatusWarning.Render("Stopping...")
	default:
		return m.spinner.View() + " " + m.theme.StatusInfo.Render(state)
	}
}

func (m Model) renderConditions() string {
	lines := make([]string, 0, len(m.config.Conditions))
	for i, c := range m.config.Conditions {
		line := fmt.Sprintf("%d. %s", i+1, c.String())
		switch {
		case i == m.condition && m.result == nil:
			line = m.theme.Current.Render("▶ " + line)
		case m.condition >= 0 && i < m.condition:
			line = m.theme.StatusPending.Render("  " + line)
		default:
			line = m.theme.Normal.Render("  " + line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLog() string {
	if len(m.events) == 0 {
		return m.theme.StatusPending.Render("Waiting for the first event...")
	}
	lines := make([]string, 0, len(m.events))
	for _, e := range m.events {
		lines = append(lines, m.renderEvent(e))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEvent(e model.Event) string {
	style := m.theme.StatusInfo
	switch e.Level {
	case model.LevelSuccess:
		style = m.theme.StatusSuccess
	case model.LevelWarning:
		style = m.theme.StatusWarning
	case model.LevelError:
		style = m.theme.StatusError
	}
	msg := e.Message
	if e.RoomID != "" {
		msg += " [" + e.RoomID + "]"
	}
	return m.theme.StatusPending.Render(e.Time.Format("15:04:05.000")) + " " + style.Render(msg)
}

func (m Model) renderResult() string {
	r := m.result
	var body []string
	body = append(body, m.outcomeStyle().Render(string(r.Outcome)))
	if r.RoomID != "" {
		body = append(body, "Room: "+m.theme.Bold.Render(r.RoomID))
	}
	if r.Condition >= 0 && r.Condition < len(m.config.Conditions) {
		body = append(body, "Condition: "+m.config.Conditions[r.Condition].String())
	}
	body = append(body, fmt.Sprintf("Claim attempts: %d", r.Attempts))
	if r.Err != nil {
		body = append(body, m.theme.StatusError.Render(r.Err.Error()))
	}
	body = append(body, m.theme.StatusPending.Render("Press q to exit"))
	return m.theme.RoundedBox.Render(strings.Join(body, "\n"))
}

func (m Model) outcomeStyle() lipgloss.Style {
	if m.result == nil {
		return m.theme.StatusInfo
	}
	switch m.result.Outcome {
	case model.OutcomeClaimed:
		return m.theme.StatusSuccess
	case model.OutcomeCancelled, model.OutcomeExhausted:
		return m.theme.StatusWarning
	default:
		return m.theme.StatusError
	}
}
