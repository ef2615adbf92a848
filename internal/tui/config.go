package tui

import (
	"github.com/Veraticus/roomrush/internal/model"
	"github.com/Veraticus/roomrush/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme      themes.Theme
	Title      string
	Applicant  string
	Mode       string
	Conditions []model.Condition
	// MaxEvents bounds the event log; older lines are dropped.
	MaxEvents int
	Width     int
	Height    int
	ShowHelp  bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:     themes.Default,
		Title:     "roomrush",
		MaxEvents: 500,
		Width:     80,
		Height:    24,
	}
}

// WithTheme sets the color theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithRun describes the run shown in the header.
func WithRun(applicant, mode string, conditions []model.Condition) Option {
	return func(c *Config) {
		c.Applicant = applicant
		c.Mode = mode
		c.Conditions = conditions
	}
}

// WithSize sets the initial size used before the first resize message.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
