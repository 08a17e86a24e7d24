package tui

import (
	"time"

	"github.com/Veraticus/trex/internal/tui/themes"
)

// DefaultIntervalStep is how much +/- change the polling interval.
const DefaultIntervalStep = 500 * time.Millisecond

// Config holds TUI configuration.
type Config struct {
	Theme        themes.Theme
	Width        int
	Height       int
	IntervalStep time.Duration
	// AutoStart begins capturing as soon as a region is set.
	AutoStart bool
	ShowHelp  bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:        themes.Default,
		Width:        80,
		Height:       24,
		IntervalStep: DefaultIntervalStep,
		AutoStart:    true,
		ShowHelp:     false,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithAutoStart controls whether capturing starts once a region is set.
func WithAutoStart(enabled bool) Option {
	return func(c *Config) {
		c.AutoStart = enabled
	}
}

// WithIntervalStep sets the +/- interval adjustment.
func WithIntervalStep(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.IntervalStep = d
		}
	}
}
