// Package tui renders the interactive watch mode status view.
package tui

import (
	"context"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/tui/themes"
	"github.com/Veraticus/trex/internal/watch"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Controller is the part of watch.Manager the view drives.
type Controller interface {
	Snapshot() watch.Snapshot
	StartWatching(ctx context.Context) error
	BeginCapture(ctx context.Context) error
	StopCapture()
	ReselectRegion(ctx context.Context) error
	SetInterval(d time.Duration)
	Cancel()
}

// Model holds the TUI state.
type Model struct {
	ctx        context.Context
	controller Controller
	changes    <-chan struct{}
	lastError  error
	theme      themes.Theme
	help       help.Model
	spinner    spinner.Model
	keymap     KeyMap
	snapshot   watch.Snapshot
	pending    string
	config     Config
	width      int
	height     int
	quitting   bool
}

// newModel creates a new model with the given configuration.
func newModel(ctx context.Context, controller Controller, changes <-chan struct{}, cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = s.Style.Foreground(cfg.Theme.Highlight)

	h := help.New()
	h.ShowAll = cfg.ShowHelp

	return Model{
		ctx:        ctx,
		controller: controller,
		changes:    changes,
		config:     cfg,
		theme:      cfg.Theme,
		keymap:     DefaultKeyMap(),
		help:       h,
		spinner:    s,
		snapshot:   controller.Snapshot(),
		width:      cfg.Width,
		height:     cfg.Height,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case snapshotMsg:
		m.snapshot = msg.snapshot
		return m, m.listen()

	case actionDoneMsg:
		m.pending = ""
		m.snapshot = m.controller.Snapshot()
		if msg.err != nil && !common.IsCancellation(msg.err) {
			m.lastError = msg.err
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		m.controller.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	// One blocking call at a time.
	if m.pending != "" {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Toggle):
		m.lastError = nil
		return m.toggle()

	case key.Matches(msg, m.keymap.Reselect):
		if !m.snapshot.IsWatching {
			return m, nil
		}
		m.lastError = nil
		m.pending = "Selecting region"
		return m, m.run("reselect", func(ctx context.Context) error {
			if err := m.controller.ReselectRegion(ctx); err != nil {
				return err
			}
			if m.config.AutoStart && m.controller.Snapshot().State() == watch.StateSetup {
				return m.controller.BeginCapture(ctx)
			}
			return nil
		})

	case key.Matches(msg, m.keymap.Slower):
		m.controller.SetInterval(m.snapshot.Interval + m.config.IntervalStep)
		m.snapshot = m.controller.Snapshot()

	case key.Matches(msg, m.keymap.Faster):
		m.controller.SetInterval(m.snapshot.Interval - m.config.IntervalStep)
		m.snapshot = m.controller.Snapshot()
	}

	return m, nil
}

// toggle moves Idle to selection, Setup to Capturing and Capturing back to
// Setup.
func (m Model) toggle() (tea.Model, tea.Cmd) {
	switch m.snapshot.State() {
	case watch.StateCapturing:
		// StopCapture waits for an in-flight recognition.
		m.pending = "Stopping"
		return m, m.run("stop", func(context.Context) error {
			m.controller.StopCapture()
			return nil
		})

	case watch.StateSetup:
		m.pending = "Starting"
		return m, m.run("start", m.controller.BeginCapture)

	default:
		m.pending = "Selecting region"
		return m, m.run("select", func(ctx context.Context) error {
			if err := m.controller.StartWatching(ctx); err != nil {
				return err
			}
			if m.config.AutoStart && m.controller.Snapshot().State() == watch.StateSetup {
				return m.controller.BeginCapture(ctx)
			}
			return nil
		})
	}
}
