package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/trex/internal/cli"
	"github.com/Veraticus/trex/internal/model"
	"github.com/Veraticus/trex/internal/watch"
	"github.com/charmbracelet/lipgloss"
)

const lastTextWidth = 60

// View renders the status screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	rows := []string{
		m.theme.Title.Render(cli.TRexIcon + " TRex Watch Mode"),
		m.row("Status", m.renderStatus()),
		m.row("Region", m.renderRegion()),
		m.row("Output", m.renderOutput()),
		m.row("Interval", fmt.Sprintf("%.1fs", m.snapshot.Interval.Seconds())),
		m.row("Captures", fmt.Sprintf("%d", m.snapshot.CaptureCount)),
	}

	if m.snapshot.LastText != "" {
		rows = append(rows, m.row("Last", m.theme.Excerpt.Render(cli.Truncate(m.snapshot.LastText, lastTextWidth))))
	}
	if m.lastError != nil {
		rows = append(rows, "", m.theme.Failure.Render(cli.ErrorIcon+" "+m.lastError.Error()))
	}

	body := m.theme.Frame.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.JoinVertical(lipgloss.Left, body, m.help.View(m.keymap)) + "\n"
}

func (m Model) row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, m.theme.Label.Render(label), value)
}

func (m Model) renderStatus() string {
	if m.pending != "" {
		return m.spinner.View() + " " + m.theme.Idle.Render(m.pending+"...")
	}

	switch m.snapshot.State() {
	case watch.StateCapturing:
		if m.snapshot.IsPaused {
			return m.theme.Paused.Render("Paused (screens asleep)")
		}
		return m.spinner.View() + " " + m.theme.Watching.Render("Watching")
	case watch.StateSetup:
		return m.theme.Ready.Render("Ready") + m.hint(" press s to start")
	default:
		return m.theme.Idle.Render("Idle") + m.hint(" press s to select a region")
	}
}

func (m Model) renderRegion() string {
	if m.snapshot.Rect == nil {
		return m.hint("none")
	}
	r := m.snapshot.Rect
	return m.theme.Value.Render(fmt.Sprintf("%d×%d at (%d, %d)", r.Width, r.Height, r.X, r.Y))
}

func (m Model) renderOutput() string {
	out := m.snapshot.OutputMode.DisplayName()
	if m.snapshot.OutputMode == model.OutputFile && strings.TrimSpace(m.snapshot.FilePath) != "" {
		out += m.hint(" " + m.snapshot.FilePath)
	}
	return out
}

func (m Model) hint(s string) string {
	return m.theme.Hint.Render(s)
}
