package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// listen waits for the next change signal and reads a fresh snapshot.
// Signals are coalesced.
func (m Model) listen() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ctx, changes, controller := m.ctx, m.changes, m.controller
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			return snapshotMsg{snapshot: controller.Snapshot()}
		}
	}
}

func (m Model) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}
