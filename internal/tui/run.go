package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/trex/internal/watch"
	tea "github.com/charmbracelet/bubbletea"
)

// Watcher is a Controller that reports state changes.
type Watcher interface {
	Controller
	OnChange(fn func(watch.Snapshot))
}

// Run shows the watch status view until the user quits or ctx is done.
func Run(ctx context.Context, w Watcher, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Observers run on the manager's goroutines and must not block.
	changes := make(chan struct{}, 1)
	w.OnChange(func(watch.Snapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	p := tea.NewProgram(newModel(ctx, w, changes, cfg),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	w.Cancel()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("watch view failed: %w", err)
	}
	return nil
}
