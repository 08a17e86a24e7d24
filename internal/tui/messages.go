package tui

import "github.com/Veraticus/trex/internal/watch"

// snapshotMsg carries a watch state change from the manager's observers.
type snapshotMsg struct {
	snapshot watch.Snapshot
}

// actionDoneMsg reports the result of a blocking manager call.
type actionDoneMsg struct {
	err    error
	action string
}
