// Package service defines the interfaces for the collaborators the capture
// pipeline depends on. Concrete implementations live in capture, history and
// storage; tests substitute fakes.
package service

import (
	"context"
	"image"
	"time"

	"github.com/Veraticus/trex/internal/model"
)

// ImageSource acquires a raster image. A nil rect means the whole screen (or
// the whole source, for non-screen sources). Implementations return
// common.ErrCancelled when the user aborts an interactive step.
type ImageSource interface {
	Capture(ctx context.Context, rect *model.Rect) (image.Image, error)
}

// RegionSelector runs an interactive region selection.
type RegionSelector interface {
	SelectRegion(ctx context.Context) (model.Rect, error)
}

// Clipboard reads and writes plain text on the system pasteboard.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// Notifier presents a user notification. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Automator dispatches recognized text to external automation.
type Automator interface {
	RunShortcut(ctx context.Context, name, input string) error
	OpenURL(ctx context.Context, url string) error
}

// HistoryRecorder persists completed captures.
type HistoryRecorder interface {
	AddEntry(ctx context.Context, text, engineName string, confidence float64, languages []string, img image.Image) error
}

// HistoryStore is a HistoryRecorder that can also be browsed and pruned.
type HistoryStore interface {
	HistoryRecorder
	Entries(ctx context.Context) ([]model.HistoryEntry, error)
	RemoveEntry(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
