package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/config"
	"github.com/Veraticus/trex/internal/model"
	"github.com/Veraticus/trex/internal/service"
)

// NotificationTitle is the title of watch mode notifications.
const NotificationTitle = "TRex Watch Mode"

const clipboardSeparator = "\n---\n"

// Handler receives text recognized after a change in the watched region.
type Handler interface {
	Handle(ctx context.Context, text string) error
}

// ClipboardAppender appends each result to the clipboard text.
type ClipboardAppender struct {
	Clipboard service.Clipboard
}

// Handle implements Handler.
func (h ClipboardAppender) Handle(_ context.Context, text string) error {
	existing, err := h.Clipboard.ReadText()
	if err != nil {
		existing = ""
	}

	combined := text
	if existing != "" {
		combined = existing + clipboardSeparator + text
	}
	if err := h.Clipboard.WriteText(combined); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// FileAppender appends timestamped results to a file under the home directory.
type FileAppender struct {
	now  func() time.Time
	Path string
}

// NewFileAppender creates an appender for path. The path is checked on every
// write, so a symlink swapped in later is still caught.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{Path: path, now: time.Now}
}

// Handle implements Handler.
func (h *FileAppender) Handle(_ context.Context, text string) error {
	path, err := config.ResolveUnderHome(h.Path)
	if err != nil {
		return fmt.Errorf("watch output file rejected: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open watch output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	entry := fmt.Sprintf("[%s] %s\n", h.now().Format(time.RFC3339), text)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write watch output file: %w", err)
	}
	return nil
}

// NotificationHandler posts each result as a notification.
type NotificationHandler struct {
	Notifier service.Notifier
}

// Handle implements Handler.
func (h NotificationHandler) Handle(ctx context.Context, text string) error {
	return h.Notifier.Notify(ctx, NotificationTitle, text)
}

// NewHandler selects the handler for mode.
func NewHandler(mode model.OutputMode, path string, clipboard service.Clipboard, notifier service.Notifier) (Handler, error) {
	switch mode {
	case model.OutputClipboard:
		if clipboard == nil {
			return nil, fmt.Errorf("clipboard output requires a clipboard: %w", common.ErrInvalidConfig)
		}
		return ClipboardAppender{Clipboard: clipboard}, nil
	case model.OutputFile:
		if _, err := config.ResolveUnderHome(path); err != nil {
			return nil, err
		}
		return NewFileAppender(path), nil
	case model.OutputNotification:
		if notifier == nil {
			return nil, fmt.Errorf("notification output requires a notifier: %w", common.ErrInvalidConfig)
		}
		return NotificationHandler{Notifier: notifier}, nil
	default:
		return nil, fmt.Errorf("unknown output mode %q: %w", mode, common.ErrInvalidConfig)
	}
}
