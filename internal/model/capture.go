package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Rect is a screen rectangle in top-left-origin coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// String formats the rectangle as "x,y,w,h", the form screencapture -R expects.
func (r Rect) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// ParseRect parses "x,y,w,h".
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("rect %q: want x,y,w,h", s)
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		vals[i] = v
	}

	r := Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if r.Empty() {
		return Rect{}, fmt.Errorf("rect %q has no area", s)
	}
	return r, nil
}

// CaptureSource identifies where a capture's image comes from.
type CaptureSource string

// Capture sources.
const (
	SourceScreen    CaptureSource = "screen"
	SourceClipboard CaptureSource = "clipboard"
	SourceFile      CaptureSource = "file"
)

// ParseCaptureSource validates a capture source name.
func ParseCaptureSource(s string) (CaptureSource, error) {
	switch CaptureSource(strings.ToLower(s)) {
	case SourceScreen, "":
		return SourceScreen, nil
	case SourceClipboard:
		return SourceClipboard, nil
	case SourceFile:
		return SourceFile, nil
	default:
		return "", fmt.Errorf("unknown capture source %q", s)
	}
}

// OutputMode selects where watch mode sends recognized text.
type OutputMode string

// Watch mode outputs.
const (
	OutputClipboard    OutputMode = "clipboard"
	OutputFile         OutputMode = "file"
	OutputNotification OutputMode = "notification"
)

// DisplayName returns the label shown in menus and the status view.
func (m OutputMode) DisplayName() string {
	switch m {
	case OutputFile:
		return "Append to File"
	case OutputNotification:
		return "Notifications"
	default:
		return "Append to Clipboard"
	}
}

// ParseOutputMode validates an output mode name.
func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(strings.ToLower(s)) {
	case OutputClipboard, "":
		return OutputClipboard, nil
	case OutputFile:
		return OutputFile, nil
	case OutputNotification, "notifications":
		return OutputNotification, nil
	default:
		return "", fmt.Errorf("unknown output mode %q", s)
	}
}
