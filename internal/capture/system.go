package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// SystemClipboard is the system pasteboard.
type SystemClipboard struct{}

// ReadText implements service.Clipboard.
func (SystemClipboard) ReadText() (string, error) {
	return clipboard.ReadAll()
}

// WriteText implements service.Clipboard.
func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// ScriptNotifier posts notifications with osascript.
type ScriptNotifier struct {
	run     runner
	Command string
}

// NewScriptNotifier creates a notifier.
func NewScriptNotifier() *ScriptNotifier {
	return &ScriptNotifier{Command: "osascript", run: execRunner}
}

// Notify implements service.Notifier.
func (n *ScriptNotifier) Notify(ctx context.Context, title, body string) error {
	script := fmt.Sprintf("display notification %s with title %s", appleScriptString(body), appleScriptString(title))
	if _, err := n.run(ctx, n.Command, "-e", script); err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	return nil
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// CommandAutomator runs Shortcuts and opens URLs.
type CommandAutomator struct {
	run      runner
	inputDir string
	// Shortcuts and Open are the executables used.
	Shortcuts string
	Open      string
}

// NewCommandAutomator creates an automator using the system tools.
func NewCommandAutomator() *CommandAutomator {
	return &CommandAutomator{
		Shortcuts: "shortcuts",
		Open:      "open",
		inputDir:  os.TempDir(),
		run:       execRunner,
	}
}

// RunShortcut implements service.Automator. The input is passed through a
// temp file.
func (a *CommandAutomator) RunShortcut(ctx context.Context, name, input string) error {
	f, err := os.CreateTemp(a.inputDir, "trex-shortcut-*.txt")
	if err != nil {
		return fmt.Errorf("failed to create shortcut input: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.WriteString(input); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write shortcut input: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write shortcut input: %w", err)
	}

	if _, err := a.run(ctx, a.Shortcuts, "run", name, "-i", f.Name()); err != nil {
		return fmt.Errorf("shortcut %q failed: %w", name, err)
	}
	return nil
}

// OpenURL implements service.Automator.
func (a *CommandAutomator) OpenURL(ctx context.Context, target string) error {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("invalid URL %q", target)
	}
	if _, err := a.run(ctx, a.Open, u.String()); err != nil {
		return fmt.Errorf("failed to open URL: %w", err)
	}
	return nil
}
