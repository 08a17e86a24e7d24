package watch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/Veraticus/trex/internal/common"
)

// ParseSystemEvent maps an event name as printed by String back to its value.
func ParseSystemEvent(s string) (SystemEvent, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ScreensSlept.String():
		return ScreensSlept, true
	case ScreensWoke.String():
		return ScreensWoke, true
	case ScreenParametersChanged.String():
		return ScreenParametersChanged, true
	default:
		return 0, false
	}
}

// ReadEvents sends one event per recognized line of r until r ends or ctx is
// done, then closes out. Unknown lines are logged and skipped.
func ReadEvents(ctx context.Context, r io.Reader, out chan<- SystemEvent, logger *slog.Logger) {
	defer close(out)
	logger = common.LoggerOrDefault(logger)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		ev, ok := ParseSystemEvent(line)
		if !ok {
			logger.Debug("Ignoring unknown system event", "line", line)
			continue
		}
		logger.Info("System event", "event", ev.String())
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		logger.Warn("System event stream failed", "error", err)
	}
}

// CommandEvents starts a helper that prints one event name per line and
// returns the decoded stream. The helper is killed when ctx is done.
func CommandEvents(ctx context.Context, logger *slog.Logger, command string, args ...string) (<-chan SystemEvent, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	events := make(chan SystemEvent)
	go func() {
		ReadEvents(ctx, stdout, events, logger)
		_ = cmd.Wait()
	}()
	return events, nil
}
