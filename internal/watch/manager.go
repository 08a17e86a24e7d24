// Package watch implements watch mode: a region is polled on an interval and
// text is recognized and forwarded whenever its pixels change.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/config"
	"github.com/Veraticus/trex/internal/model"
	"github.com/Veraticus/trex/internal/service"
)

// State is the coarse watch mode state.
type State int

// Watch mode states.
const (
	StateIdle State = iota
	StateSetup
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateCapturing:
		return "capturing"
	default:
		return "idle"
	}
}

// SystemEvent is a platform notification that affects polling.
type SystemEvent int

// System events.
const (
	ScreensSlept SystemEvent = iota + 1
	ScreensWoke
	ScreenParametersChanged
)

func (e SystemEvent) String() string {
	switch e {
	case ScreensSlept:
		return "screens-slept"
	case ScreensWoke:
		return "screens-woke"
	case ScreenParametersChanged:
		return "screen-parameters-changed"
	default:
		return "unknown"
	}
}

// Recognizer runs OCR for a watched frame.
type Recognizer interface {
	RecognizeForWatch(ctx context.Context, img image.Image) (model.OCRResult, error)
}

// BusyChecker reports whether a user-initiated capture is running.
type BusyChecker interface {
	IsCaptureInProgress() bool
}

// Snapshot is a copy of the manager state.
type Snapshot struct {
	Rect         *model.Rect
	OutputMode   model.OutputMode
	FilePath     string
	LastText     string
	Interval     time.Duration
	CaptureCount int
	IsWatching   bool
	IsCapturing  bool
	IsPaused     bool
}

// State derives the coarse state.
func (s Snapshot) State() State {
	switch {
	case s.IsCapturing:
		return StateCapturing
	case s.IsWatching:
		return StateSetup
	default:
		return StateIdle
	}
}

// Dependencies are the collaborators a Manager needs.
type Dependencies struct {
	Selector   service.RegionSelector
	Source     service.ImageSource
	Recognizer Recognizer
	Busy       BusyChecker
	Clipboard  service.Clipboard
	Notifier   service.Notifier
	Logger     *slog.Logger
}

// Manager owns the watch mode state machine and its single poll goroutine.
type Manager struct {
	deps      Dependencies
	logger    *slog.Logger
	handler   Handler
	observers []func(Snapshot)
	rect      *model.Rect
	loopStop  context.CancelFunc
	loopDone  chan struct{}
	stopped   chan struct{}
	mode      model.OutputMode
	filePath  string
	lastText  string
	interval  time.Duration
	count     int
	lastHash  [sha256.Size]byte
	hasHash   bool
	watching  bool
	capturing bool
	paused    bool
	mu        sync.Mutex
	stopOnce  sync.Once
}

// NewManager creates an idle manager.
func NewManager(deps Dependencies, interval time.Duration, mode model.OutputMode, filePath string) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = model.OutputClipboard
	}
	return &Manager{
		deps:     deps,
		logger:   logger,
		interval: config.ClampWatchInterval(interval),
		mode:     mode,
		filePath: filePath,
		stopped:  make(chan struct{}),
	}
}

// OnChange registers an observer called after every state change.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	var rect *model.Rect
	if m.rect != nil {
		r := *m.rect
		rect = &r
	}
	return Snapshot{
		Rect:         rect,
		OutputMode:   m.mode,
		FilePath:     m.filePath,
		LastText:     m.lastText,
		Interval:     m.interval,
		CaptureCount: m.count,
		IsWatching:   m.watching,
		IsCapturing:  m.capturing,
		IsPaused:     m.paused,
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	snap := m.snapshotLocked()
	observers := append([]func(Snapshot){}, m.observers...)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// SetInterval changes the polling interval, clamped to the allowed range.
func (m *Manager) SetInterval(d time.Duration) {
	m.mu.Lock()
	m.interval = config.ClampWatchInterval(d)
	m.mu.Unlock()
	m.notify()
}

// SetOutputMode changes where results go. It takes effect on the next
// BeginCapture.
func (m *Manager) SetOutputMode(mode model.OutputMode, path string) error {
	if mode == model.OutputFile {
		if _, err := config.ResolveUnderHome(path); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.mode = mode
	m.filePath = path
	m.mu.Unlock()
	m.notify()
	return nil
}

// StartWatching selects a region interactively and enters Setup. A cancelled
// selection leaves the manager Idle and returns nil.
func (m *Manager) StartWatching(ctx context.Context) error {
	if err := m.checkStart(); err != nil {
		return err
	}

	rect, err := m.deps.Selector.SelectRegion(ctx)
	if err != nil {
		if common.IsCancellation(err) {
			m.logger.Info("Region selection cancelled")
			return nil
		}
		return fmt.Errorf("region selection failed: %w", err)
	}
	return m.WatchRegion(rect)
}

// WatchRegion enters Setup for a known rect without interactive selection.
func (m *Manager) WatchRegion(rect model.Rect) error {
	if rect.Empty() {
		return fmt.Errorf("empty watch region: %w", common.ErrInvalidState)
	}
	if err := m.checkStart(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.watching {
		m.mu.Unlock()
		return fmt.Errorf("watch mode already active: %w", common.ErrInvalidState)
	}
	m.setupLocked(rect)
	m.mu.Unlock()

	m.logger.Info("Watch mode setup", "rect", rect.String())
	m.notify()
	return nil
}

func (m *Manager) checkStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watching {
		return fmt.Errorf("watch mode already active: %w", common.ErrInvalidState)
	}
	if m.mode == model.OutputFile {
		if _, err := config.ResolveUnderHome(m.filePath); err != nil {
			m.logger.Error("Rejected watch mode file path", "path", m.filePath, "error", err)
			return err
		}
	}
	return nil
}

func (m *Manager) setupLocked(rect model.Rect) {
	m.rect = &rect
	m.watching = true
	m.capturing = false
}

// BeginCapture starts polling. Valid only in Setup.
func (m *Manager) BeginCapture(ctx context.Context) error {
	m.stopLoop()

	m.mu.Lock()
	if !m.watching || m.capturing || m.rect == nil {
		m.mu.Unlock()
		return fmt.Errorf("cannot begin capture: %w", common.ErrInvalidState)
	}

	handler, err := NewHandler(m.mode, m.filePath, m.deps.Clipboard, m.deps.Notifier)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.handler = handler
	m.hasHash = false
	m.count = 0
	m.lastText = ""
	m.paused = false
	m.capturing = true
	m.loopStop = cancel
	m.loopDone = done
	rect, interval := *m.rect, m.interval
	m.mu.Unlock()

	m.logger.Info("Watch mode capturing", "rect", rect.String(), "interval", interval)
	go m.pollLoop(loopCtx, done)

	m.notify()
	return nil
}

// StopCapture stops polling and returns to Setup.
func (m *Manager) StopCapture() {
	m.stopLoop()

	m.mu.Lock()
	m.capturing = false
	m.paused = false
	m.hasHash = false
	m.mu.Unlock()

	m.notify()
}

// ReselectRegion stops polling and selects a new region. A cancelled
// selection restores the previous region, or returns to Idle if there was
// none.
func (m *Manager) ReselectRegion(ctx context.Context) error {
	m.mu.Lock()
	watching := m.watching
	m.mu.Unlock()
	if !watching {
		return fmt.Errorf("cannot reselect region: %w", common.ErrInvalidState)
	}

	m.StopCapture()

	rect, err := m.deps.Selector.SelectRegion(ctx)
	if err != nil {
		if !common.IsCancellation(err) {
			m.logger.Warn("Region reselection failed", "error", err)
		}

		m.mu.Lock()
		hasPrevious := m.rect != nil
		m.mu.Unlock()
		if !hasPrevious {
			m.Cancel()
		}
		return nil
	}

	m.mu.Lock()
	m.setupLocked(rect)
	m.mu.Unlock()

	m.logger.Info("Watch mode region reselected", "rect", rect.String())
	m.notify()
	return nil
}

// Cancel abandons watch mode and returns to Idle.
func (m *Manager) Cancel() {
	m.stopWatching()
	m.logger.Info("Watch mode cancelled")
}

// StopWatching stops polling, clears the region and returns to Idle.
func (m *Manager) StopWatching() {
	count := m.stopWatching()
	m.logger.Info("Watch mode stopped", "captures", count)
}

func (m *Manager) stopWatching() int {
	m.stopLoop()

	m.mu.Lock()
	count := m.count
	m.capturing = false
	m.paused = false
	m.hasHash = false
	m.rect = nil
	m.watching = false
	m.mu.Unlock()

	m.notify()
	return count
}

// Close stops watch mode and ends any Subscribe loop.
func (m *Manager) Close() {
	m.StopWatching()
	m.stopOnce.Do(func() { close(m.stopped) })
}

// stopLoop cancels the poll goroutine and waits for it to exit.
func (m *Manager) stopLoop() {
	m.mu.Lock()
	cancel, done := m.loopStop, m.loopDone
	m.loopStop, m.loopDone = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// HandleEvent reacts to a system event.
func (m *Manager) HandleEvent(ev SystemEvent) {
	switch ev {
	case ScreensSlept:
		m.setPaused(true)
		m.logger.Info("Watch mode paused: screens did sleep")
	case ScreensWoke:
		m.setPaused(false)
		m.logger.Info("Watch mode resumed: screens did wake")
	case ScreenParametersChanged:
		m.mu.Lock()
		watching := m.watching
		m.mu.Unlock()
		if watching {
			m.logger.Warn("Screen parameters changed, stopping watch mode")
			m.StopWatching()
		}
	}
}

func (m *Manager) setPaused(paused bool) {
	m.mu.Lock()
	changed := m.capturing && m.paused != paused
	if m.capturing {
		m.paused = paused
	}
	m.mu.Unlock()
	if changed {
		m.notify()
	}
}

// Subscribe feeds events to HandleEvent until the channel closes, ctx is
// done, or the manager is closed.
func (m *Manager) Subscribe(ctx context.Context, events <-chan SystemEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopped:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.HandleEvent(ev)
		}
	}
}

func (m *Manager) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		m.mu.Lock()
		capturing, paused, interval := m.capturing, m.paused, m.interval
		m.mu.Unlock()

		if ctx.Err() != nil || !capturing {
			return
		}

		busy := m.deps.Busy != nil && m.deps.Busy.IsCaptureInProgress()
		if !paused && !busy {
			// An in-flight tick runs to completion even if the loop is cancelled.
			m.tick(context.WithoutCancel(ctx))
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) tick(ctx context.Context) {
	m.mu.Lock()
	if m.rect == nil {
		m.mu.Unlock()
		return
	}
	rect := *m.rect
	handler := m.handler
	m.mu.Unlock()

	img, err := m.deps.Source.Capture(ctx, &rect)
	if err != nil || img == nil {
		m.logger.Warn("Failed to capture watched region", "error", err)
		return
	}

	hash := imageHash(img)

	m.mu.Lock()
	if m.hasHash && hash == m.lastHash {
		m.mu.Unlock()
		return
	}
	m.lastHash = hash
	m.hasHash = true
	next := m.count + 1
	m.mu.Unlock()

	m.logger.Info("Change detected in watched region", "capture", next)

	result, err := m.deps.Recognizer.RecognizeForWatch(ctx, img)
	if err != nil {
		m.logger.Warn("OCR returned no result for watched region", "error", err)
		return
	}
	if result.Text == "" {
		return
	}

	m.mu.Lock()
	m.count++
	m.lastText = result.Text
	m.mu.Unlock()

	if handler != nil {
		if err := handler.Handle(ctx, result.Text); err != nil {
			if errors.Is(err, common.ErrPathOutsideHome) {
				m.logger.Error("Watch output rejected", "error", err)
			} else {
				m.logger.Warn("Watch output failed", "error", err)
			}
		}
	}

	m.notify()
}
