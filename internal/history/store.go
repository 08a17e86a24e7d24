// Package history persists completed captures as a JSON file with JPEG
// thumbnails alongside it.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/config"
	"github.com/Veraticus/trex/internal/model"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Thumbnail and storage parameters.
const (
	FileName         = "history.json"
	ThumbnailDirName = "thumbnails"

	ThumbnailMaxDimension = 200
	ThumbnailQuality      = 60

	DefaultMaxEntries = 100
)

// Store is the JSON-backed capture history. Saves run on a single writer
// goroutine in the order they were requested.
type Store struct {
	logger     *slog.Logger
	now        func() time.Time
	saves      chan []model.HistoryEntry
	done       chan struct{}
	dir        string
	thumbDir   string
	file       string
	entries    []model.HistoryEntry
	pending    sync.WaitGroup
	maxEntries int
	mu         sync.Mutex
	closed     bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore opens the history in dir, creating it if needed, and loads any
// saved entries.
func NewStore(dir string, maxEntries int, opts ...Option) (*Store, error) {
	dir = config.ExpandPath(dir)
	s := &Store{
		dir:        dir,
		thumbDir:   filepath.Join(dir, ThumbnailDirName),
		file:       filepath.Join(dir, FileName),
		maxEntries: config.ClampMaxEntries(maxEntries),
		now:        time.Now,
		saves:      make(chan []model.HistoryEntry, 16),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.LoggerOrDefault(s.logger)

	if err := os.MkdirAll(s.thumbDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := s.Load(); err != nil {
		return nil, err
	}

	go s.writer()
	return s, nil
}

// Load replaces the in-memory entries with the saved file. A missing file is
// an empty history.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to decode history %s: %w", s.file, err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// AddEntry prepends a capture, writing a thumbnail of img when given, and
// prunes the oldest entries beyond the limit.
func (s *Store) AddEntry(_ context.Context, text, engineName string, confidence float64, languages []string, img image.Image) error {
	entry := model.HistoryEntry{
		ID:         uuid.NewString(),
		Text:       text,
		Date:       s.now().UTC(),
		EngineName: engineName,
		Confidence: confidence,
		Languages:  slices.Clone(languages),
	}
	if entry.Languages == nil {
		entry.Languages = []string{}
	}

	if img != nil {
		name := entry.ID + ".jpg"
		if err := s.saveThumbnail(img, name); err != nil {
			s.logger.Warn("Failed to write thumbnail", "error", err)
		} else {
			entry.ThumbnailFile = name
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]model.HistoryEntry{entry}, s.entries...)
	s.pruneLocked()
	s.saveLocked()
	return nil
}

// Entries returns a copy of the history, newest first.
func (s *Store) Entries(context.Context) ([]model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries), nil
}

// RemoveEntry deletes one entry and its thumbnail.
func (s *Store) RemoveEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.entries, func(e model.HistoryEntry) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("history entry %s: %w", id, common.ErrNotFound)
	}

	s.deleteThumbnail(s.entries[i])
	s.entries = slices.Delete(s.entries, i, i+1)
	s.saveLocked()
	return nil
}

// ClearAll removes every entry and thumbnail.
func (s *Store) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	files, err := os.ReadDir(s.thumbDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Failed to list thumbnails", "error", err)
	}
	for _, f := range files {
		if err := os.Remove(filepath.Join(s.thumbDir, f.Name())); err != nil {
			s.logger.Warn("Failed to remove thumbnail", "file", f.Name(), "error", err)
		}
	}
	s.saveLocked()
	return nil
}

// ThumbnailPath returns the thumbnail file for entry if it exists.
func (s *Store) ThumbnailPath(entry model.HistoryEntry) (string, bool) {
	name := entry.ThumbnailFile
	if name == "" || name != filepath.Base(name) {
		return "", false
	}
	path := filepath.Join(s.thumbDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// SetMaxEntries changes the limit, clamped to the allowed range, and prunes.
func (s *Store) SetMaxEntries(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxEntries = config.ClampMaxEntries(n)
	if len(s.entries) > s.maxEntries {
		s.pruneLocked()
		s.saveLocked()
	}
}

// MaxEntries returns the current limit.
func (s *Store) MaxEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxEntries
}

// Wait blocks until every requested save has been written.
func (s *Store) Wait() {
	s.pending.Wait()
}

// Close drains pending saves and stops the writer.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.saves)
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *Store) pruneLocked() {
	for len(s.entries) > s.maxEntries {
		last := s.entries[len(s.entries)-1]
		s.deleteThumbnail(last)
		s.entries = s.entries[:len(s.entries)-1]
	}
}

// saveLocked queues a snapshot of the entries. Callers hold s.mu, which keeps
// snapshots in request order.
func (s *Store) saveLocked() {
	if s.closed {
		s.logger.Warn("History store closed, dropping save")
		return
	}
	s.pending.Add(1)
	s.saves <- slices.Clone(s.entries)
}

func (s *Store) writer() {
	defer close(s.done)
	for snapshot := range s.saves {
		if err := s.write(snapshot); err != nil {
			s.logger.Error("Failed to save capture history", "error", err)
		}
		s.pending.Done()
	}
}

func (s *Store) write(entries []model.HistoryEntry) error {
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.file); err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

func (s *Store) saveThumbnail(img image.Image, name string) error {
	thumb := Thumbnail(img)
	if err := imaging.Save(thumb, filepath.Join(s.thumbDir, name), imaging.JPEGQuality(ThumbnailQuality)); err != nil {
		return fmt.Errorf("failed to save thumbnail %s: %w", name, err)
	}
	return nil
}

func (s *Store) deleteThumbnail(e model.HistoryEntry) {
	if path, ok := s.ThumbnailPath(e); ok {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to remove thumbnail", "file", e.ThumbnailFile, "error", err)
		}
	}
}

// Thumbnail scales img down to fit ThumbnailMaxDimension on its long edge.
// Smaller images are left at their size.
func Thumbnail(img image.Image) image.Image {
	return imaging.Fit(img, ThumbnailMaxDimension, ThumbnailMaxDimension, imaging.Lanczos)
}
