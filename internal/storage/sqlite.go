package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/config"
	"github.com/Veraticus/trex/internal/model"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DatabaseName is the history database file inside the history directory.
const DatabaseName = "history.db"

const (
	thumbnailMaxDimension = 200
	thumbnailQuality      = 60
	languageSeparator     = ","
)

// SQLiteHistory implements service.HistoryStore using SQLite. Thumbnails are
// stored inline as JPEG blobs.
type SQLiteHistory struct {
	db         *sql.DB
	logger     *slog.Logger
	now        func() time.Time
	dbPath     string
	maxEntries int
	mu         sync.Mutex
}

// NewSQLiteHistory opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteHistory(ctx context.Context, dbPath string, maxEntries int, logger *slog.Logger) (*SQLiteHistory, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}
	dbPath = config.ExpandPath(dbPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer keeps SQLite from returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	h := &SQLiteHistory{
		db:         db,
		dbPath:     dbPath,
		logger:     common.LoggerOrDefault(logger),
		maxEntries: config.ClampMaxEntries(maxEntries),
		now:        time.Now,
	}
	if err := h.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

// Close closes the database connection.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}

// SetMaxEntries changes the retention limit, clamped to the allowed range.
func (h *SQLiteHistory) SetMaxEntries(ctx context.Context, n int) error {
	h.mu.Lock()
	h.maxEntries = config.ClampMaxEntries(n)
	h.mu.Unlock()
	return h.prune(ctx)
}

// AddEntry implements service.HistoryRecorder.
func (h *SQLiteHistory) AddEntry(ctx context.Context, text, engineName string, confidence float64, languages []string, img image.Image) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateConfidence(confidence); err != nil {
		return err
	}

	var thumb any
	if img != nil && !img.Bounds().Empty() {
		var buf bytes.Buffer
		small := imaging.Fit(img, thumbnailMaxDimension, thumbnailMaxDimension, imaging.Lanczos)
		if err := imaging.Encode(&buf, small, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
			h.logger.Warn("Failed to encode thumbnail", "error", err)
		} else {
			thumb = buf.Bytes()
		}
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO captures (id, text, captured_at, engine_name, confidence, languages, thumbnail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), text, h.now().UTC(), engineName, confidence,
		strings.Join(languages, languageSeparator), thumb)
	if err != nil {
		return fmt.Errorf("failed to insert capture: %w", err)
	}

	return h.prune(ctx)
}

// Entries returns the history, newest first.
func (h *SQLiteHistory) Entries(ctx context.Context) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, text, captured_at, engine_name, confidence, languages, thumbnail IS NOT NULL
		FROM captures
		ORDER BY captured_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.HistoryEntry
	for rows.Next() {
		var (
			e        model.HistoryEntry
			langs    string
			hasThumb bool
		)
		if err := rows.Scan(&e.ID, &e.Text, &e.Date, &e.EngineName, &e.Confidence, &langs, &hasThumb); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		e.Languages = splitLanguages(langs)
		if hasThumb {
			e.ThumbnailFile = e.ID + ".jpg"
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captures: %w", err)
	}
	return entries, nil
}

// Thumbnail returns the JPEG thumbnail stored for id.
func (h *SQLiteHistory) Thumbnail(ctx context.Context, id string) ([]byte, error) {
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var data []byte
	err := h.db.QueryRowContext(ctx, `SELECT thumbnail FROM captures WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && data == nil) {
		return nil, fmt.Errorf("thumbnail for %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail: %w", err)
	}
	return data, nil
}

// RemoveEntry deletes one entry.
func (h *SQLiteHistory) RemoveEntry(ctx context.Context, id string) error {
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := h.db.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("history entry %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// ClearAll deletes every entry.
func (h *SQLiteHistory) ClearAll(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := h.db.ExecContext(ctx, `DELETE FROM captures`); err != nil {
		return fmt.Errorf("failed to clear captures: %w", err)
	}
	return nil
}

// prune keeps the newest maxEntries rows.
func (h *SQLiteHistory) prune(ctx context.Context) error {
	h.mu.Lock()
	limit := h.maxEntries
	h.mu.Unlock()

	_, err := h.db.ExecContext(ctx, `
		DELETE FROM captures WHERE id NOT IN (
			SELECT id FROM captures ORDER BY captured_at DESC, seq DESC LIMIT ?
		)`, limit)
	if err != nil {
		return fmt.Errorf("failed to prune captures: %w", err)
	}
	return nil
}

func splitLanguages(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, languageSeparator)
}
