package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/disintegration/imaging"
)

// Helper function to create a test history database.
func createTestHistory(t *testing.T, maxEntries int) *SQLiteHistory {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	h, err := NewSQLiteHistory(context.Background(), dbPath, maxEntries, nil)
	if err != nil {
		t.Fatalf("Failed to create history: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	return h
}

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var n int
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestSQLiteHistory_AddAndList(t *testing.T) {
	h := createTestHistory(t, 10)
	h.now = steppingClock()
	ctx := context.Background()

	if err := h.AddEntry(ctx, "first", "Apple Vision", 0.9, []string{"en-US", "de-DE"}, nil); err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	if err := h.AddEntry(ctx, "second", "Tesseract OCR", 0.5, nil, nil); err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}

	entries, err := h.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Entries() returned %d entries, want 2", len(entries))
	}

	if entries[0].Text != "second" || entries[1].Text != "first" {
		t.Errorf("Entries() order = [%q, %q], want [second, first]", entries[0].Text, entries[1].Text)
	}

	first := entries[1]
	if first.EngineName != "Apple Vision" {
		t.Errorf("EngineName = %q, want %q", first.EngineName, "Apple Vision")
	}
	if first.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", first.Confidence)
	}
	if len(first.Languages) != 2 || first.Languages[0] != "en-US" || first.Languages[1] != "de-DE" {
		t.Errorf("Languages = %v, want [en-US de-DE]", first.Languages)
	}
	if first.ID == "" {
		t.Error("Expected a generated ID")
	}
	if !first.Date.Equal(time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC)) {
		t.Errorf("Date = %v, want 2025-03-01 12:00:01 UTC", first.Date)
	}

	if entries[0].Languages == nil || len(entries[0].Languages) != 0 {
		t.Errorf("Languages = %#v, want empty slice", entries[0].Languages)
	}
	if entries[0].ThumbnailFile != "" {
		t.Errorf("ThumbnailFile = %q, want empty", entries[0].ThumbnailFile)
	}
}

func TestSQLiteHistory_SameTimestampKeepsInsertOrder(t *testing.T) {
	h := createTestHistory(t, 10)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := h.AddEntry(ctx, fmt.Sprintf("e%d", i), "", 0, nil, nil); err != nil {
			t.Fatalf("AddEntry() error = %v", err)
		}
	}

	entries, err := h.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	want := []string{"e2", "e1", "e0"}
	for i, e := range entries {
		if e.Text != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, e.Text, want[i])
		}
	}
}

func TestSQLiteHistory_Prune(t *testing.T) {
	h := createTestHistory(t, 3)
	h.now = steppingClock()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := h.AddEntry(ctx, fmt.Sprintf("e%d", i), "", 0, nil, nil); err != nil {
			t.Fatalf("AddEntry() error = %v", err)
		}
	}

	entries, err := h.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Entries() returned %d entries, want 3", len(entries))
	}
	if entries[0].Text != "e4" || entries[2].Text != "e2" {
		t.Errorf("Unexpected retained entries: %q .. %q", entries[0].Text, entries[2].Text)
	}

	if err := h.SetMaxEntries(ctx, 1); err != nil {
		t.Fatalf("SetMaxEntries() error = %v", err)
	}
	entries, _ = h.Entries(ctx)
	if len(entries) != 1 || entries[0].Text != "e4" {
		t.Errorf("After SetMaxEntries(1) got %d entries, want only e4", len(entries))
	}
}

func TestSQLiteHistory_SetMaxEntriesClamps(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "zero", in: 0, want: 1},
		{name: "negative", in: -5, want: 1},
		{name: "in range", in: 250, want: 250},
		{name: "too large", in: 20000, want: 10000},
	}

	h := createTestHistory(t, 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.SetMaxEntries(context.Background(), tt.in); err != nil {
				t.Fatalf("SetMaxEntries() error = %v", err)
			}
			if h.maxEntries != tt.want {
				t.Errorf("maxEntries = %d, want %d", h.maxEntries, tt.want)
			}
		})
	}
}

func TestSQLiteHistory_Thumbnail(t *testing.T) {
	h := createTestHistory(t, 10)
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	if err := h.AddEntry(ctx, "with image", "", 0, nil, img); err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}

	entries, err := h.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	entry := entries[0]
	if entry.ThumbnailFile != entry.ID+".jpg" {
		t.Errorf("ThumbnailFile = %q, want %q", entry.ThumbnailFile, entry.ID+".jpg")
	}

	data, err := h.Thumbnail(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	thumb, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode thumbnail: %v", err)
	}
	if got := thumb.Bounds().Size(); got != image.Pt(200, 100) {
		t.Errorf("Thumbnail size = %v, want (200,100)", got)
	}
}

func TestSQLiteHistory_ThumbnailMissing(t *testing.T) {
	h := createTestHistory(t, 10)
	ctx := context.Background()

	if err := h.AddEntry(ctx, "no image", "", 0, nil, nil); err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	entries, _ := h.Entries(ctx)

	tests := []struct {
		name string
		id   string
	}{
		{name: "entry without thumbnail", id: entries[0].ID},
		{name: "unknown entry", id: "does-not-exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Thumbnail(ctx, tt.id)
			if !errors.Is(err, common.ErrNotFound) {
				t.Errorf("Thumbnail() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSQLiteHistory_RemoveAndClear(t *testing.T) {
	h := createTestHistory(t, 10)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		if err := h.AddEntry(ctx, text, "", 0, nil, nil); err != nil {
			t.Fatalf("AddEntry() error = %v", err)
		}
	}
	entries, _ := h.Entries(ctx)

	if err := h.RemoveEntry(ctx, entries[0].ID); err != nil {
		t.Fatalf("RemoveEntry() error = %v", err)
	}
	if err := h.RemoveEntry(ctx, entries[0].ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Second RemoveEntry() error = %v, want ErrNotFound", err)
	}
	if err := h.RemoveEntry(ctx, ""); !errors.Is(err, ErrEmptyString) {
		t.Errorf("RemoveEntry(\"\") error = %v, want ErrEmptyString", err)
	}

	remaining, _ := h.Entries(ctx)
	if len(remaining) != 2 {
		t.Errorf("After remove got %d entries, want 2", len(remaining))
	}

	if err := h.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	remaining, _ = h.Entries(ctx)
	if len(remaining) != 0 {
		t.Errorf("After clear got %d entries, want 0", len(remaining))
	}
}

func TestSQLiteHistory_InvalidInput(t *testing.T) {
	h := createTestHistory(t, 10)

	//nolint:staticcheck // exercising the nil context guard
	if err := h.AddEntry(nil, "text", "", 0, nil, nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("AddEntry(nil ctx) error = %v, want ErrNilContext", err)
	}
	if err := h.AddEntry(context.Background(), "text", "", 1.5, nil, nil); !errors.Is(err, ErrInvalidConfidence) {
		t.Errorf("AddEntry(1.5) error = %v, want ErrInvalidConfidence", err)
	}
	if _, err := NewSQLiteHistory(context.Background(), "  ", 10, nil); !errors.Is(err, ErrEmptyString) {
		t.Errorf("NewSQLiteHistory(blank) error = %v, want ErrEmptyString", err)
	}
}

func TestSQLiteHistory_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", DatabaseName)

	h, err := NewSQLiteHistory(ctx, dbPath, 10, nil)
	if err != nil {
		t.Fatalf("NewSQLiteHistory() error = %v", err)
	}
	if err := h.AddEntry(ctx, "persisted", "QR Code Detector", 1, nil, nil); err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteHistory(ctx, dbPath, 10, nil)
	if err != nil {
		t.Fatalf("Reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	entries, err := reopened.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "persisted" {
		t.Errorf("Reopened history = %v, want one persisted entry", entries)
	}
}
