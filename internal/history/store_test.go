package history

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxEntries int) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s, err := NewStore(dir, maxEntries, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func readSaved(t *testing.T, dir string) []model.HistoryEntry {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	var entries []model.HistoryEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestStoreAddEntry(t *testing.T) {
	s, dir := newTestStore(t, 10)
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	require.NoError(t, s.AddEntry(ctx, "first", "Apple Vision", 0.75, []string{"en-US"}, img))
	require.NoError(t, s.AddEntry(ctx, "second", "", 0, nil, nil))
	s.Wait()

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Text)
	assert.Equal(t, "first", entries[1].Text)
	assert.Equal(t, []string{}, entries[0].Languages)
	assert.Empty(t, entries[0].ThumbnailFile)

	first := entries[1]
	assert.Equal(t, "Apple Vision", first.EngineName)
	assert.InDelta(t, 0.75, first.Confidence, 1e-9)
	assert.Equal(t, first.ID+".jpg", first.ThumbnailFile)

	path, ok := s.ThumbnailPath(first)
	require.True(t, ok)
	thumb, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(200, 100), thumb.Bounds().Size())

	saved := readSaved(t, dir)
	assert.Equal(t, entries, saved)
}

func TestStoreJSONFormat(t *testing.T) {
	s, dir := newTestStore(t, 10)
	require.NoError(t, s.AddEntry(context.Background(), "hello", "Tesseract OCR", 0.5, []string{"de-DE"}, nil))
	s.Wait()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "2025-01-02T03:04:05Z", raw[0]["timestamp"])
	assert.Equal(t, "Tesseract OCR", raw[0]["engineName"])
	assert.Equal(t, []any{"de-DE"}, raw[0]["recognizedLanguages"])
	assert.NotContains(t, raw[0], "thumbnailFilename")
}

func TestStorePrunesOldest(t *testing.T) {
	s, dir := newTestStore(t, 2)
	ctx := context.Background()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	for i := range 3 {
		require.NoError(t, s.AddEntry(ctx, fmt.Sprintf("e%d", i), "", 0, nil, img))
	}
	s.Wait()

	entries, _ := s.Entries(ctx)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2", entries[0].Text)
	assert.Equal(t, "e1", entries[1].Text)

	thumbs, err := os.ReadDir(filepath.Join(dir, ThumbnailDirName))
	require.NoError(t, err)
	assert.Len(t, thumbs, 2)

	s.SetMaxEntries(1)
	s.Wait()
	entries, _ = s.Entries(ctx)
	assert.Len(t, entries, 1)
	assert.Len(t, readSaved(t, dir), 1)
}

func TestStoreSetMaxEntriesClamps(t *testing.T) {
	s, _ := newTestStore(t, 0)
	assert.Equal(t, 1, s.MaxEntries())

	s.SetMaxEntries(50000)
	assert.Equal(t, 10000, s.MaxEntries())
}

func TestStoreRemoveAndClear(t *testing.T) {
	s, dir := newTestStore(t, 10)
	ctx := context.Background()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	require.NoError(t, s.AddEntry(ctx, "a", "", 0, nil, img))
	require.NoError(t, s.AddEntry(ctx, "b", "", 0, nil, img))
	entries, _ := s.Entries(ctx)

	require.NoError(t, s.RemoveEntry(ctx, entries[0].ID))
	assert.ErrorIs(t, s.RemoveEntry(ctx, entries[0].ID), common.ErrNotFound)
	_, ok := s.ThumbnailPath(entries[0])
	assert.False(t, ok)

	require.NoError(t, s.ClearAll(ctx))
	s.Wait()

	remaining, _ := s.Entries(ctx)
	assert.Empty(t, remaining)
	assert.Empty(t, readSaved(t, dir))

	thumbs, err := os.ReadDir(filepath.Join(dir, ThumbnailDirName))
	require.NoError(t, err)
	assert.Empty(t, thumbs)
}

func TestStoreReload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 10)
	require.NoError(t, err)
	require.NoError(t, s.AddEntry(context.Background(), "persisted", "QR Code Detector", 1, nil, nil))
	require.NoError(t, s.Close())

	reopened, err := NewStore(dir, 10)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	entries, _ := reopened.Entries(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted", entries[0].Text)
}

func TestStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o600))

	_, err := NewStore(dir, 10)
	assert.Error(t, err)
}

func TestStoreSavesInOrder(t *testing.T) {
	s, dir := newTestStore(t, 1000)
	ctx := context.Background()

	for i := range 100 {
		require.NoError(t, s.AddEntry(ctx, fmt.Sprintf("%d", i), "", 0, nil, nil))
	}
	s.Wait()

	saved := readSaved(t, dir)
	require.Len(t, saved, 100)
	assert.Equal(t, "99", saved[0].Text)
}

func TestStoreClose(t *testing.T) {
	s, _ := newTestStore(t, 10)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// Adds after close stay in memory only.
	require.NoError(t, s.AddEntry(context.Background(), "late", "", 0, nil, nil))
	entries, _ := s.Entries(context.Background())
	assert.Len(t, entries, 1)
}

func TestThumbnailPathRejectsTraversal(t *testing.T) {
	s, _ := newTestStore(t, 10)
	_, ok := s.ThumbnailPath(model.HistoryEntry{ThumbnailFile: "../history.json"})
	assert.False(t, ok)
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	small := Thumbnail(image.NewRGBA(image.Rect(0, 0, 50, 20)))
	assert.Equal(t, image.Pt(50, 20), small.Bounds().Size())

	tall := Thumbnail(image.NewRGBA(image.Rect(0, 0, 100, 1000)))
	assert.Equal(t, image.Pt(20, 200), tall.Bounds().Size())
}
