package ocr

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/model"
	"github.com/Veraticus/trex/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
	Multiplier:   2,
}

func newTestDownloader(t *testing.T, handler http.HandlerFunc) (*Downloader, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	return NewDownloader(dir, WithBaseURL(server.URL), WithDownloadRetry(fastRetry)), dir
}

func TestDownloaderDownload(t *testing.T) {
	var hits atomic.Int32
	d, dir := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/fra.traineddata", r.URL.Path)
		_, _ = w.Write([]byte("trained-data"))
	})

	var progress bytes.Buffer
	require.NoError(t, d.Download(context.Background(), "fra", &progress))

	data, err := os.ReadFile(filepath.Join(dir, "fra.traineddata"))
	require.NoError(t, err)
	assert.Equal(t, "trained-data", string(data))
	assert.Equal(t, "trained-data", progress.String())
	assert.True(t, d.IsInstalled("fra"))

	// Installed languages are not fetched again.
	require.NoError(t, d.Download(context.Background(), "fra", nil))
	assert.Equal(t, int32(1), hits.Load())

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloaderRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	d, _ := newTestDownloader(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	require.NoError(t, d.Download(context.Background(), "deu", nil))
	assert.Equal(t, int32(3), hits.Load())
	assert.True(t, d.IsInstalled("deu"))
}

func TestDownloaderDoesNotRetryNotFound(t *testing.T) {
	var hits atomic.Int32
	d, _ := newTestDownloader(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	err := d.Download(context.Background(), "spa", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, d.IsInstalled("spa"))
}

func TestDownloaderRejectsUnknownCodes(t *testing.T) {
	d, _ := newTestDownloader(t, func(http.ResponseWriter, *http.Request) {
		assert.Fail(t, "no request expected")
	})

	for _, code := range []string{"klingon", "../etc/passwd", ""} {
		err := d.Download(context.Background(), code, nil)
		assert.ErrorIs(t, err, common.ErrLanguageUnavailable, code)
	}
}

func TestDownloaderInventory(t *testing.T) {
	d, dir := newTestDownloader(t, func(http.ResponseWriter, *http.Request) {})

	installed, err := d.Installed()
	require.NoError(t, err)
	assert.Empty(t, installed)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "eng.traineddata"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jpn.traineddata"), make([]byte, 50), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	installed, err = d.Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"eng", "jpn"}, installed)

	size, err := d.TotalInstalledSize()
	require.NoError(t, err)
	assert.Equal(t, int64(150), size)

	require.NoError(t, d.Delete("jpn"))
	require.NoError(t, d.Delete("jpn"))
	assert.False(t, d.IsInstalled("jpn"))
	assert.Error(t, d.Delete("../eng"))
}

func TestDownloaderMissingDataDir(t *testing.T) {
	d := NewDownloader(filepath.Join(t.TempDir(), "missing"))
	installed, err := d.Installed()
	require.NoError(t, err)
	assert.Empty(t, installed)
}

func TestCatalog(t *testing.T) {
	all := Catalog()
	assert.GreaterOrEqual(t, len(all), 100)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Name, all[i].Name)
	}

	eng, ok := Lookup("eng")
	require.True(t, ok)
	assert.Equal(t, "English (eng)", eng.DisplayName())

	_, ok = Lookup("xyz")
	assert.False(t, ok)
}

func TestTesseractSupportsLanguage(t *testing.T) {
	d, dir := newTestDownloader(t, func(http.ResponseWriter, *http.Request) {})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tlh.traineddata"), []byte("x"), 0o644))
	e := NewTesseractEngine(d, nil)

	assert.True(t, e.SupportsLanguage("fr-FR"), "downloadable")
	assert.True(t, e.SupportsLanguage("tlh"), "installed locally")
	assert.False(t, e.SupportsLanguage("xx-YY"))
}

func TestTesseractRejectsUnavailableLanguage(t *testing.T) {
	d, _ := newTestDownloader(t, func(http.ResponseWriter, *http.Request) {})
	e := NewTesseractEngine(d, nil)

	_, err := e.RecognizeText(context.Background(), textImage("hi"), []string{"xx-YY"}, model.QualityAccurate)
	assert.ErrorIs(t, err, common.ErrLanguageUnavailable)

	_, err = e.RecognizeText(context.Background(), nil, nil, model.QualityAccurate)
	assert.ErrorIs(t, err, common.ErrInvalidImage)
}

func TestTesseractRecognize(t *testing.T) {
	if !TesseractAvailable {
		t.Skip("built without cgo")
	}
	dataDir := os.Getenv("TESSDATA_PREFIX")
	if dataDir == "" {
		t.Skip("TESSDATA_PREFIX not set")
	}
	d := NewDownloader(dataDir)
	if !d.IsInstalled("eng") {
		t.Skip("eng.traineddata not installed")
	}

	e := NewTesseractEngine(d, nil)
	res, err := e.RecognizeText(context.Background(), textImage("HELLO WORLD"), []string{"en-US"}, model.QualityAccurate)
	require.NoError(t, err)
	assert.Equal(t, "Tesseract OCR", res.EngineName)
	assert.Equal(t, []string{"en-US"}, res.RecognizedLanguages)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestLanguageLocksSerializeWriters(t *testing.T) {
	locks := newLanguageLocks()
	unlock := locks.rlockAll([]string{"fra", "eng", "fra"})

	acquired := make(chan struct{})
	go func() {
		l := locks.get("eng")
		l.Lock()
		close(acquired)
		l.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("writer acquired lock while readers held it")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired lock")
	}
}
