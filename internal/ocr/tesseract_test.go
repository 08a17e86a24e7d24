package ocr

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tesseractCall struct {
	dataDir   string
	languages string
	level     model.QualityLevel
}

func installLanguage(t *testing.T, dir, code string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, code+traineddataExt), []byte("trained-data"), 0o644))
}

func newTestTesseract(t *testing.T, run func(string, string, []byte, model.QualityLevel) (string, float64, error)) (*TesseractEngine, string) {
	t.Helper()
	d, dir := newTestDownloader(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("trained-data"))
	})
	e := NewTesseractEngine(d, nil)
	e.run = run
	return e, dir
}

func TestTesseractEngineRecognize(t *testing.T) {
	calls := make(chan tesseractCall, 1)
	e, dir := newTestTesseract(t, func(dataDir, languages string, png []byte, level model.QualityLevel) (string, float64, error) {
		assert.NotEmpty(t, png)
		calls <- tesseractCall{dataDir: dataDir, languages: languages, level: level}
		return "Hello World", 0.87, nil
	})
	installLanguage(t, dir, "eng")

	res, err := e.RecognizeText(context.Background(), textImage("Hello World"), []string{"en-US", "fr-FR"}, model.QualityFast)
	require.NoError(t, err)

	call := <-calls
	assert.Equal(t, dir, call.dataDir)
	assert.Equal(t, "eng+fra", call.languages)
	assert.Equal(t, model.QualityFast, call.level)

	assert.Equal(t, "Hello World", res.Text)
	assert.InDelta(t, 0.87, res.Confidence, 1e-9)
	assert.Equal(t, TesseractName, res.EngineName)
	assert.Equal(t, []string{"en-US", "fr-FR"}, res.RecognizedLanguages)

	// fra was downloaded on demand.
	assert.True(t, e.downloader.IsInstalled("fra"))
}

func TestTesseractEngineUnknownLanguage(t *testing.T) {
	e, _ := newTestTesseract(t, func(string, string, []byte, model.QualityLevel) (string, float64, error) {
		t.Error("recognition must not run")
		return "", 0, nil
	})

	_, err := e.RecognizeText(context.Background(), textImage("x"), []string{"xx-YY"}, model.QualityAccurate)
	assert.ErrorIs(t, err, common.ErrLanguageUnavailable)
}

func TestTesseractEngineTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	e, dir := newTestTesseract(t, func(string, string, []byte, model.QualityLevel) (string, float64, error) {
		<-release
		return "late", 1, nil
	})
	installLanguage(t, dir, "eng")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.RecognizeText(ctx, textImage("slow"), nil, model.QualityAccurate)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTesseractEngineHoldsLanguageDuringRecognition(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	e, dir := newTestTesseract(t, func(string, string, []byte, model.QualityLevel) (string, float64, error) {
		close(started)
		<-release
		return "text", 1, nil
	})
	installLanguage(t, dir, "eng")

	result := make(chan error, 1)
	go func() {
		_, err := e.RecognizeText(context.Background(), textImage("text"), nil, model.QualityAccurate)
		result <- err
	}()
	<-started

	deleted := make(chan error, 1)
	go func() { deleted <- e.downloader.Delete("eng") }()

	select {
	case <-deleted:
		t.Fatal("delete finished while recognition was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-result)
	require.NoError(t, <-deleted)
	assert.False(t, e.downloader.IsInstalled("eng"))
}
