package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/langcode"
	"github.com/Veraticus/trex/internal/model"
)

// Tesseract engine identity.
const (
	TesseractIdentifier = "tesseract"
	TesseractName       = "Tesseract OCR"
	TesseractPriority   = 100
)

// TesseractEngine recognizes text with libtesseract, downloading missing
// language data on demand.
type TesseractEngine struct {
	downloader *Downloader
	logger     *slog.Logger
	run        func(dataDir, languages string, png []byte, level model.QualityLevel) (string, float64, error)
}

// NewTesseractEngine creates the engine over downloader's data directory.
func NewTesseractEngine(downloader *Downloader, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{downloader: downloader, logger: logger, run: runTesseract}
}

func (e *TesseractEngine) Name() string       { return TesseractName }
func (e *TesseractEngine) Identifier() string { return TesseractIdentifier }
func (e *TesseractEngine) Priority() int      { return TesseractPriority }

// SupportsLanguage is true when the language is installed or downloadable.
func (e *TesseractEngine) SupportsLanguage(tag string) bool {
	code := langcode.ToTesseract(tag)
	if e.downloader.IsInstalled(code) {
		return true
	}
	_, ok := Lookup(code)
	return ok
}

// RecognizeText ensures every language is installed, then runs Tesseract.
// libtesseract cannot be interrupted, so a cancelled ctx returns at once while
// the recognition finishes in the background.
func (e *TesseractEngine) RecognizeText(ctx context.Context, img image.Image, languages []string, level model.QualityLevel) (model.OCRResult, error) {
	if err := validateImage(img); err != nil {
		return model.OCRResult{}, err
	}
	languages = languagesOrDefault(languages)
	codes := langcode.ToTesseractList(languages)

	png, err := preprocessForTesseract(img)
	if err != nil {
		return model.OCRResult{}, err
	}

	unlock, err := e.acquire(ctx, codes)
	if err != nil {
		return model.OCRResult{}, err
	}

	type outcome struct {
		err        error
		text       string
		confidence float64
	}
	done := make(chan outcome, 1)
	go func() {
		defer unlock()
		text, confidence, err := e.run(e.downloader.DataDir(), langcode.JoinTesseract(codes), png, level)
		done <- outcome{text: text, confidence: confidence, err: err}
	}()

	var res outcome
	select {
	case <-ctx.Done():
		return model.OCRResult{}, fmt.Errorf("tesseract recognition: %w", ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return model.OCRResult{}, res.err
	}

	return model.OCRResult{
		Text:                res.text,
		Confidence:          res.confidence,
		RecognizedLanguages: languages,
		EngineName:          TesseractName,
		RecognitionLevel:    level.String(),
	}, nil
}

// acquire read-locks codes once every one is installed, downloading missing
// languages with the locks released. A language deleted between the download
// and the lock is an error.
func (e *TesseractEngine) acquire(ctx context.Context, codes []string) (func(), error) {
	for attempt := 0; ; attempt++ {
		unlock := e.downloader.lockForRecognition(codes)
		missing := e.missing(codes)
		if len(missing) == 0 {
			return unlock, nil
		}
		unlock()

		if attempt > 0 {
			return nil, fmt.Errorf("tesseract language %s was removed: %w", missing[0], common.ErrLanguageUnavailable)
		}
		for _, code := range missing {
			if _, ok := Lookup(code); !ok {
				return nil, fmt.Errorf("tesseract language %s: %w", code, common.ErrLanguageUnavailable)
			}
			e.logger.Info("Language data missing, downloading", "language", code)
			if err := e.downloader.Download(ctx, code, nil); err != nil {
				return nil, fmt.Errorf("tesseract language %s: %w", code, err)
			}
		}
	}
}

func (e *TesseractEngine) missing(codes []string) []string {
	var out []string
	for _, code := range codes {
		if !e.downloader.IsInstalled(code) {
			out = append(out, code)
		}
	}
	return out
}
