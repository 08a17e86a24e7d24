// Package ocr defines the OCR engine abstraction, the engine registry, and the
// built-in engines: the platform recognizer helper, Tesseract, and the
// LLM-backed engine that can fall back to either.
package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/model"
)

// DefaultLanguages is used when a caller does not name any languages.
var DefaultLanguages = []string{"en-US"}

// Engine recognizes text in images.
type Engine interface {
	// Name is the human-readable engine name.
	Name() string
	// Identifier is the stable key used in configuration and the registry.
	Identifier() string
	// Priority orders engines; higher wins.
	Priority() int
	// SupportsLanguage reports whether the engine can recognize tag.
	SupportsLanguage(tag string) bool
	// RecognizeText runs recognition with the given languages and quality.
	RecognizeText(ctx context.Context, img image.Image, languages []string, level model.QualityLevel) (model.OCRResult, error)
}

// Recognize runs e with the default languages.
func Recognize(ctx context.Context, e Engine, img image.Image, level model.QualityLevel) (model.OCRResult, error) {
	return e.RecognizeText(ctx, img, DefaultLanguages, level)
}

func validateImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("nil image: %w", common.ErrInvalidImage)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("image has no area (%dx%d): %w", b.Dx(), b.Dy(), common.ErrInvalidImage)
	}
	return nil
}

func languagesOrDefault(languages []string) []string {
	if len(languages) == 0 {
		return DefaultLanguages
	}
	return languages
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
