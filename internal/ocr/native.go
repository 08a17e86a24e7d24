package ocr

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/Veraticus/trex/internal/langcode"
	"github.com/Veraticus/trex/internal/model"
	"github.com/disintegration/imaging"
)

// Native engine identity.
const (
	NativeIdentifier = "vision"
	NativeName       = "Apple Vision"
	NativePriority   = 50

	defaultNativeTimeout = 10 * time.Second
	defaultHelperPath    = "trex-vision"
)

var nativeLanguages = []string{
	"en-US", "fr-FR", "de-DE", "es-ES", "it-IT", "pt-BR",
	"zh-Hans", "zh-Hant", "ja-JP", "ko-KR",
	"ru-RU", "uk-UA", "th-TH", "vi-VN",
}

var nativeLanguageSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(nativeLanguages)*2)
	for _, tag := range nativeLanguages {
		set[tag] = struct{}{}
		set[strings.SplitN(tag, "-", 2)[0]] = struct{}{}
	}
	return set
}()

// Observation is one recognized line with its confidence.
type Observation struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Recognizer is the platform text recognition backend.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte, languages []string, level model.QualityLevel, customWords []string) ([]Observation, error)
}

// HelperRecognizer runs an external recognizer executable. The PNG is written
// to its stdin and it prints one JSON Observation per line.
type HelperRecognizer struct {
	Path string
}

// Recognize implements Recognizer.
func (h HelperRecognizer) Recognize(ctx context.Context, png []byte, languages []string, level model.QualityLevel, customWords []string) ([]Observation, error) {
	path := h.Path
	if path == "" {
		path = defaultHelperPath
	}
	if _, err := exec.LookPath(path); err != nil {
		return nil, fmt.Errorf("recognizer helper %s not found: %w", path, err)
	}

	args := []string{
		"--languages", strings.Join(languages, ","),
		"--level", level.String(),
	}
	if len(customWords) > 0 {
		args = append(args, "--words", strings.Join(customWords, ","))
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(png)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("recognizer helper failed: %s: %w", strings.TrimSpace(stderr.String()), err)
		}
		return nil, fmt.Errorf("failed to execute recognizer helper: %w", err)
	}

	return parseObservations(&stdout)
}

func parseObservations(r *bytes.Buffer) ([]Observation, error) {
	var observations []Observation
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obs Observation
		if err := json.Unmarshal([]byte(line), &obs); err != nil {
			return nil, fmt.Errorf("invalid recognizer output %q: %w", line, err)
		}
		observations = append(observations, obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recognizer output: %w", err)
	}
	return observations, nil
}

// NativeEngine is the platform recognizer engine.
type NativeEngine struct {
	recognizer  Recognizer
	logger      *slog.Logger
	customWords []string
	timeout     time.Duration
}

// NativeOption customizes a NativeEngine.
type NativeOption func(*NativeEngine)

// WithNativeTimeout bounds each recognition call.
func WithNativeTimeout(d time.Duration) NativeOption {
	return func(e *NativeEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithCustomWords passes vocabulary hints to the recognizer.
func WithCustomWords(words []string) NativeOption {
	return func(e *NativeEngine) { e.customWords = words }
}

// WithNativeLogger sets the logger.
func WithNativeLogger(l *slog.Logger) NativeOption {
	return func(e *NativeEngine) { e.logger = l }
}

// NewNativeEngine creates the engine around recognizer.
func NewNativeEngine(recognizer Recognizer, opts ...NativeOption) *NativeEngine {
	e := &NativeEngine{
		recognizer: recognizer,
		timeout:    defaultNativeTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *NativeEngine) Name() string       { return NativeName }
func (e *NativeEngine) Identifier() string { return NativeIdentifier }
func (e *NativeEngine) Priority() int      { return NativePriority }

// SupportsLanguage accepts the fixed platform set in region or bare form.
func (e *NativeEngine) SupportsLanguage(tag string) bool {
	_, ok := nativeLanguageSet[langcode.Standardize(tag)]
	return ok
}

// SupportedLanguages lists the region-form tags.
func (e *NativeEngine) SupportedLanguages() []string {
	out := make([]string, len(nativeLanguages))
	copy(out, nativeLanguages)
	return out
}

type nativeOutcome struct {
	err          error
	observations []Observation
}

// RecognizeText runs the recognizer under the engine timeout.
func (e *NativeEngine) RecognizeText(ctx context.Context, img image.Image, languages []string, level model.QualityLevel) (model.OCRResult, error) {
	if err := validateImage(img); err != nil {
		return model.OCRResult{}, err
	}
	languages = languagesOrDefault(languages)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return model.OCRResult{}, fmt.Errorf("failed to encode image: %w", err)
	}

	tags := make([]string, len(languages))
	for i, tag := range languages {
		tags[i] = langcode.Standardize(tag)
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan nativeOutcome, 1)
	go func() {
		obs, err := e.recognizer.Recognize(callCtx, buf.Bytes(), tags, level, e.customWords)
		done <- nativeOutcome{observations: obs, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	var outcome nativeOutcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		return model.OCRResult{}, fmt.Errorf("native recognition: %w", ctx.Err())
	case <-timer.C:
		e.logger.Warn("Native recognition timed out", "timeout", e.timeout)
		return model.OCRResult{}, fmt.Errorf("native recognition timed out after %s: %w", e.timeout, context.DeadlineExceeded)
	}

	if outcome.err != nil {
		return model.OCRResult{}, fmt.Errorf("native recognition failed: %w", outcome.err)
	}

	lines := make([]string, 0, len(outcome.observations))
	confidences := make([]float64, 0, len(outcome.observations))
	for _, obs := range outcome.observations {
		lines = append(lines, obs.Text)
		confidences = append(confidences, obs.Confidence)
	}

	return model.OCRResult{
		Text:                strings.Join(lines, "\n"),
		Confidence:          mean(confidences),
		RecognizedLanguages: languages,
		EngineName:          NativeName,
		RecognitionLevel:    level.String(),
	}, nil
}
