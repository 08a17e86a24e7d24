package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/Veraticus/trex/internal/llm"
	"github.com/Veraticus/trex/internal/model"
)

// LLM engine identity.
const (
	LLMIdentifier      = "llm"
	LLMName            = "LLM Vision"
	DefaultLLMPriority = 60

	llmConfidence       = 0.95
	llmRecognitionLevel = "high-accuracy"
)

// LLMEngine performs OCR through a vision-capable LLM provider and can hand
// failed requests to a fallback engine.
type LLMEngine struct {
	provider llm.Provider
	fallback Engine
	checker  llm.Checker
	logger   *slog.Logger
	factory  func(llm.ProviderSettings) (llm.Provider, error)
	cfg      llm.Configuration
	priority int
	mu       sync.RWMutex
}

// LLMOption customizes an LLMEngine.
type LLMOption func(*LLMEngine)

// WithLLMPriority sets the registry priority.
func WithLLMPriority(p int) LLMOption {
	return func(e *LLMEngine) {
		if p > 0 {
			e.priority = p
		}
	}
}

// WithNetworkChecker sets the network checker consulted before each request.
func WithNetworkChecker(c llm.Checker) LLMOption {
	return func(e *LLMEngine) { e.checker = c }
}

// WithLLMLogger sets the logger.
func WithLLMLogger(l *slog.Logger) LLMOption {
	return func(e *LLMEngine) { e.logger = l }
}

// WithProviderFactory replaces llm.NewProvider.
func WithProviderFactory(f func(llm.ProviderSettings) (llm.Provider, error)) LLMOption {
	return func(e *LLMEngine) { e.factory = f }
}

// NewLLMEngine creates the engine. It never fails: a provider that cannot be
// built leaves the engine unavailable until UpdateConfiguration succeeds.
func NewLLMEngine(cfg llm.Configuration, fallback Engine, opts ...LLMOption) *LLMEngine {
	e := &LLMEngine{
		fallback: fallback,
		priority: DefaultLLMPriority,
		logger:   slog.Default(),
		factory:  llm.NewProvider,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.UpdateConfiguration(cfg)
	return e
}

// UpdateConfiguration rebuilds the provider from cfg.
func (e *LLMEngine) UpdateConfiguration(cfg llm.Configuration) {
	provider, err := e.factory(cfg.OCR)
	if err != nil {
		e.logger.Warn("LLM OCR provider unavailable",
			"provider", cfg.OCR.Kind,
			"error", err)
		provider = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.provider = provider
}

// IsAvailable reports whether a provider is configured.
func (e *LLMEngine) IsAvailable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.provider != nil
}

func (e *LLMEngine) Name() string       { return LLMName }
func (e *LLMEngine) Identifier() string { return LLMIdentifier }
func (e *LLMEngine) Priority() int      { return e.priority }

// SupportsLanguage is always true; priority decides whether this engine is
// chosen over language-specific ones.
func (e *LLMEngine) SupportsLanguage(string) bool { return true }

// RecognizeText runs the precondition chain and the provider call, falling
// back when configured to.
func (e *LLMEngine) RecognizeText(ctx context.Context, img image.Image, languages []string, level model.QualityLevel) (model.OCRResult, error) {
	if err := validateImage(img); err != nil {
		return model.OCRResult{}, err
	}
	languages = languagesOrDefault(languages)

	e.mu.RLock()
	provider := e.provider
	cfg := e.cfg
	e.mu.RUnlock()

	text, err := e.perform(ctx, provider, cfg, img)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return model.OCRResult{}, err
		}
		if cfg.FallbackToBuiltInOCR && e.fallback != nil {
			e.logger.Warn("LLM OCR failed, using fallback engine",
				"fallback", e.fallback.Identifier(),
				"error", err)
			return e.fallback.RecognizeText(ctx, img, languages, level)
		}
		return model.OCRResult{}, err
	}

	return model.OCRResult{
		Text:                text,
		Confidence:          llmConfidence,
		RecognizedLanguages: languages,
		EngineName:          fmt.Sprintf("%s (%s)", LLMName, cfg.OCR.Kind.DisplayName()),
		RecognitionLevel:    llmRecognitionLevel,
	}, nil
}

func (e *LLMEngine) perform(ctx context.Context, provider llm.Provider, cfg llm.Configuration, img image.Image) (string, error) {
	if provider == nil {
		return "", &llm.Error{Kind: llm.KindInvalidAPIKey, Message: "LLM OCR provider is not configured"}
	}
	if e.checker != nil && !e.checker.IsNetworkAvailable() {
		return "", llm.ErrNetworkUnavailable
	}
	if err := provider.CheckConnectivity(ctx); err != nil {
		return "", &llm.Error{Kind: llm.KindNetworkUnavailable, Message: provider.Name() + " is unreachable", Err: err}
	}
	if !provider.SupportsVision() {
		return "", &llm.Error{Kind: llm.KindUnsupportedOperation, Message: provider.Name() + " has no vision support"}
	}

	prompt := cfg.OCRPrompt
	if prompt == "" {
		prompt = llm.DefaultOCRPrompt
	}
	return provider.PerformOCR(ctx, img, prompt)
}
