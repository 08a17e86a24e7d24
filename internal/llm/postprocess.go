package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// PostProcessor refines OCR text through the configured post-processing
// provider.
type PostProcessor struct {
	provider Provider
	checker  Checker
	logger   *slog.Logger
	cache    *resultCache
	factory  func(ProviderSettings) (Provider, error)
	cfg      Configuration
	mu       sync.RWMutex
}

// PostProcessorOption customizes a PostProcessor.
type PostProcessorOption func(*PostProcessor)

// WithPostProcessLogger sets the logger.
func WithPostProcessLogger(l *slog.Logger) PostProcessorOption {
	return func(p *PostProcessor) { p.logger = l }
}

// WithPostProcessProvider replaces the provider built from configuration.
func WithPostProcessProvider(provider Provider) PostProcessorOption {
	return func(p *PostProcessor) {
		p.factory = func(ProviderSettings) (Provider, error) { return provider, nil }
	}
}

// WithCacheTTL sets how long refined results are reused.
func WithCacheTTL(ttl time.Duration) PostProcessorOption {
	return func(p *PostProcessor) { p.cache = newResultCache(ttl) }
}

// NewPostProcessor creates a post-processor. A provider that cannot be built
// leaves the processor unavailable rather than failing construction.
func NewPostProcessor(cfg Configuration, checker Checker, opts ...PostProcessorOption) *PostProcessor {
	p := &PostProcessor{
		checker: checker,
		logger:  slog.Default(),
		factory: NewProvider,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = newResultCache(0)
	}
	p.UpdateConfiguration(cfg)
	return p
}

// UpdateConfiguration rebuilds the provider from cfg and drops cached results.
func (p *PostProcessor) UpdateConfiguration(cfg Configuration) {
	provider, err := p.factory(cfg.PostProcess)
	if err != nil {
		p.logger.Warn("Post-processing provider unavailable",
			"provider", cfg.PostProcess.Kind,
			"error", err)
		provider = nil
	}

	p.mu.Lock()
	p.cfg = cfg
	p.provider = provider
	p.mu.Unlock()

	p.cache.clear()
}

// IsAvailable reports whether a provider is configured.
func (p *PostProcessor) IsAvailable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.provider != nil
}

// Enabled reports whether post-processing is switched on in configuration.
func (p *PostProcessor) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.EnablePostProcessing
}

// Process refines text with the configured post-processing prompt.
func (p *PostProcessor) Process(ctx context.Context, text, metadata string) (string, error) {
	p.mu.RLock()
	prompt := p.cfg.PostProcessPrompt
	p.mu.RUnlock()
	if prompt == "" {
		prompt = DefaultPostProcessPrompt
	}
	return p.ProcessWithPrompt(ctx, text, metadata, prompt)
}

// ProcessWithPrompt refines text with an explicit prompt template. Empty
// input is returned unchanged without touching the network.
func (p *PostProcessor) ProcessWithPrompt(ctx context.Context, text, metadata, prompt string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	p.mu.RLock()
	provider := p.provider
	p.mu.RUnlock()

	if provider == nil {
		return "", newError(KindInvalidAPIKey, "post-processing provider is not configured", nil)
	}

	key := cacheKey(provider.Name(), prompt, metadata, text)
	if cached, ok := p.cache.get(key); ok {
		return cached, nil
	}

	if p.checker != nil && !p.checker.IsNetworkAvailable() {
		return "", ErrNetworkUnavailable
	}

	if err := provider.CheckConnectivity(ctx); err != nil {
		return "", newError(KindNetworkUnavailable, provider.Name()+" is unreachable", err)
	}

	input := text
	if metadata != "" {
		input = fmt.Sprintf("OCR Context: %s\n\n%s", metadata, text)
	}

	refined, err := provider.ProcessText(ctx, input, prompt)
	if err != nil {
		return "", err
	}

	p.cache.set(key, refined)
	return refined, nil
}

// ProcessSilently returns the refined text, or the original text when
// refinement fails for any reason.
func (p *PostProcessor) ProcessSilently(ctx context.Context, text, metadata string) string {
	refined, err := p.Process(ctx, text, metadata)
	if err != nil {
		p.logger.Warn("Post-processing failed, keeping original text", "error", err)
		return text
	}
	return refined
}
