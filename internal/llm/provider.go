package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/service"
	"github.com/disintegration/imaging"
)

// Provider is one LLM backend usable for vision OCR and text refinement.
type Provider interface {
	Name() string
	SupportsVision() bool
	PerformOCR(ctx context.Context, img image.Image, prompt string) (string, error)
	ProcessText(ctx context.Context, text, prompt string) (string, error)
	CheckConnectivity(ctx context.Context) error
}

const (
	defaultTimeout     = 60 * time.Second
	defaultTemperature = 0.1
	defaultMaxTokens   = 4096

	maxImageDimension = 2048
	jpegQuality       = 85
	maxImageBytes     = 2 << 20
)

// NewProvider builds the provider described by s.
func NewProvider(s ProviderSettings) (Provider, error) {
	if s.Model == "" {
		s.Model = DefaultModel(s.Kind)
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	if s.Temperature == 0 {
		s.Temperature = defaultTemperature
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = defaultMaxTokens
	}
	s.APIKey = s.ResolveAPIKey()

	switch s.Kind {
	case ProviderOpenAI, "":
		return newOpenAIProvider(s)
	case ProviderAnthropic:
		return newAnthropicProvider(s)
	case ProviderCustom:
		return newOllamaProvider(s)
	case ProviderGemini:
		return newGeminiProvider(s)
	case ProviderOnDevice:
		return newOnDeviceProvider(s)
	default:
		return nil, newError(KindInvalidConfiguration, fmt.Sprintf("unsupported LLM provider: %s", s.Kind), nil)
	}
}

// baseProvider carries what every HTTP provider shares: a tuned client, a
// rate limiter, retry policy and the URL used for reachability probes.
type baseProvider struct {
	httpClient *http.Client
	limiter    *rateLimiter
	probeURL   string
	retry      service.RetryOptions
}

func newBaseProvider(s ProviderSettings, probeURL string) baseProvider {
	return baseProvider{
		httpClient: &http.Client{
			Timeout: s.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:  newRateLimiter(s.RateLimit),
		probeURL: probeURL,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// call waits for a rate-limit token, then runs op under the retry policy.
func (b *baseProvider) call(ctx context.Context, op func() error) error {
	if err := b.limiter.wait(ctx); err != nil {
		return err
	}
	err := common.WithRetry(ctx, op, b.retry)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return newError(KindTimeout, "", err)
	}
	return err
}

// CheckConnectivity probes the provider's base URL.
func (b *baseProvider) CheckConnectivity(ctx context.Context) error {
	return probe(ctx, b.httpClient, b.probeURL)
}

// retryAfter reads a Retry-After header given in seconds. Dates and
// malformed values yield zero.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// responseError is statusError for a raw HTTP response, carrying any
// Retry-After delay onto retryable errors.
func responseError(provider string, resp *http.Response, body []byte) error {
	err := statusError(provider, resp.StatusCode, body)
	var re *common.RetryableError
	if errors.As(err, &re) {
		re.After = retryAfter(resp.Header)
	}
	return err
}

// statusError maps a non-200 HTTP response onto the error taxonomy. Rate
// limits and server errors are marked retryable.
func statusError(provider string, status int, body []byte) error {
	msg := fmt.Sprintf("%s API error (status %d): %s", provider, status, strings.TrimSpace(string(body)))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(KindInvalidAPIKey, msg, nil)
	case status == http.StatusTooManyRequests:
		return &common.RetryableError{Err: newError(KindProviderError, msg, common.ErrRateLimit), Retryable: true}
	case status >= 500:
		return &common.RetryableError{Err: newError(KindProviderError, msg, nil), Retryable: true}
	case status == http.StatusNotFound:
		return newError(KindModelNotAvailable, msg, nil)
	default:
		return newError(KindProviderError, msg, nil)
	}
}

// encodeImage downsizes img to fit the provider limits and encodes it as
// JPEG, stepping quality down until the payload fits.
func encodeImage(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, newError(KindImageProcessingFailed, "empty image", common.ErrInvalidImage)
	}

	b := img.Bounds()
	if b.Dx() > maxImageDimension || b.Dy() > maxImageDimension {
		img = imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
	}

	var data []byte
	for quality := jpegQuality; quality >= 40; quality -= 15 {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, newError(KindImageProcessingFailed, "", err)
		}
		data = buf.Bytes()
		if len(data) <= maxImageBytes {
			break
		}
	}
	return data, nil
}

func encodeImageBase64(img image.Image) (string, error) {
	data, err := encodeImage(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// cleanMarkdownWrapper strips a ``` fence some models wrap their answer in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		// Drop a language hint such as ```text.
		if !strings.ContainsAny(content[:nl], " \t") {
			content = content[nl+1:]
		}
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
