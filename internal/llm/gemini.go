package llm

import (
	"context"
	"errors"
	"image"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const geminiProbeURL = "https://generativelanguage.googleapis.com/"

// geminiProvider implements Provider with the Google Gemini SDK. A client is
// opened per request and closed before returning.
type geminiProvider struct {
	baseProvider
	apiKey      string
	endpoint    string
	model       string
	temperature float32
	maxTokens   int32
}

func newGeminiProvider(s ProviderSettings) (Provider, error) {
	if s.APIKey == "" {
		return nil, newError(KindInvalidAPIKey, "GEMINI_API_KEY is not set", nil)
	}

	probeURL := geminiProbeURL
	if s.Endpoint != "" {
		probeURL = s.Endpoint
	}

	return &geminiProvider{
		baseProvider: newBaseProvider(s, probeURL),
		apiKey:       s.APIKey,
		endpoint:     s.Endpoint,
		model:        s.Model,
		temperature:  float32(s.Temperature),
		maxTokens:    int32(s.MaxTokens),
	}, nil
}

func (p *geminiProvider) Name() string { return "Gemini" }

func (p *geminiProvider) SupportsVision() bool { return true }

func (p *geminiProvider) PerformOCR(ctx context.Context, img image.Image, prompt string) (string, error) {
	data, err := encodeImage(img)
	if err != nil {
		return "", err
	}
	if prompt == "" {
		prompt = DefaultOCRPrompt
	}
	return p.generate(ctx, genai.ImageData("jpeg", data), genai.Text(prompt))
}

func (p *geminiProvider) ProcessText(ctx context.Context, text, prompt string) (string, error) {
	return p.generate(ctx, genai.Text(fillPrompt(prompt, text)))
}

func (p *geminiProvider) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", newError(KindInvalidConfiguration, "failed to create gemini client", err)
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(p.model)
	model.SetTemperature(p.temperature)
	model.SetMaxOutputTokens(p.maxTokens)

	var text string
	err = p.call(ctx, func() error {
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return classifyGeminiError(err)
		}

		if len(resp.Candidates) == 0 {
			return newError(KindResponseParsingFailed, "no candidates returned from Gemini", nil)
		}

		candidate := resp.Candidates[0]
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			return newError(KindResponseParsingFailed, "empty content returned from Gemini", nil)
		}

		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
		if b.Len() == 0 {
			return newError(KindResponseParsingFailed, "unexpected response format from Gemini", nil)
		}
		text = b.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	return cleanMarkdownWrapper(text), nil
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return statusError("gemini", apiErr.Code, []byte(apiErr.Message))
	}
	return newError(KindProviderError, "failed to generate content", err)
}
