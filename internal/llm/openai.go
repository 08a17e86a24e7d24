package llm

import (
	"context"
	"errors"
	"image"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openAIBaseURL = "https://api.openai.com/v1"

// openAIProvider talks to OpenAI, or to any OpenAI-compatible server when an
// endpoint is configured.
type openAIProvider struct {
	baseProvider
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func newOpenAIProvider(s ProviderSettings) (Provider, error) {
	if s.APIKey == "" {
		return nil, newError(KindInvalidAPIKey, "OpenAI API key is required", nil)
	}

	cfg := openai.DefaultConfig(s.APIKey)
	baseURL := openAIBaseURL
	if s.Endpoint != "" {
		baseURL = strings.TrimRight(s.Endpoint, "/")
	}
	cfg.BaseURL = baseURL

	return &openAIProvider{
		baseProvider: newBaseProvider(s, baseURL),
		client:       openai.NewClientWithConfig(cfg),
		model:        s.Model,
		temperature:  float32(s.Temperature),
		maxTokens:    s.MaxTokens,
	}, nil
}

func (p *openAIProvider) Name() string { return "OpenAI" }

func (p *openAIProvider) SupportsVision() bool { return true }

// PerformOCR sends the image as a data URI alongside the prompt.
func (p *openAIProvider) PerformOCR(ctx context.Context, img image.Image, prompt string) (string, error) {
	encoded, err := encodeImageBase64(img)
	if err != nil {
		return "", err
	}
	if prompt == "" {
		prompt = DefaultOCRPrompt
	}

	msg := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:image/jpeg;base64," + encoded,
					Detail: openai.ImageURLDetailHigh,
				},
			},
		},
	}
	return p.complete(ctx, msg)
}

// ProcessText fills the prompt template and returns the completion.
func (p *openAIProvider) ProcessText(ctx context.Context, text, prompt string) (string, error) {
	return p.complete(ctx, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fillPrompt(prompt, text),
	})
}

func (p *openAIProvider) complete(ctx context.Context, msg openai.ChatCompletionMessage) (string, error) {
	var content string
	err := p.call(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       p.model,
			Messages:    []openai.ChatCompletionMessage{msg},
			Temperature: p.temperature,
			MaxTokens:   p.maxTokens,
		})
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return newError(KindResponseParsingFailed, "no completion choices returned", nil)
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return cleanMarkdownWrapper(content), nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError("OpenAI", apiErr.HTTPStatusCode, []byte(apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusError("OpenAI", reqErr.HTTPStatusCode, []byte(reqErr.Error()))
	}
	return newError(KindProviderError, "request failed", err)
}
