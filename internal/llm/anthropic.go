package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com"

// anthropicProvider implements Provider for the Anthropic Messages API.
type anthropicProvider struct {
	baseProvider
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

func newAnthropicProvider(s ProviderSettings) (Provider, error) {
	if s.APIKey == "" {
		return nil, newError(KindInvalidAPIKey, "anthropic API key is required", nil)
	}

	baseURL := anthropicBaseURL
	if s.Endpoint != "" {
		baseURL = strings.TrimRight(s.Endpoint, "/")
	}

	return &anthropicProvider{
		baseProvider: newBaseProvider(s, baseURL),
		apiKey:       s.APIKey,
		baseURL:      baseURL,
		model:        s.Model,
		temperature:  s.Temperature,
		maxTokens:    s.MaxTokens,
	}, nil
}

func (p *anthropicProvider) Name() string { return "Anthropic" }

func (p *anthropicProvider) SupportsVision() bool { return true }

// PerformOCR sends a base64 image block followed by the prompt.
func (p *anthropicProvider) PerformOCR(ctx context.Context, img image.Image, prompt string) (string, error) {
	encoded, err := encodeImageBase64(img)
	if err != nil {
		return "", err
	}
	if prompt == "" {
		prompt = DefaultOCRPrompt
	}

	content := []map[string]any{
		{
			"type": "image",
			"source": map[string]string{
				"type":       "base64",
				"media_type": "image/jpeg",
				"data":       encoded,
			},
		},
		{"type": "text", "text": prompt},
	}
	return p.send(ctx, content)
}

// ProcessText fills the prompt template and returns the reply.
func (p *anthropicProvider) ProcessText(ctx context.Context, text, prompt string) (string, error) {
	content := []map[string]any{
		{"type": "text", "text": fillPrompt(prompt, text)},
	}
	return p.send(ctx, content)
}

func (p *anthropicProvider) send(ctx context.Context, content []map[string]any) (string, error) {
	requestBody := map[string]any{
		"model":       p.model,
		"max_tokens":  p.maxTokens,
		"temperature": p.temperature,
		"messages": []map[string]any{
			{
				"role":    "user",
				"content": content,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var text string
	err = p.call(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
		if err != nil {
			return newError(KindInvalidEndpoint, p.baseURL, err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return newError(KindProviderError, "request failed", err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return newError(KindProviderError, "failed to read response", err)
		}

		if resp.StatusCode != http.StatusOK {
			return responseError("anthropic", resp, body)
		}

		var response anthropicResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return newError(KindResponseParsingFailed, "", err)
		}

		var parts []string
		for _, block := range response.Content {
			if block.Type == "text" {
				parts = append(parts, block.Text)
			}
		}
		if len(parts) == 0 {
			return newError(KindResponseParsingFailed, "no content in response", nil)
		}
		text = strings.Join(parts, "")
		return nil
	})
	if err != nil {
		return "", err
	}
	return cleanMarkdownWrapper(text), nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
