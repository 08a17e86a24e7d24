package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
)

const ollamaBaseURL = "http://localhost:11434"

// ollamaProvider implements Provider for a custom endpoint speaking the
// Ollama generate API. No API key is needed.
type ollamaProvider struct {
	baseProvider
	baseURL     string
	model       string
	temperature float64
}

func newOllamaProvider(s ProviderSettings) (Provider, error) {
	baseURL := s.Endpoint
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &ollamaProvider{
		baseProvider: newBaseProvider(s, baseURL),
		baseURL:      baseURL,
		model:        s.Model,
		temperature:  s.Temperature,
	}, nil
}

func (p *ollamaProvider) Name() string { return "Ollama" }

func (p *ollamaProvider) SupportsVision() bool { return true }

func (p *ollamaProvider) PerformOCR(ctx context.Context, img image.Image, prompt string) (string, error) {
	encoded, err := encodeImageBase64(img)
	if err != nil {
		return "", err
	}
	if prompt == "" {
		prompt = DefaultOCRPrompt
	}
	return p.generate(ctx, ollamaRequest{
		Model:  p.model,
		Prompt: prompt,
		Images: []string{encoded},
	})
}

func (p *ollamaProvider) ProcessText(ctx context.Context, text, prompt string) (string, error) {
	return p.generate(ctx, ollamaRequest{
		Model:  p.model,
		Prompt: fillPrompt(prompt, text),
	})
}

type ollamaRequest struct {
	Options map[string]any `json:"options,omitempty"`
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Error    string `json:"error"`
	Done     bool   `json:"done"`
}

func (p *ollamaProvider) generate(ctx context.Context, reqBody ollamaRequest) (string, error) {
	reqBody.Options = map[string]any{"temperature": p.temperature}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var text string
	err = p.call(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(jsonBody))
		if err != nil {
			return newError(KindInvalidEndpoint, p.baseURL, err)
		}
		req.Header.Set("Content-Type", "application/json")

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
			return responseError("ollama", resp, body)
		}

		var response ollamaResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return newError(KindResponseParsingFailed, "", err)
		}
		if response.Error != "" {
			return newError(KindProviderError, response.Error, nil)
		}
		text = response.Response
		return nil
	})
	if err != nil {
		return "", err
	}
	return cleanMarkdownWrapper(text), nil
}
