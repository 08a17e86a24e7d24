package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ProviderKind selects an LLM backend.
type ProviderKind string

// Supported providers.
const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderCustom    ProviderKind = "custom"
	ProviderGemini    ProviderKind = "gemini"
	ProviderOnDevice  ProviderKind = "ondevice"
)

// ParseProviderKind accepts the provider names used in config files.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "":
		return ProviderOpenAI, nil
	case "anthropic":
		return ProviderAnthropic, nil
	case "custom", "ollama":
		return ProviderCustom, nil
	case "gemini":
		return ProviderGemini, nil
	case "ondevice", "apple":
		return ProviderOnDevice, nil
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", s)
	}
}

// DisplayName is the name used in engine labels, e.g. "LLM Vision (OpenAI)".
func (k ProviderKind) DisplayName() string {
	switch k {
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderCustom:
		return "Ollama"
	case ProviderGemini:
		return "Gemini"
	case ProviderOnDevice:
		return "On-Device"
	default:
		return "OpenAI"
	}
}

// APIKeyEnvVar returns the environment variable consulted when no key is
// configured, or "" for providers that need no key.
func (k ProviderKind) APIKeyEnvVar() string {
	switch k {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// RequiresAPIKey reports whether the provider refuses to start without a key.
func (k ProviderKind) RequiresAPIKey() bool {
	return k.APIKeyEnvVar() != ""
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(k ProviderKind) string {
	switch k {
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	case ProviderCustom:
		return "llama3.2-vision"
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderOnDevice:
		return "default"
	default:
		return "gpt-4o"
	}
}

// Default prompts.
const (
	DefaultOCRPrompt = "Extract all visible text from this image. Preserve the layout and formatting as much as possible. Return only the extracted text without any additional commentary."

	DefaultPostProcessPrompt = `You are given OCR output that may contain errors. Please:
1. Correct any obvious spelling or recognition errors
2. Fix formatting issues (spacing, line breaks)
3. Preserve the original structure and meaning
4. Return only the corrected text without explanations

OCR Text:
{text}`
)

// ProviderSettings configures one provider instance.
type ProviderSettings struct {
	Kind     ProviderKind
	APIKey   string
	Endpoint string
	Model    string
	// Command is the executable used by the on-device provider.
	Command     string
	Timeout     time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// ResolveAPIKey returns the configured key, else the provider's environment
// variable, else "".
func (s ProviderSettings) ResolveAPIKey() string {
	if s.APIKey != "" {
		return s.APIKey
	}
	if env := s.Kind.APIKeyEnvVar(); env != "" {
		return os.Getenv(env)
	}
	return ""
}

// Configuration holds the settings for both LLM roles: OCR and post-processing.
type Configuration struct {
	OCR                  ProviderSettings
	PostProcess          ProviderSettings
	OCRPrompt            string
	PostProcessPrompt    string
	EnableLLMOCR         bool
	EnablePostProcessing bool
	FallbackToBuiltInOCR bool
}

// DefaultConfiguration returns the configuration used before any settings are
// loaded: OpenAI for both roles, features off, fallback on.
func DefaultConfiguration() Configuration {
	return Configuration{
		OCR:                  ProviderSettings{Kind: ProviderOpenAI, Model: DefaultModel(ProviderOpenAI)},
		PostProcess:          ProviderSettings{Kind: ProviderOpenAI, Model: DefaultModel(ProviderOpenAI)},
		OCRPrompt:            DefaultOCRPrompt,
		PostProcessPrompt:    DefaultPostProcessPrompt,
		FallbackToBuiltInOCR: true,
	}
}

// fillPrompt substitutes the first {text} placeholder only.
func fillPrompt(prompt, text string) string {
	if !strings.Contains(prompt, "{text}") {
		if prompt == "" {
			return text
		}
		return prompt + "\n\n" + text
	}
	return strings.Replace(prompt, "{text}", text, 1)
}
