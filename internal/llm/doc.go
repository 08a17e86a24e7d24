// Package llm unifies the language-model backends TRex can use for OCR and
// text refinement. It supports OpenAI, Anthropic, Gemini, Ollama-compatible
// local servers and an on-device command, with connectivity checks, retry
// logic, rate limiting, and result caching.
package llm
