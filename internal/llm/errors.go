package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies LLM failures.
type ErrorKind int

// Error kinds.
const (
	KindNetworkUnavailable ErrorKind = iota + 1
	KindInvalidAPIKey
	KindInvalidEndpoint
	KindProviderError
	KindImageProcessingFailed
	KindResponseParsingFailed
	KindTimeout
	KindInvalidConfiguration
	KindUnsupportedOperation
	KindModelNotAvailable
)

var kindText = map[ErrorKind]string{
	KindNetworkUnavailable:    "network is unavailable",
	KindInvalidAPIKey:         "invalid or missing API key",
	KindInvalidEndpoint:       "invalid endpoint URL",
	KindProviderError:         "LLM provider error",
	KindImageProcessingFailed: "failed to process image for LLM request",
	KindResponseParsingFailed: "failed to parse response from LLM provider",
	KindTimeout:               "LLM request timed out",
	KindInvalidConfiguration:  "invalid LLM configuration",
	KindUnsupportedOperation:  "unsupported operation",
	KindModelNotAvailable:     "model not available",
}

// Error is the error type returned by providers, the LLM engine and the
// post-processor.
type Error struct {
	Err     error
	Message string
	Kind    ErrorKind
}

func (e *Error) Error() string {
	msg := kindText[e.Kind]
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNetworkUnavailable   = &Error{Kind: KindNetworkUnavailable}
	ErrInvalidAPIKey        = &Error{Kind: KindInvalidAPIKey}
	ErrInvalidEndpoint      = &Error{Kind: KindInvalidEndpoint}
	ErrProvider             = &Error{Kind: KindProviderError}
	ErrImageProcessing      = &Error{Kind: KindImageProcessingFailed}
	ErrResponseParsing      = &Error{Kind: KindResponseParsingFailed}
	ErrTimeout              = &Error{Kind: KindTimeout}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrUnsupportedOperation = &Error{Kind: KindUnsupportedOperation}
	ErrModelNotAvailable    = &Error{Kind: KindModelNotAvailable}
)

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
