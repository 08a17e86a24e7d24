package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os/exec"
	"strings"
	"time"
)

const defaultOnDeviceCommand = "trex-llm"

// onDeviceProvider runs text refinement through a local model helper. The
// helper reads a prompt from -p and prints either plain text or a JSON object
// with a "result" field. It has no vision support.
type onDeviceProvider struct {
	cliPath string
	model   string
	timeout time.Duration
}

func newOnDeviceProvider(s ProviderSettings) (Provider, error) {
	cliPath := s.Command
	if cliPath == "" {
		cliPath = defaultOnDeviceCommand
	}

	return &onDeviceProvider{
		cliPath: cliPath,
		model:   s.Model,
		timeout: s.Timeout,
	}, nil
}

func (p *onDeviceProvider) Name() string { return "On-Device" }

func (p *onDeviceProvider) SupportsVision() bool { return false }

func (p *onDeviceProvider) PerformOCR(context.Context, image.Image, string) (string, error) {
	return "", newError(KindUnsupportedOperation, "on-device model does not support vision", nil)
}

func (p *onDeviceProvider) ProcessText(ctx context.Context, text, prompt string) (string, error) {
	if _, err := exec.LookPath(p.cliPath); err != nil {
		return "", newError(KindModelNotAvailable, fmt.Sprintf("%s not found", p.cliPath), err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	args := []string{"-p", fillPrompt(prompt, text)}
	if p.model != "" && p.model != "default" {
		args = append(args, "--model", p.model)
	}

	cmd := exec.CommandContext(ctx, p.cliPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", newError(KindTimeout, "", err)
		}
		if stderr.Len() > 0 {
			return "", newError(KindProviderError, strings.TrimSpace(stderr.String()), err)
		}
		return "", newError(KindProviderError, "failed to execute "+p.cliPath, err)
	}

	return parseOnDeviceOutput(stdout.Bytes())
}

// CheckConnectivity reports whether the helper is installed.
func (p *onDeviceProvider) CheckConnectivity(context.Context) error {
	if _, err := exec.LookPath(p.cliPath); err != nil {
		return newError(KindModelNotAvailable, fmt.Sprintf("%s not found", p.cliPath), err)
	}
	return nil
}

type onDeviceResponse struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

func parseOnDeviceOutput(out []byte) (string, error) {
	var response onDeviceResponse
	if err := json.Unmarshal(out, &response); err != nil {
		text := strings.TrimSpace(string(out))
		if text == "" {
			return "", newError(KindResponseParsingFailed, "empty response from on-device model", nil)
		}
		return text, nil
	}
	if response.IsError {
		return "", newError(KindProviderError, response.Result, nil)
	}
	if response.Result == "" {
		return "", newError(KindResponseParsingFailed, "empty response from on-device model", nil)
	}
	return cleanMarkdownWrapper(response.Result), nil
}
