package llm

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	available bool
}

func (f *fakeChecker) IsNetworkAvailable() bool { return f.available }

func (f *fakeChecker) CheckConnectivity(context.Context, string) error {
	if !f.available {
		return ErrNetworkUnavailable
	}
	return nil
}

type fakeProvider struct {
	connectErr error
	processErr error
	reply      string
	inputs     []string
	prompts    []string
	calls      int
	connects   int
	mu         sync.Mutex
}

func (f *fakeProvider) Name() string { return "Fake" }

func (f *fakeProvider) SupportsVision() bool { return true }

func (f *fakeProvider) PerformOCR(context.Context, image.Image, string) (string, error) {
	return f.reply, nil
}

func (f *fakeProvider) ProcessText(_ context.Context, text, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, text)
	f.prompts = append(f.prompts, prompt)
	if f.processErr != nil {
		return "", f.processErr
	}
	return f.reply, nil
}

func (f *fakeProvider) CheckConnectivity(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func postProcessConfig() Configuration {
	cfg := DefaultConfiguration()
	cfg.EnablePostProcessing = true
	cfg.PostProcessPrompt = "Fix: {text}"
	return cfg
}

func TestPostProcessor_Process(t *testing.T) {
	provider := &fakeProvider{reply: "Hello world"}
	p := NewPostProcessor(postProcessConfig(), &fakeChecker{available: true}, WithPostProcessProvider(provider))

	got, err := p.Process(context.Background(), "Helo wrld", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
	assert.Equal(t, []string{"Helo wrld"}, provider.inputs)
	assert.Equal(t, []string{"Fix: {text}"}, provider.prompts)
	assert.True(t, p.Enabled())
	assert.True(t, p.IsAvailable())
}

func TestPostProcessor_MetadataPrefix(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	p := NewPostProcessor(postProcessConfig(), &fakeChecker{available: true}, WithPostProcessProvider(provider))

	_, err := p.Process(context.Background(), "text", "Tesseract OCR, en-US")
	require.NoError(t, err)
	require.Len(t, provider.inputs, 1)
	assert.Equal(t, "OCR Context: Tesseract OCR, en-US\n\ntext", provider.inputs[0])
}

func TestPostProcessor_EmptyInputMakesNoCalls(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace", input: "  \n\t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{reply: "should not be used"}
			// Network down proves nothing is consulted.
			p := NewPostProcessor(postProcessConfig(), &fakeChecker{available: false}, WithPostProcessProvider(provider))

			got, err := p.Process(context.Background(), tt.input, "")
			require.NoError(t, err)
			assert.Equal(t, tt.input, got)
			assert.Zero(t, provider.calls)
			assert.Zero(t, provider.connects)
		})
	}
}

func TestPostProcessor_EmptyInputWithoutProvider(t *testing.T) {
	p := NewPostProcessor(postProcessConfig(), &fakeChecker{available: true}, withFailingFactory())

	got, err := p.Process(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func withFailingFactory() PostProcessorOption {
	return func(p *PostProcessor) {
		p.factory = func(ProviderSettings) (Provider, error) {
			return nil, newError(KindInvalidAPIKey, "no key", nil)
		}
	}
}

func TestPostProcessor_PreconditionChain(t *testing.T) {
	tests := []struct {
		wantErr  error
		provider *fakeProvider
		name     string
		network  bool
		noProv   bool
	}{
		{name: "no provider", noProv: true, network: true, wantErr: ErrInvalidAPIKey},
		{name: "network down", provider: &fakeProvider{}, network: false, wantErr: ErrNetworkUnavailable},
		{
			name:     "unreachable",
			provider: &fakeProvider{connectErr: errors.New("dial tcp: refused")},
			network:  true,
			wantErr:  ErrNetworkUnavailable,
		},
		{
			name:     "provider failure",
			provider: &fakeProvider{processErr: newError(KindProviderError, "boom", nil)},
			network:  true,
			wantErr:  ErrProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := withFailingFactory()
			if !tt.noProv {
				opt = WithPostProcessProvider(tt.provider)
			}
			p := NewPostProcessor(postProcessConfig(), &fakeChecker{available: tt.network}, opt)

			_, err := p.Process(context.Background(), "some text", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, "some text", p.ProcessSilently(context.Background(), "some text", ""))
		})
	}
}

func TestPostProcessor_CachesIdenticalInput(t *testing.T) {
	provider := &fakeProvider{reply: "cached"}
	p := NewPostProcessor(postProcessConfig(), &fakeChecker{available: true}, WithPostProcessProvider(provider))

	for i := 0; i < 3; i++ {
		got, err := p.Process(context.Background(), "same text", "")
		require.NoError(t, err)
		assert.Equal(t, "cached", got)
	}
	assert.Equal(t, 1, provider.calls)

	_, err := p.Process(context.Background(), "same text", "different metadata")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)

	p.UpdateConfiguration(postProcessConfig())
	_, err = p.Process(context.Background(), "same text", "")
	require.NoError(t, err)
	assert.Equal(t, 3, provider.calls)
}

func TestPostProcessor_ProcessWithPrompt(t *testing.T) {
	provider := &fakeProvider{reply: "| a | b |"}
	p := NewPostProcessor(postProcessConfig(), &fakeChecker{available: true}, WithPostProcessProvider(provider))

	got, err := p.ProcessWithPrompt(context.Background(), "a b", "", "Make a table: {text}")
	require.NoError(t, err)
	assert.Equal(t, "| a | b |", got)
	assert.Equal(t, []string{"Make a table: {text}"}, provider.prompts)
}
