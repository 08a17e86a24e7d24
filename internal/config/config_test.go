package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/llm"
	"github.com/Veraticus/trex/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"en-US"}, cfg.OCR.Languages)
	assert.Equal(t, model.QualityAccurate, cfg.OCR.Quality)
	assert.Equal(t, "auto", cfg.OCR.Engine)
	assert.Equal(t, time.Second, cfg.Watch.Interval)
	assert.Equal(t, model.OutputClipboard, cfg.Watch.Output)
	assert.Equal(t, 100, cfg.History.MaxEntries)
	assert.Equal(t, "json", cfg.History.Backend)
	assert.True(t, cfg.History.Enabled)
	assert.True(t, cfg.Tesseract.Enabled)
	assert.Equal(t, "trex-vision", cfg.Native.HelperPath)
	assert.Equal(t, DefaultLLMPriority, cfg.LLMPriority)

	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.OCR.Kind)
	assert.True(t, cfg.LLM.FallbackToBuiltInOCR)
	assert.False(t, cfg.LLM.EnableLLMOCR)
	assert.Equal(t, llm.DefaultOCRPrompt, cfg.LLM.OCRPrompt)
	assert.Equal(t, llm.DefaultPostProcessPrompt, cfg.LLM.PostProcessPrompt)
}

func TestLoadFromYAML(t *testing.T) {
	v := newViper(t, `
ocr:
  languages: [fr-FR, de-DE]
  quality: fast
llm:
  enable_llm_ocr: true
  fallback_to_builtin: false
  priority: 150
  ocr:
    provider: anthropic
    model: claude-test
  post_process:
    provider: ollama
    endpoint: http://gpu-box:11434
watch:
  interval: 50ms
  output: notifications
history:
  max_entries: 50000
  backend: sqlite
capture:
  table_format: CSV
`)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"fr-FR", "de-DE"}, cfg.OCR.Languages)
	assert.Equal(t, model.QualityFast, cfg.OCR.Quality)
	assert.True(t, cfg.LLM.EnableLLMOCR)
	assert.False(t, cfg.LLM.FallbackToBuiltInOCR)
	assert.Equal(t, 150, cfg.LLMPriority)
	assert.Equal(t, llm.ProviderAnthropic, cfg.LLM.OCR.Kind)
	assert.Equal(t, "claude-test", cfg.LLM.OCR.Model)
	assert.Equal(t, llm.ProviderCustom, cfg.LLM.PostProcess.Kind)
	assert.Equal(t, "http://gpu-box:11434", cfg.LLM.PostProcess.Endpoint)
	assert.Equal(t, MinWatchInterval, cfg.Watch.Interval)
	assert.Equal(t, model.OutputNotification, cfg.Watch.Output)
	assert.Equal(t, MaxHistoryEntries, cfg.History.MaxEntries)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, "csv", cfg.Capture.TableFormat)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "quality", yaml: "ocr:\n  quality: turbo\n"},
		{name: "output", yaml: "watch:\n  output: printer\n"},
		{name: "backend", yaml: "history:\n  backend: postgres\n"},
		{name: "table format", yaml: "capture:\n  table_format: xml\n"},
		{name: "provider", yaml: "llm:\n  ocr:\n    provider: bard\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestClamps(t *testing.T) {
	assert.Equal(t, MinWatchInterval, ClampWatchInterval(0))
	assert.Equal(t, 2*time.Second, ClampWatchInterval(2*time.Second))
	assert.Equal(t, MaxWatchInterval, ClampWatchInterval(time.Minute))

	assert.Equal(t, 1, ClampMaxEntries(-5))
	assert.Equal(t, 250, ClampMaxEntries(250))
	assert.Equal(t, 10000, ClampMaxEntries(1 << 20))
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TREX_TEST_DIR", "captures")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/notes.txt", want: filepath.Join(home, "notes.txt")},
		{name: "env var", in: "/tmp/$TREX_TEST_DIR/x", want: "/tmp/captures/x"},
		{name: "absolute", in: "/var/log/x", want: "/var/log/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestResolveUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	realHome, err := filepath.EvalSymlinks(home)
	require.NoError(t, err)

	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(home, "escape")))
	require.NoError(t, os.MkdirAll(filepath.Join(home, "Documents"), 0o755))

	tests := []struct {
		wantErr error
		name    string
		in      string
		want    string
	}{
		{name: "existing dir, new file", in: "~/Documents/watch.log", want: filepath.Join(realHome, "Documents", "watch.log")},
		{name: "missing intermediate dirs", in: "~/a/b/c.log", want: filepath.Join(realHome, "a", "b", "c.log")},
		{name: "outside home", in: "/etc/watchmode.log", wantErr: common.ErrPathOutsideHome},
		{name: "dot-dot escape", in: "~/../watchmode.log", wantErr: common.ErrPathOutsideHome},
		{name: "symlink escape", in: "~/escape/watch.log", wantErr: common.ErrPathOutsideHome},
		{name: "home itself", in: "~", wantErr: common.ErrPathOutsideHome},
		{name: "empty", in: "", wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveUnderHome(tt.in)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
