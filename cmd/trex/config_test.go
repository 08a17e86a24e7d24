package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/trex/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNormalizeSettings(t *testing.T) {
	settings := map[string]any{
		"watch": map[string]any{"interval": 1500 * time.Millisecond},
		"llm": map[string]any{
			"ocr": map[string]any{
				"provider": "openai",
				"api_key":  "sk-secret",
			},
			"post_process": map[string]any{
				"api_key": "",
			},
		},
	}

	masked := normalizeSettings(settings, true)
	assert.Equal(t, "1.5s", masked["watch"].(map[string]any)["interval"])

	llmSettings := masked["llm"].(map[string]any)
	assert.Equal(t, maskedValue, llmSettings["ocr"].(map[string]any)["api_key"])
	assert.Equal(t, "openai", llmSettings["ocr"].(map[string]any)["provider"])
	assert.Equal(t, "", llmSettings["post_process"].(map[string]any)["api_key"])

	plain := normalizeSettings(settings, false)
	assert.Equal(t, "sk-secret", plain["llm"].(map[string]any)["ocr"].(map[string]any)["api_key"])
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, isSecretKey("api_key"))
	assert.True(t, isSecretKey("Auth_Token"))
	assert.False(t, isSecretKey("provider"))
}

func TestWriteSettingsDefaultsRoundTrip(t *testing.T) {
	defaults := viper.New()
	config.SetDefaults(defaults)

	var buf bytes.Buffer
	require.NoError(t, writeSettings(&buf, defaults.AllSettings(), false))

	loaded := viper.New()
	loaded.SetConfigType("yaml")
	require.NoError(t, loaded.ReadConfig(&buf))

	cfg, err := config.Load(loaded)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Watch.Interval)
	assert.Equal(t, 100, cfg.History.MaxEntries)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &raw))
	assert.Contains(t, raw, "watch")
}
