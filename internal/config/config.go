package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/llm"
	"github.com/Veraticus/trex/internal/model"
	"github.com/spf13/viper"
)

// Limits applied to user-supplied values.
const (
	MinWatchInterval = 500 * time.Millisecond
	MaxWatchInterval = 10 * time.Second

	MinHistoryEntries = 1
	MaxHistoryEntries = 10000

	DefaultLLMPriority = 60
)

// Config is the fully resolved application configuration.
type Config struct {
	Logging    LoggingConfig
	OCR        OCRConfig
	Tesseract  TesseractConfig
	Native     NativeConfig
	Watch      WatchConfig
	History    HistoryConfig
	Automation AutomationConfig
	Capture    CaptureConfig
	LLM        llm.Configuration

	// LLMPriority is the registry priority of the LLM engine.
	LLMPriority int
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// OCRConfig holds recognition defaults.
type OCRConfig struct {
	// Engine is "auto" or an engine identifier (vision, tesseract, llm).
	Engine      string
	Languages   []string
	CustomWords []string
	Timeout     time.Duration
	Quality     model.QualityLevel
}

// TesseractConfig locates trained data.
type TesseractConfig struct {
	DataDir string
	BaseURL string
	Enabled bool
}

// NativeConfig locates the platform recognizer helper.
type NativeConfig struct {
	HelperPath string
	Timeout    time.Duration
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	File     string
	Interval time.Duration
	Output   model.OutputMode
}

// HistoryConfig holds capture history settings.
type HistoryConfig struct {
	Backend    string
	Dir        string
	MaxEntries int
	Enabled    bool
}

// CaptureConfig holds post-capture behavior.
type CaptureConfig struct {
	TableFormat      string
	IgnoreLineBreaks bool
	Notify           bool
	AutoOpenURLs     bool
	DetectQRCodes    bool
}

// AutomationConfig holds actions run after a successful capture.
type AutomationConfig struct {
	Shortcut    string
	URLTemplate string
	AddNewline  bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("ocr.engine", "auto")
	v.SetDefault("ocr.languages", []string{"en-US"})
	v.SetDefault("ocr.quality", "accurate")
	v.SetDefault("ocr.timeout", 5*time.Second)
	v.SetDefault("ocr.custom_words", []string{})

	v.SetDefault("tesseract.enabled", true)
	v.SetDefault("tesseract.data_dir", "~/Library/Application Support/TRex/tessdata")
	v.SetDefault("tesseract.base_url", "https://github.com/tesseract-ocr/tessdata/raw/main")

	v.SetDefault("native.helper_path", "trex-vision")
	v.SetDefault("native.timeout", 10*time.Second)

	v.SetDefault("llm.ocr.provider", string(llm.ProviderOpenAI))
	v.SetDefault("llm.post_process.provider", string(llm.ProviderOpenAI))
	v.SetDefault("llm.ocr.prompt", llm.DefaultOCRPrompt)
	v.SetDefault("llm.post_process.prompt", llm.DefaultPostProcessPrompt)
	v.SetDefault("llm.enable_llm_ocr", false)
	v.SetDefault("llm.enable_post_processing", false)
	v.SetDefault("llm.fallback_to_builtin", true)
	v.SetDefault("llm.priority", DefaultLLMPriority)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.rate_limit", 60)

	v.SetDefault("watch.interval", time.Second)
	v.SetDefault("watch.output", string(model.OutputClipboard))
	v.SetDefault("watch.file", "~/Documents/TRex/watchmode.log")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.max_entries", 100)
	v.SetDefault("history.backend", "json")
	v.SetDefault("history.dir", "~/Library/Application Support/TRex/History")

	v.SetDefault("capture.ignore_line_breaks", false)
	v.SetDefault("capture.notify", true)
	v.SetDefault("capture.auto_open_urls", false)
	v.SetDefault("capture.detect_qr_codes", true)
	v.SetDefault("capture.table_format", "")

	v.SetDefault("automation.shortcut", "")
	v.SetDefault("automation.url_template", "")
	v.SetDefault("automation.add_newline", false)
}

// Load builds a Config from v. Unknown enum values are configuration errors;
// out-of-range numbers are clamped.
func Load(v *viper.Viper) (*Config, error) {
	quality, err := model.ParseQualityLevel(v.GetString("ocr.quality"))
	if err != nil {
		return nil, fmt.Errorf("ocr.quality: %w", invalid(err))
	}

	output, err := model.ParseOutputMode(v.GetString("watch.output"))
	if err != nil {
		return nil, fmt.Errorf("watch.output: %w", invalid(err))
	}

	backend := strings.ToLower(v.GetString("history.backend"))
	if backend != "json" && backend != "sqlite" {
		return nil, fmt.Errorf("history.backend %q: %w", backend, common.ErrInvalidConfig)
	}

	tableFormat := strings.ToLower(v.GetString("capture.table_format"))
	switch tableFormat {
	case "", "markdown", "csv", "json":
	default:
		return nil, fmt.Errorf("capture.table_format %q: %w", tableFormat, common.ErrInvalidConfig)
	}

	llmCfg, err := loadLLM(v)
	if err != nil {
		return nil, err
	}

	languages := v.GetStringSlice("ocr.languages")
	if len(languages) == 0 {
		languages = []string{"en-US"}
	}

	priority := v.GetInt("llm.priority")
	if priority <= 0 {
		priority = DefaultLLMPriority
	}

	return &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		OCR: OCRConfig{
			Engine:      strings.ToLower(v.GetString("ocr.engine")),
			Languages:   languages,
			Quality:     quality,
			Timeout:     v.GetDuration("ocr.timeout"),
			CustomWords: v.GetStringSlice("ocr.custom_words"),
		},
		Tesseract: TesseractConfig{
			Enabled: v.GetBool("tesseract.enabled"),
			DataDir: ExpandPath(v.GetString("tesseract.data_dir")),
			BaseURL: v.GetString("tesseract.base_url"),
		},
		Native: NativeConfig{
			HelperPath: v.GetString("native.helper_path"),
			Timeout:    v.GetDuration("native.timeout"),
		},
		Watch: WatchConfig{
			Interval: ClampWatchInterval(v.GetDuration("watch.interval")),
			Output:   output,
			File:     v.GetString("watch.file"),
		},
		History: HistoryConfig{
			Enabled:    v.GetBool("history.enabled"),
			MaxEntries: ClampMaxEntries(v.GetInt("history.max_entries")),
			Backend:    backend,
			Dir:        ExpandPath(v.GetString("history.dir")),
		},
		Capture: CaptureConfig{
			IgnoreLineBreaks: v.GetBool("capture.ignore_line_breaks"),
			Notify:           v.GetBool("capture.notify"),
			AutoOpenURLs:     v.GetBool("capture.auto_open_urls"),
			DetectQRCodes:    v.GetBool("capture.detect_qr_codes"),
			TableFormat:      tableFormat,
		},
		Automation: AutomationConfig{
			Shortcut:    v.GetString("automation.shortcut"),
			URLTemplate: v.GetString("automation.url_template"),
			AddNewline:  v.GetBool("automation.add_newline"),
		},
		LLM:         llmCfg,
		LLMPriority: priority,
	}, nil
}

func loadLLM(v *viper.Viper) (llm.Configuration, error) {
	ocr, err := loadProvider(v, "llm.ocr")
	if err != nil {
		return llm.Configuration{}, err
	}
	post, err := loadProvider(v, "llm.post_process")
	if err != nil {
		return llm.Configuration{}, err
	}

	return llm.Configuration{
		OCR:                  ocr,
		PostProcess:          post,
		OCRPrompt:            v.GetString("llm.ocr.prompt"),
		PostProcessPrompt:    v.GetString("llm.post_process.prompt"),
		EnableLLMOCR:         v.GetBool("llm.enable_llm_ocr"),
		EnablePostProcessing: v.GetBool("llm.enable_post_processing"),
		FallbackToBuiltInOCR: v.GetBool("llm.fallback_to_builtin"),
	}, nil
}

func loadProvider(v *viper.Viper, prefix string) (llm.ProviderSettings, error) {
	kind, err := llm.ParseProviderKind(v.GetString(prefix + ".provider"))
	if err != nil {
		return llm.ProviderSettings{}, fmt.Errorf("%s.provider: %w", prefix, invalid(err))
	}

	return llm.ProviderSettings{
		Kind:        kind,
		APIKey:      v.GetString(prefix + ".api_key"),
		Endpoint:    v.GetString(prefix + ".endpoint"),
		Model:       v.GetString(prefix + ".model"),
		Command:     v.GetString(prefix + ".command"),
		Timeout:     v.GetDuration("llm.timeout"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Temperature: v.GetFloat64(prefix + ".temperature"),
		MaxTokens:   v.GetInt(prefix + ".max_tokens"),
	}, nil
}

// ClampWatchInterval bounds a polling interval to [MinWatchInterval, MaxWatchInterval].
func ClampWatchInterval(d time.Duration) time.Duration {
	return min(max(d, MinWatchInterval), MaxWatchInterval)
}

// ClampMaxEntries bounds the history size to [MinHistoryEntries, MaxHistoryEntries].
func ClampMaxEntries(n int) int {
	return min(max(n, MinHistoryEntries), MaxHistoryEntries)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
}
