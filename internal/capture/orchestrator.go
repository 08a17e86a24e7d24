// Package capture runs a complete capture: acquire an image, decode a QR code
// or recognize text, refine it, and route the result.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/config"
	"github.com/Veraticus/trex/internal/langcode"
	"github.com/Veraticus/trex/internal/llm"
	"github.com/Veraticus/trex/internal/model"
	"github.com/Veraticus/trex/internal/ocr"
	"github.com/Veraticus/trex/internal/service"
)

// Capture limits and defaults.
const (
	DefaultOCRTimeout = 5 * time.Second
	MaxRegions        = 50

	regionSeparator   = "\n\n"
	notificationTitle = "TRex"
)

// Settings controls recognition and routing.
type Settings struct {
	Engine           string
	TableFormat      string
	Shortcut         string
	URLTemplate      string
	Languages        []string
	OCRTimeout       time.Duration
	Quality          model.QualityLevel
	IgnoreLineBreaks bool
	Notify           bool
	AutoOpenURLs     bool
	DetectQRCodes    bool
	HistoryEnabled   bool
	AddNewline       bool
}

// SettingsFromConfig extracts orchestrator settings from the application
// config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Engine:           cfg.OCR.Engine,
		Languages:        cfg.OCR.Languages,
		Quality:          cfg.OCR.Quality,
		OCRTimeout:       cfg.OCR.Timeout,
		TableFormat:      cfg.Capture.TableFormat,
		IgnoreLineBreaks: cfg.Capture.IgnoreLineBreaks,
		Notify:           cfg.Capture.Notify,
		AutoOpenURLs:     cfg.Capture.AutoOpenURLs,
		DetectQRCodes:    cfg.Capture.DetectQRCodes,
		HistoryEnabled:   cfg.History.Enabled,
		Shortcut:         cfg.Automation.Shortcut,
		URLTemplate:      cfg.Automation.URLTemplate,
		AddNewline:       cfg.Automation.AddNewline,
	}
}

// Request describes one capture.
type Request struct {
	Rect *model.Rect
	// PostProcess overrides whether post-processing runs.
	PostProcess *bool
	Quality     *model.QualityLevel
	Source      model.CaptureSource
	Path        string
	Engine      string
	TableFormat string
	Languages   []string
	// SkipRouting returns the text without notifications, history, automation
	// or clipboard output.
	SkipRouting bool
}

// Outcome is the result of a successful capture.
type Outcome struct {
	Text   string
	Result model.OCRResult
}

// Orchestrator coordinates sources, engines, refinement and routing.
type Orchestrator struct {
	engines       *ocr.Manager
	postProcessor *llm.PostProcessor
	sources       map[model.CaptureSource]service.ImageSource
	clipboard     service.Clipboard
	notifier      service.Notifier
	automator     service.Automator
	history       service.HistoryRecorder
	qr            QRDetector
	logger        *slog.Logger
	settings      Settings
	busy          atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithPostProcessor enables table formatting and post-processing.
func WithPostProcessor(p *llm.PostProcessor) Option {
	return func(o *Orchestrator) { o.postProcessor = p }
}

// WithSource registers the image source for kind.
func WithSource(kind model.CaptureSource, src service.ImageSource) Option {
	return func(o *Orchestrator) { o.sources[kind] = src }
}

// WithClipboard sets the clipboard results are copied to.
func WithClipboard(c service.Clipboard) Option {
	return func(o *Orchestrator) { o.clipboard = c }
}

// WithNotifier sets the notifier.
func WithNotifier(n service.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithAutomator sets the automation runner.
func WithAutomator(a service.Automator) Option {
	return func(o *Orchestrator) { o.automator = a }
}

// WithHistory sets the history recorder.
func WithHistory(h service.HistoryRecorder) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithQRDetector replaces the QR detector.
func WithQRDetector(d QRDetector) Option {
	return func(o *Orchestrator) { o.qr = d }
}

// New creates an orchestrator over engines.
func New(engines *ocr.Manager, settings Settings, opts ...Option) *Orchestrator {
	if settings.OCRTimeout <= 0 {
		settings.OCRTimeout = DefaultOCRTimeout
	}

	o := &Orchestrator{
		engines:  engines,
		settings: settings,
		sources:  make(map[model.CaptureSource]service.ImageSource),
		qr:       ZXingDetector{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = common.LoggerOrDefault(o.logger)
	return o
}

// IsCaptureInProgress reports whether a user-initiated capture is running.
func (o *Orchestrator) IsCaptureInProgress() bool {
	return o.busy.Load()
}

// Capture runs one capture. A cancelled capture, or one where no engine
// produced a result, returns nil without error.
func (o *Orchestrator) Capture(ctx context.Context, req Request) (*Outcome, error) {
	if !o.busy.CompareAndSwap(false, true) {
		o.logger.Warn("Capture already in progress")
		return nil, common.ErrCaptureInProgress
	}
	defer o.busy.Store(false)

	img, err := o.acquire(ctx, req)
	if err != nil {
		if common.IsCancellation(err) {
			o.logger.Info("Capture cancelled")
			return nil, nil
		}
		return nil, err
	}

	result, ok := o.recognizeImage(ctx, img, req)
	if !ok {
		return nil, nil
	}

	text := o.format(ctx, result.Text, req)
	if o.postProcessEnabled(req) {
		metadata := fmt.Sprintf("engine=%s, confidence=%.2f", result.EngineName, result.Confidence)
		text = o.postProcessor.ProcessSilently(ctx, text, metadata)
	}

	if !req.SkipRouting {
		o.processDetectedText(ctx, text, &result)
	}
	return &Outcome{Text: text, Result: result}, nil
}

// CaptureRegions recognizes each screen region in order and joins the
// non-empty texts. At most MaxRegions regions are processed.
func (o *Orchestrator) CaptureRegions(ctx context.Context, rects []model.Rect, req Request) (*Outcome, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, common.ErrCaptureInProgress
	}
	defer o.busy.Store(false)

	if len(rects) > MaxRegions {
		o.logger.Warn("Too many regions, truncating", "requested", len(rects), "max", MaxRegions)
		rects = rects[:MaxRegions]
	}

	src, err := o.source(model.SourceScreen)
	if err != nil {
		return nil, err
	}

	var texts []string
	for i := range rects {
		img, err := src.Capture(ctx, &rects[i])
		if err != nil {
			if common.IsCancellation(err) {
				break
			}
			o.logger.Warn("Failed to capture region", "rect", rects[i].String(), "error", err)
			continue
		}

		result, ok := o.recognizeImage(ctx, img, req)
		if !ok {
			continue
		}
		if text := o.format(ctx, result.Text, req); strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}

	if len(texts) == 0 {
		return nil, nil
	}

	combined := strings.Join(texts, regionSeparator)
	if o.postProcessEnabled(req) {
		metadata := fmt.Sprintf("Multi-region capture (%d regions)", len(texts))
		combined = o.postProcessor.ProcessSilently(ctx, combined, metadata)
	}

	if !req.SkipRouting {
		o.processDetectedText(ctx, combined, nil)
	}
	return &Outcome{Text: combined}, nil
}

// RecognizeForWatch recognizes a watched frame with the configured engine
// selection and fallback. It does not route, record history or take the busy
// flag.
func (o *Orchestrator) RecognizeForWatch(ctx context.Context, img image.Image) (model.OCRResult, error) {
	result, ok := o.recognizeText(ctx, img, Request{})
	if !ok {
		return model.OCRResult{}, fmt.Errorf("no recognition result: %w", common.ErrNoEngine)
	}
	if o.settings.IgnoreLineBreaks {
		result.Text = collapseLineBreaks(result.Text)
	}
	return result, nil
}

func (o *Orchestrator) source(kind model.CaptureSource) (service.ImageSource, error) {
	if kind == "" {
		kind = model.SourceScreen
	}
	src, ok := o.sources[kind]
	if !ok {
		return nil, fmt.Errorf("no image source for %s: %w", kind, common.ErrInvalidConfig)
	}
	return src, nil
}

func (o *Orchestrator) acquire(ctx context.Context, req Request) (image.Image, error) {
	if req.Source == model.SourceFile {
		if req.Path == "" {
			return nil, fmt.Errorf("file capture requires a path: %w", common.ErrInvalidConfig)
		}
		src, err := o.source(model.SourceFile)
		if err != nil {
			return nil, err
		}
		if fs, ok := src.(*FileSource); ok {
			return fs.Open(req.Path)
		}
		return src.Capture(ctx, nil)
	}

	src, err := o.source(req.Source)
	if err != nil {
		return nil, err
	}
	img, err := src.Capture(ctx, req.Rect)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire image: %w", err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to acquire image: %w", common.ErrInvalidImage)
	}
	return img, nil
}

// recognizeImage checks for a QR code first, then runs OCR.
func (o *Orchestrator) recognizeImage(ctx context.Context, img image.Image, req Request) (model.OCRResult, bool) {
	o.logger.Info("Image loaded", "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	if o.settings.DetectQRCodes && o.qr != nil {
		if text, ok := o.qr.Detect(img); ok {
			o.logger.Info("QR code detected", "length", len(text))
			o.openURLs(ctx, text)
			return model.OCRResult{
				Text:             text,
				Confidence:       1.0,
				EngineName:       QRDetectorName,
				RecognitionLevel: "exact",
				SourceImage:      img,
			}, true
		}
	}

	result, ok := o.recognizeText(ctx, img, req)
	if !ok {
		return result, false
	}
	o.openURLs(ctx, result.Text)
	return result, true
}

func (o *Orchestrator) languages(req Request) []string {
	langs := req.Languages
	if len(langs) == 0 {
		langs = o.settings.Languages
	}
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.TrimSpace(l)
		// Catalog codes such as "chi_sim_vert" pass through untouched.
		if _, ok := ocr.Lookup(l); ok {
			out = append(out, l)
			continue
		}
		if s := langcode.Standardize(l); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (o *Orchestrator) selectEngine(req Request, languages []string) (ocr.Engine, bool) {
	id := req.Engine
	if id == "" && o.settings.Engine != "auto" {
		id = o.settings.Engine
	}
	if id != "" {
		if e, ok := o.engines.Engine(id); ok {
			return e, true
		}
		o.logger.Warn("Requested engine not registered", "engine", id)
	}

	if e, ok := o.engines.FindEngine(languages); ok {
		return e, true
	}
	o.logger.Warn("No engine supports the requested languages", "languages", languages)
	return o.engines.DefaultEngine()
}

// recognizeText runs the selected engine under the OCR timeout and falls back
// to the native engine on failure.
func (o *Orchestrator) recognizeText(ctx context.Context, img image.Image, req Request) (model.OCRResult, bool) {
	languages := o.languages(req)
	quality := o.settings.Quality
	if req.Quality != nil {
		quality = *req.Quality
	}

	engine, ok := o.selectEngine(req, languages)
	if !ok {
		o.logger.Error("No OCR engine available")
		return model.OCRResult{}, false
	}

	o.logger.Info("Running OCR", "engine", engine.Name(), "languages", languages)
	result, err := o.runEngine(ctx, engine, img, languages, quality)
	if err == nil {
		return result, true
	}
	if common.IsCancellation(err) {
		return model.OCRResult{}, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		o.logger.Error("OCR timed out", "engine", engine.Name(), "timeout", o.settings.OCRTimeout)
	} else {
		o.logger.Error("OCR failed", "engine", engine.Name(), "error", err)
	}

	fallback, ok := o.engines.Engine(ocr.NativeIdentifier)
	if !ok || fallback.Identifier() == engine.Identifier() {
		return model.OCRResult{}, false
	}

	o.logger.Info("Falling back to native engine", "engine", fallback.Name())
	result, err = o.runEngine(ctx, fallback, img, languages, quality)
	if err != nil {
		o.logger.Error("Fallback OCR failed", "engine", fallback.Name(), "error", err)
		return model.OCRResult{}, false
	}
	return result, true
}

func (o *Orchestrator) runEngine(ctx context.Context, e ocr.Engine, img image.Image, languages []string, quality model.QualityLevel) (model.OCRResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.settings.OCRTimeout)
	defer cancel()

	result, err := e.RecognizeText(ctx, img, languages, quality)
	if err != nil {
		return model.OCRResult{}, err
	}
	result.SourceImage = img

	o.logger.Info("OCR complete",
		"engine", result.EngineName,
		"length", len(result.Text),
		"confidence", fmt.Sprintf("%.2f", result.Confidence))
	return result, nil
}

// format applies line-break collapsing and table formatting.
func (o *Orchestrator) format(ctx context.Context, text string, req Request) string {
	if o.settings.IgnoreLineBreaks {
		text = collapseLineBreaks(text)
	}

	tableFormat := req.TableFormat
	if tableFormat == "" {
		tableFormat = o.settings.TableFormat
	}
	if tableFormat == "" || o.postProcessor == nil || !o.postProcessor.IsAvailable() {
		return text
	}

	o.logger.Info("Formatting tables", "format", tableFormat)
	formatted, err := o.postProcessor.ProcessWithPrompt(ctx, text, "", tableTemplate(tableFormat))
	if err != nil {
		o.logger.Warn("Table formatting failed, using plain text", "error", err)
		return text
	}
	return formatted
}

func (o *Orchestrator) postProcessEnabled(req Request) bool {
	if o.postProcessor == nil {
		return false
	}
	if req.PostProcess != nil {
		return *req.PostProcess
	}
	return o.postProcessor.Enabled()
}

// processDetectedText notifies, records history, and then runs automation or
// copies to the clipboard.
func (o *Orchestrator) processDetectedText(ctx context.Context, text string, result *model.OCRResult) {
	if o.settings.Notify && o.notifier != nil {
		if err := o.notifier.Notify(ctx, notificationTitle, text); err != nil {
			o.logger.Warn("Failed to post notification", "error", err)
		}
	}

	if o.settings.HistoryEnabled && o.history != nil {
		var (
			engineName string
			confidence float64
			languages  []string
			img        image.Image
		)
		if result != nil {
			engineName, confidence = result.EngineName, result.Confidence
			languages, img = result.RecognizedLanguages, result.SourceImage
		}
		if err := o.history.AddEntry(ctx, text, engineName, confidence, languages, img); err != nil {
			o.logger.Warn("Failed to record history", "error", err)
		}
	}

	if o.automator != nil && (o.settings.Shortcut != "" || o.settings.URLTemplate != "") {
		o.runAutomation(ctx, text)
		return
	}

	if o.clipboard != nil {
		if err := o.clipboard.WriteText(text); err != nil {
			o.logger.Warn("Failed to copy to clipboard", "error", err)
		}
	}
}

func (o *Orchestrator) runAutomation(ctx context.Context, text string) {
	if o.settings.Shortcut != "" {
		if err := o.automator.RunShortcut(ctx, o.settings.Shortcut, text); err != nil {
			o.logger.Warn("Shortcut failed", "shortcut", o.settings.Shortcut, "error", err)
		}
	}
	if o.settings.URLTemplate != "" {
		target := ApplyURLTemplate(o.settings.URLTemplate, text, o.settings.AddNewline)
		if err := o.automator.OpenURL(ctx, target); err != nil {
			o.logger.Warn("Failed to open automation URL", "error", err)
		}
	}
}

func (o *Orchestrator) openURLs(ctx context.Context, text string) {
	if !o.settings.AutoOpenURLs || o.automator == nil {
		return
	}
	for _, u := range DetectURLs(text) {
		if err := o.automator.OpenURL(ctx, u); err != nil {
			o.logger.Warn("Failed to open detected URL", "url", u, "error", err)
		}
	}
}
