package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/trex/internal/capture"
	"github.com/Veraticus/trex/internal/config"
	"github.com/Veraticus/trex/internal/history"
	"github.com/Veraticus/trex/internal/llm"
	"github.com/Veraticus/trex/internal/model"
	"github.com/Veraticus/trex/internal/ocr"
	"github.com/Veraticus/trex/internal/service"
	"github.com/Veraticus/trex/internal/storage"
)

// app holds the composed capture pipeline for one command invocation.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	engines      *ocr.Manager
	downloader   *ocr.Downloader
	checker      *llm.NetworkChecker
	postProcess  *llm.PostProcessor
	history      service.HistoryStore
	orchestrator *capture.Orchestrator
}

// newApp wires engines, refinement, history and the orchestrator from cfg.
// The network monitor runs until ctx is done or close is called.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := slog.Default()

	a := &app{
		cfg:        cfg,
		logger:     logger,
		downloader: newDownloader(cfg, logger),
		checker:    llm.NewNetworkChecker(llm.WithCheckerLogger(logger)),
	}
	a.checker.Start(ctx)
	a.engines = buildEngines(cfg, a.downloader, a.checker, logger)
	a.postProcess = llm.NewPostProcessor(cfg.LLM, a.checker, llm.WithPostProcessLogger(logger))

	opts := []capture.Option{
		capture.WithLogger(logger),
		capture.WithPostProcessor(a.postProcess),
		capture.WithSource(model.SourceScreen, capture.NewScreenSource()),
		capture.WithSource(model.SourceClipboard, capture.NewClipboardImageSource()),
		capture.WithSource(model.SourceFile, &capture.FileSource{}),
		capture.WithClipboard(capture.SystemClipboard{}),
		capture.WithNotifier(capture.NewScriptNotifier()),
		capture.WithAutomator(capture.NewCommandAutomator()),
		capture.WithQRDetector(capture.ZXingDetector{}),
	}

	if cfg.History.Enabled {
		store, err := openHistory(ctx, cfg, logger)
		if err != nil {
			a.checker.Stop()
			return nil, err
		}
		a.history = store
		opts = append(opts, capture.WithHistory(store))
	}

	a.orchestrator = capture.New(a.engines, capture.SettingsFromConfig(cfg), opts...)
	return a, nil
}

func (a *app) close() {
	a.checker.Stop()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("Failed to close history", "error", err)
		}
	}
}

func newDownloader(cfg *config.Config, logger *slog.Logger) *ocr.Downloader {
	opts := []ocr.DownloaderOption{ocr.WithDownloaderLogger(logger)}
	if cfg.Tesseract.BaseURL != "" {
		opts = append(opts, ocr.WithBaseURL(cfg.Tesseract.BaseURL))
	}
	return ocr.NewDownloader(cfg.Tesseract.DataDir, opts...)
}

// buildEngines registers the native engine, Tesseract when enabled, and the
// LLM engine when LLM OCR is enabled. The LLM engine falls back to the native
// engine.
func buildEngines(cfg *config.Config, downloader *ocr.Downloader, checker llm.Checker, logger *slog.Logger) *ocr.Manager {
	engines := ocr.NewManager(logger)

	native := ocr.NewNativeEngine(
		ocr.HelperRecognizer{Path: cfg.Native.HelperPath},
		ocr.WithNativeTimeout(cfg.Native.Timeout),
		ocr.WithCustomWords(cfg.OCR.CustomWords),
		ocr.WithNativeLogger(logger),
	)
	engines.Register(native)

	if cfg.Tesseract.Enabled {
		engines.Register(ocr.NewTesseractEngine(downloader, logger))
	}

	if cfg.LLM.EnableLLMOCR {
		engines.Register(ocr.NewLLMEngine(cfg.LLM, native,
			ocr.WithLLMPriority(cfg.LLMPriority),
			ocr.WithNetworkChecker(checker),
			ocr.WithLLMLogger(logger),
		))
	}

	return engines
}

// openHistory opens the configured history backend.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.HistoryStore, error) {
	switch cfg.History.Backend {
	case "sqlite":
		h, err := storage.NewSQLiteHistory(ctx, filepath.Join(cfg.History.Dir, storage.DatabaseName), cfg.History.MaxEntries, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		return h, nil
	default:
		s, err := history.NewStore(cfg.History.Dir, cfg.History.MaxEntries, history.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		return s, nil
	}
}
