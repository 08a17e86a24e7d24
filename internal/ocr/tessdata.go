package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/service"
)

// DefaultTessdataURL hosts the trained data files.
const DefaultTessdataURL = "https://github.com/tesseract-ocr/tessdata/raw/main"

const traineddataExt = ".traineddata"

var validCode = regexp.MustCompile(`^[a-z]{3}(_[a-z]+)*$`)

// languageLocks hands out one RWMutex per tessdata code. Recognition holds
// read locks; download and delete hold the write lock.
type languageLocks struct {
	locks map[string]*sync.RWMutex
	mu    sync.Mutex
}

func newLanguageLocks() *languageLocks {
	return &languageLocks{locks: make(map[string]*sync.RWMutex)}
}

func (l *languageLocks) get(code string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[code]
	if !ok {
		lock = &sync.RWMutex{}
		l.locks[code] = lock
	}
	return lock
}

// rlockAll read-locks codes in sorted order and returns the unlock function.
func (l *languageLocks) rlockAll(codes []string) func() {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)

	held := make([]*sync.RWMutex, 0, len(sorted))
	for i, code := range sorted {
		if i > 0 && sorted[i-1] == code {
			continue
		}
		lock := l.get(code)
		lock.RLock()
		held = append(held, lock)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].RUnlock()
		}
	}
}

// Downloader manages the local tessdata directory.
type Downloader struct {
	httpClient *http.Client
	logger     *slog.Logger
	locks      *languageLocks
	dataDir    string
	baseURL    string
	retry      service.RetryOptions
}

// DownloaderOption customizes a Downloader.
type DownloaderOption func(*Downloader)

// WithBaseURL overrides the tessdata host.
func WithBaseURL(url string) DownloaderOption {
	return func(d *Downloader) {
		if url != "" {
			d.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.httpClient = c }
}

// WithDownloaderLogger sets the logger.
func WithDownloaderLogger(l *slog.Logger) DownloaderOption {
	return func(d *Downloader) { d.logger = l }
}

// WithDownloadRetry sets the retry policy for transient failures.
func WithDownloadRetry(opts service.RetryOptions) DownloaderOption {
	return func(d *Downloader) { d.retry = opts }
}

// NewDownloader creates a downloader rooted at dataDir.
func NewDownloader(dataDir string, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		dataDir:    dataDir,
		baseURL:    DefaultTessdataURL,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		logger:     slog.Default(),
		locks:      newLanguageLocks(),
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DataDir returns the tessdata directory.
func (d *Downloader) DataDir() string {
	return d.dataDir
}

// Catalog returns the downloadable languages.
func (d *Downloader) Catalog() []LanguageInfo {
	return Catalog()
}

// Lookup finds a catalog entry.
func (d *Downloader) Lookup(code string) (LanguageInfo, bool) {
	return Lookup(code)
}

func (d *Downloader) path(code string) string {
	return filepath.Join(d.dataDir, code+traineddataExt)
}

// IsInstalled reports whether code has trained data on disk.
func (d *Downloader) IsInstalled(code string) bool {
	if !validCode.MatchString(code) {
		return false
	}
	info, err := os.Stat(d.path(code))
	return err == nil && info.Mode().IsRegular()
}

// Installed lists the installed codes, sorted.
func (d *Downloader) Installed() ([]string, error) {
	entries, err := os.ReadDir(d.dataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tessdata directory: %w", err)
	}

	var codes []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, traineddataExt) {
			continue
		}
		codes = append(codes, strings.TrimSuffix(name, traineddataExt))
	}
	sort.Strings(codes)
	return codes, nil
}

// TotalInstalledSize sums the size of all installed trained data.
func (d *Downloader) TotalInstalledSize() (int64, error) {
	codes, err := d.Installed()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, code := range codes {
		info, err := os.Stat(d.path(code))
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// Download fetches code into the data directory. Installed languages are a
// no-op. progress, when non-nil, receives every byte written.
func (d *Downloader) Download(ctx context.Context, code string, progress io.Writer) error {
	if _, ok := Lookup(code); !ok || !validCode.MatchString(code) {
		return fmt.Errorf("%s is not a downloadable language: %w", code, common.ErrLanguageUnavailable)
	}

	lock := d.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	if d.IsInstalled(code) {
		return nil
	}

	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tessdata directory: %w", err)
	}

	d.logger.Info("Downloading language data", "language", code)

	err := common.WithRetry(ctx, func() error {
		return d.fetch(ctx, code, progress)
	}, d.retry)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", code, err)
	}

	d.logger.Info("Language data installed", "language", code)
	return nil
}

func (d *Downloader) fetch(ctx context.Context, code string, progress io.Writer) error {
	url := d.baseURL + "/" + code + traineddataExt
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &common.RetryableError{Err: err, Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &common.RetryableError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode), Retryable: true}
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.dataDir, "."+code+"-*.download")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	var dst io.Writer = tmp
	if progress != nil {
		dst = io.MultiWriter(tmp, progress)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		_ = tmp.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &common.RetryableError{Err: fmt.Errorf("download interrupted: %w", err), Retryable: true}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, d.path(code)); err != nil {
		return fmt.Errorf("failed to install %s: %w", code, err)
	}
	return nil
}

// Delete removes code's trained data. A missing file is not an error.
func (d *Downloader) Delete(code string) error {
	if !validCode.MatchString(code) {
		return fmt.Errorf("invalid language code %q: %w", code, common.ErrLanguageUnavailable)
	}

	lock := d.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(d.path(code)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", code, err)
	}
	return nil
}

// lockForRecognition read-locks codes for the duration of a recognition.
func (d *Downloader) lockForRecognition(codes []string) func() {
	return d.locks.rlockAll(codes)
}
