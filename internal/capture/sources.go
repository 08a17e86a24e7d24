package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/config"
	"github.com/Veraticus/trex/internal/model"
	"github.com/disintegration/imaging"
)

// runner executes a command and returns its stdout.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// ScreenSource captures the screen with screencapture. A nil rect starts an
// interactive selection.
type ScreenSource struct {
	run  runner
	path string
	// Command is the screencapture executable.
	Command string
	mu      sync.Mutex
}

// NewScreenSource creates a source writing to a private temp file.
func NewScreenSource() *ScreenSource {
	return &ScreenSource{
		Command: "screencapture",
		path:    filepath.Join(os.TempDir(), fmt.Sprintf("trex-capture-%d.png", os.Getpid())),
		run:     execRunner,
	}
}

// Capture implements service.ImageSource. The user pressing Escape in the
// interactive picker yields common.ErrCancelled.
func (s *ScreenSource) Capture(ctx context.Context, rect *model.Rect) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { _ = os.Remove(s.path) }()

	args := []string{"-x"}
	if rect != nil {
		args = append(args, "-R", rect.String())
	} else {
		args = append(args, "-i")
	}
	args = append(args, s.path)

	if _, err := s.run(ctx, s.Command, args...); err != nil {
		if common.IsCancellation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}

	img, err := imaging.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrCancelled
		}
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// ClipboardImageSource reads an image from the pasteboard with pngpaste.
type ClipboardImageSource struct {
	run     runner
	Command string
}

// NewClipboardImageSource creates a pasteboard image source.
func NewClipboardImageSource() *ClipboardImageSource {
	return &ClipboardImageSource{Command: "pngpaste", run: execRunner}
}

// Capture implements service.ImageSource. The rect is ignored.
func (s *ClipboardImageSource) Capture(ctx context.Context, _ *model.Rect) (image.Image, error) {
	out, err := s.run(ctx, s.Command, "-")
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard image: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("clipboard holds no image: %w", common.ErrInvalidImage)
	}

	img, err := imaging.Decode(bytes.NewReader(out), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode clipboard image: %w", err)
	}
	return img, nil
}

// FileSource decodes an image file.
type FileSource struct {
	Path string
}

// Open decodes the image at path, honoring EXIF orientation.
func (s *FileSource) Open(path string) (image.Image, error) {
	path = config.ExpandPath(path)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("image file %s: %w", path, err)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// Capture implements service.ImageSource, cropping to rect when given.
func (s *FileSource) Capture(_ context.Context, rect *model.Rect) (image.Image, error) {
	img, err := s.Open(s.Path)
	if err != nil {
		return nil, err
	}
	if rect == nil {
		return img, nil
	}
	b := img.Bounds()
	r := image.Rect(b.Min.X+rect.X, b.Min.Y+rect.Y, b.Min.X+rect.X+rect.Width, b.Min.Y+rect.Y+rect.Height).Intersect(b)
	if r.Empty() {
		return nil, fmt.Errorf("region %s outside image: %w", rect.String(), common.ErrInvalidImage)
	}
	return imaging.Crop(img, r), nil
}

// CommandSelector asks a helper for an interactive region. The helper prints
// "x,y,w,h" and exits non-zero or prints nothing when the user cancels.
type CommandSelector struct {
	run     runner
	Command string
	Args    []string
}

// NewCommandSelector creates a selector running command with args.
func NewCommandSelector(command string, args ...string) *CommandSelector {
	return &CommandSelector{Command: command, Args: args, run: execRunner}
}

// SelectRegion implements service.RegionSelector.
func (s *CommandSelector) SelectRegion(ctx context.Context) (model.Rect, error) {
	out, err := s.run(ctx, s.Command, s.Args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) || common.IsCancellation(err) {
			return model.Rect{}, common.ErrCancelled
		}
		return model.Rect{}, fmt.Errorf("region selection failed: %w", err)
	}

	line := strings.TrimSpace(string(out))
	if line == "" {
		return model.Rect{}, common.ErrCancelled
	}
	return model.ParseRect(line)
}
