package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/trex/internal/capture"
	"github.com/Veraticus/trex/internal/cli"
	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/config"
	"github.com/Veraticus/trex/internal/model"
	"github.com/Veraticus/trex/internal/tui"
	"github.com/Veraticus/trex/internal/tui/themes"
	"github.com/Veraticus/trex/internal/watch"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	region   string
	output   string
	file     string
	theme    string
	interval time.Duration
	noTUI    bool
}

func watchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep recognizing a screen region as it changes",
		Long: `Watch a screen region and recognize its text whenever the region changes.

New text is appended to the clipboard, appended to a file or shown as a
notification. Watching pauses while the screens sleep and stops when the
display configuration changes.`,
		Example: `  trex watch
  trex watch --region 100,100,600,300 --output file --file ~/notes/watch.txt
  trex watch --no-tui --interval 2s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.region, "region", "", "watch region x,y,w,h (skips interactive selection)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "polling interval (0.5s to 10s)")
	cmd.Flags().StringVar(&opts.output, "output", "", "where new text goes (clipboard, file, notification)")
	cmd.Flags().StringVar(&opts.file, "file", "", "file for --output file")
	cmd.Flags().StringVar(&opts.theme, "theme", "default", "interface theme ("+strings.Join(themes.Names(), ", ")+")")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "run without the interactive interface")

	return cmd
}

// applyWatchOptions overlays explicit flags on the configured watch settings.
func applyWatchOptions(base config.WatchConfig, opts watchOptions) (config.WatchConfig, *model.Rect, error) {
	w := base
	if opts.interval > 0 {
		w.Interval = config.ClampWatchInterval(opts.interval)
	}
	if opts.output != "" {
		mode, err := model.ParseOutputMode(opts.output)
		if err != nil {
			return w, nil, common.NewUserError("invalid --output", err)
		}
		w.Output = mode
	}
	if opts.file != "" {
		w.File = opts.file
	}

	if opts.region == "" {
		return w, nil, nil
	}
	r, err := model.ParseRect(opts.region)
	if err != nil {
		return w, nil, common.NewUserError("invalid --region", err)
	}
	return w, &r, nil
}

func runWatch(cmd *cobra.Command, opts watchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	settings, rect, err := applyWatchOptions(cfg.Watch, opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	manager := watch.NewManager(watch.Dependencies{
		Selector:   capture.NewCommandSelector(cfg.Native.HelperPath, "select"),
		Source:     capture.NewScreenSource(),
		Recognizer: a.orchestrator,
		Busy:       a.orchestrator,
		Clipboard:  capture.SystemClipboard{},
		Notifier:   capture.NewScriptNotifier(),
		Logger:     a.logger,
	}, settings.Interval, settings.Output, settings.File)
	defer manager.Close()

	events, err := watch.CommandEvents(ctx, a.logger, cfg.Native.HelperPath, "events")
	if err != nil {
		a.logger.Warn("System events unavailable, sleep and display changes are not tracked", "error", err)
	} else {
		go manager.Subscribe(ctx, events)
	}

	if rect != nil {
		if err := manager.WatchRegion(*rect); err != nil {
			return err
		}
	}

	if opts.noTUI {
		return watchHeadless(ctx, cmd, manager)
	}

	return tui.Run(ctx, manager,
		tui.WithTheme(themes.GetTheme(opts.theme)),
		tui.WithAutoStart(true),
	)
}

// watchHeadless selects a region if none is set, starts polling and blocks
// until interrupted.
func watchHeadless(ctx context.Context, cmd *cobra.Command, manager *watch.Manager) error {
	if !manager.Snapshot().IsWatching {
		if err := manager.StartWatching(ctx); err != nil {
			return err
		}
		if !manager.Snapshot().IsWatching {
			_, err := fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo("Region selection cancelled"))
			return err
		}
	}

	if err := manager.BeginCapture(ctx); err != nil {
		return err
	}

	snap := manager.Snapshot()
	out := cmd.ErrOrStderr()
	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s Watching %s every %.1fs, output to %s",
		cli.EyeIcon, snap.Rect.String(), snap.Interval.Seconds(), snap.OutputMode.DisplayName())))
	_, _ = fmt.Fprintln(out, cli.FormatInfo("Press Ctrl+C to stop"))

	stopped := stoppedSignal(manager)
	handler := cli.NewInterruptHandler(out)
	ctx = handler.HandleInterrupts(ctx, func() string {
		return watchSummary(manager.Snapshot())
	})

	select {
	case <-ctx.Done():
		if !handler.WasInterrupted() {
			// The root signal handler may win the race for the interrupt.
			_, _ = fmt.Fprintln(out, cli.FormatInfo(watchSummary(manager.Snapshot())))
		}
	case <-stopped:
		_, _ = fmt.Fprintln(out, cli.FormatWarning("Watching stopped, the display configuration changed"))
		_, _ = fmt.Fprintln(out, cli.FormatInfo(watchSummary(manager.Snapshot())))
	}
	return nil
}

// stoppedSignal is closed the first time the manager returns to Idle.
func stoppedSignal(manager *watch.Manager) <-chan struct{} {
	stopped := make(chan struct{})
	var once sync.Once
	manager.OnChange(func(s watch.Snapshot) {
		if s.State() == watch.StateIdle {
			once.Do(func() { close(stopped) })
		}
	})
	return stopped
}

func watchSummary(s watch.Snapshot) string {
	switch s.CaptureCount {
	case 0:
		return "No new text captured"
	case 1:
		return "1 capture"
	default:
		return fmt.Sprintf("%d captures", s.CaptureCount)
	}
}
