package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/trex/internal/capture"
	"github.com/Veraticus/trex/internal/cli"
	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/model"
	"github.com/spf13/cobra"
)

// captureOptions are the raw capture flags.
type captureOptions struct {
	source      string
	file        string
	engine      string
	quality     string
	tableFormat string
	regions     []string
	languages   []string
	postProcess bool
	// postProcessSet records whether --post-process was given explicitly.
	postProcessSet bool
	printOnly      bool
}

func captureCmd() *cobra.Command {
	var opts captureOptions

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Recognize text once",
		Long: `Recognize text in a screen region, the clipboard image or an image file.

Without --region the screen capture is interactive. Repeat --region to
recognize several regions and join their text. The text is printed and then
routed to notifications, history, automation or the clipboard as configured.`,
		Example: `  trex capture
  trex capture --region 0,0,800,600 --language de-DE
  trex capture --source file --file ~/Desktop/receipt.png --table-format markdown`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.postProcessSet = cmd.Flags().Changed("post-process")
			return runCapture(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "screen", "image source (screen, clipboard, file)")
	cmd.Flags().StringVar(&opts.file, "file", "", "image file for --source file")
	cmd.Flags().StringArrayVar(&opts.regions, "region", nil, "screen region x,y,w,h (repeatable)")
	cmd.Flags().StringSliceVar(&opts.languages, "language", nil, "recognition languages, e.g. en-US,fr-FR")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "engine identifier (vision, tesseract, llm)")
	cmd.Flags().StringVar(&opts.quality, "quality", "", "recognition quality (fast, accurate)")
	cmd.Flags().BoolVar(&opts.postProcess, "post-process", false, "refine the text with the post-processing LLM")
	cmd.Flags().StringVar(&opts.tableFormat, "table-format", "", "reformat tables as markdown, csv or json")
	cmd.Flags().BoolVar(&opts.printOnly, "print-only", false, "print the text without notifications, history or clipboard")

	return cmd
}

// buildCaptureRequest validates flags and turns them into a request plus the
// regions to capture.
func buildCaptureRequest(opts captureOptions) (capture.Request, []model.Rect, error) {
	source, err := model.ParseCaptureSource(opts.source)
	if err != nil {
		return capture.Request{}, nil, common.NewUserError("invalid --source", err)
	}

	req := capture.Request{
		Source:      source,
		Path:        opts.file,
		Engine:      strings.ToLower(opts.engine),
		Languages:   opts.languages,
		SkipRouting: opts.printOnly,
	}

	if source == model.SourceFile && strings.TrimSpace(opts.file) == "" {
		return capture.Request{}, nil, common.NewUserError("--source file needs --file", common.ErrMissingConfig)
	}

	if opts.quality != "" {
		q, err := model.ParseQualityLevel(opts.quality)
		if err != nil {
			return capture.Request{}, nil, common.NewUserError("invalid --quality", err)
		}
		req.Quality = &q
	}

	if opts.postProcessSet {
		pp := opts.postProcess
		req.PostProcess = &pp
	}

	switch f := strings.ToLower(opts.tableFormat); f {
	case "", "markdown", "csv", "json":
		req.TableFormat = f
	default:
		return capture.Request{}, nil, common.NewUserError("invalid --table-format", fmt.Errorf("%q: %w", opts.tableFormat, common.ErrInvalidConfig))
	}

	rects := make([]model.Rect, 0, len(opts.regions))
	for _, s := range opts.regions {
		r, err := model.ParseRect(s)
		if err != nil {
			return capture.Request{}, nil, common.NewUserError("invalid --region", err)
		}
		rects = append(rects, r)
	}

	if len(rects) > 0 && source != model.SourceScreen {
		return capture.Request{}, nil, common.NewUserError("--region needs --source screen", common.ErrInvalidConfig)
	}
	if len(rects) == 1 {
		req.Rect = &rects[0]
		rects = nil
	}

	return req, rects, nil
}

func runCapture(cmd *cobra.Command, opts captureOptions) error {
	req, regions, err := buildCaptureRequest(opts)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	var outcome *capture.Outcome
	if len(regions) > 0 {
		outcome, err = a.orchestrator.CaptureRegions(ctx, regions, req)
	} else {
		outcome, err = a.orchestrator.Capture(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if outcome == nil {
		_, err = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo("No text recognized"))
		return err
	}

	if _, err := fmt.Fprintln(out, outcome.Text); err != nil {
		return err
	}
	if outcome.Result.EngineName != "" {
		a.logger.Debug("Capture complete",
			"engine", outcome.Result.EngineName,
			"confidence", outcome.Result.Confidence,
			"languages", outcome.Result.RecognizedLanguages)
	}
	return nil
}
