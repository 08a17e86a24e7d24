package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/trex/internal/cli"
	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/langcode"
	"github.com/Veraticus/trex/internal/ocr"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func languagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "languages",
		Aliases: []string{"lang"},
		Short:   "Manage Tesseract language data",
		Long: `List, download and delete the trained data files Tesseract needs to
recognize each language.`,
	}

	cmd.AddCommand(languagesListCmd())
	cmd.AddCommand(languagesDownloadCmd())
	cmd.AddCommand(languagesDeleteCmd())
	cmd.AddCommand(languagesSizeCmd())

	return cmd
}

func languagesListCmd() *cobra.Command {
	var installedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List downloadable languages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d := newDownloader(cfg, slog.Default())

			table := languageTable(d.Catalog(), d.IsInstalled, installedOnly)
			if table == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No languages installed"))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
			return err
		},
	}

	cmd.Flags().BoolVar(&installedOnly, "installed", false, "only show installed languages")
	return cmd
}

// languageTable renders the catalog. It returns "" when no row survives the
// installed filter.
func languageTable(catalog []ocr.LanguageInfo, installed func(string) bool, installedOnly bool) string {
	rows := make([][]string, 0, len(catalog))
	for _, info := range catalog {
		mark := ""
		if installed(info.Code) {
			mark = cli.SuccessIcon
		} else if installedOnly {
			continue
		}
		rows = append(rows, []string{
			info.Code,
			info.Name,
			langcode.FromTesseract(info.Code),
			"~" + cli.FormatBytes(info.FileSize),
			mark,
		})
	}
	if len(rows) == 0 {
		return ""
	}
	return cli.RenderTable([]string{"Code", "Language", "Locale", "Size", "Installed"}, rows)
}

func languagesDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <code>...",
		Short: "Download trained data for one or more languages",
		Example: `  trex languages download deu
  trex languages download fr-FR jpn`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d := newDownloader(cfg, slog.Default())
			out := cmd.OutOrStdout()

			infos := make([]ocr.LanguageInfo, 0, len(args))
			for _, arg := range args {
				info, err := resolveLanguage(arg)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}

			var failed []string
			for _, info := range infos {
				if d.IsInstalled(info.Code) {
					_, _ = fmt.Fprintln(out, cli.FormatInfo(info.DisplayName()+" is already installed"))
					continue
				}

				bar := newDownloadBar(cmd.ErrOrStderr(), info)
				if err := d.Download(cmd.Context(), info.Code, bar); err != nil {
					_ = bar.Exit()
					if cmd.Context().Err() != nil {
						return err
					}
					common.LogDebug("Language download failed", common.Fields{"language": info.Code, "error": err.Error()})
					_, _ = fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", info.DisplayName(), err)))
					failed = append(failed, info.Code)
					continue
				}
				_ = bar.Finish()
				_, _ = fmt.Fprintln(out, cli.FormatSuccess("Installed "+info.DisplayName()))
			}

			if len(failed) > 0 {
				return fmt.Errorf("failed to download %s: %w", strings.Join(failed, ", "), common.ErrLanguageUnavailable)
			}
			return nil
		},
	}
}

// newDownloadBar reports bytes without a fixed total since catalog sizes are
// approximate.
func newDownloadBar(w io.Writer, info ocr.LanguageInfo) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]Downloading %s (~%s)...[reset]",
			info.DisplayName(), cli.FormatBytes(info.FileSize))),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

func languagesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <code>...",
		Aliases: []string{"rm"},
		Short:   "Delete installed language data",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d := newDownloader(cfg, slog.Default())
			out := cmd.OutOrStdout()

			for _, arg := range args {
				info, err := resolveLanguage(arg)
				if err != nil {
					return err
				}
				if !d.IsInstalled(info.Code) {
					_, _ = fmt.Fprintln(out, cli.FormatWarning(info.DisplayName()+" is not installed"))
					continue
				}
				if err := d.Delete(info.Code); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, cli.FormatSuccess("Deleted "+info.DisplayName()))
			}
			return nil
		},
	}
}

func languagesSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Show disk space used by installed languages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d := newDownloader(cfg, slog.Default())

			installed, err := d.Installed()
			if err != nil {
				return err
			}
			total, err := d.TotalInstalledSize()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d installed, %s in %s\n",
				cli.FolderIcon, len(installed), cli.FormatBytes(total), d.DataDir())
			return err
		},
	}
}

// resolveLanguage accepts a tessdata code or a BCP-47 locale.
func resolveLanguage(arg string) (ocr.LanguageInfo, error) {
	code := strings.TrimSpace(arg)
	if info, ok := ocr.Lookup(code); ok {
		return info, nil
	}
	if info, ok := ocr.Lookup(langcode.ToTesseract(code)); ok {
		return info, nil
	}
	return ocr.LanguageInfo{}, common.NewUserError(
		fmt.Sprintf("unknown language %q, see 'trex languages list'", arg),
		common.ErrLanguageUnavailable)
}
