package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/trex/internal/cli"
	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/model"
	"github.com/Veraticus/trex/internal/service"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage capture history",
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyRemoveCmd())
	cmd.AddCommand(historyClearCmd())
	cmd.AddCommand(historyExportCmd())

	return cmd
}

// withHistory opens the configured store for the duration of fn.
func withHistory(cmd *cobra.Command, fn func(service.HistoryStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openHistory(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close history", "error", err)
		}
	}()
	return fn(store)
}

func historyListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent captures, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, func(store service.HistoryStore) error {
				entries, err := store.Entries(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("History is empty"))
					return err
				}
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), historyTable(entries))
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show (0 for all)")
	return cmd
}

func historyTable(entries []model.HistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		engine := e.EngineName
		if engine == "" {
			engine = "-"
		}
		rows = append(rows, []string{
			shortID(e.ID),
			e.Date.Local().Format("2006-01-02 15:04"),
			engine,
			fmt.Sprintf("%.0f%%", e.Confidence*100),
			cli.Truncate(e.Text, 50),
		})
	}
	return cli.RenderTable([]string{"ID", "Date", "Engine", "Conf", "Text"}, rows)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// resolveEntryID expands an ID prefix as shown by list. Ambiguous or unknown
// prefixes are errors.
func resolveEntryID(entries []model.HistoryEntry, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", common.NewUserError("entry ID is required", common.ErrInvalidInput)
	}

	var match string
	for _, e := range entries {
		id := strings.ToLower(e.ID)
		if id == prefix {
			return e.ID, nil
		}
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", common.NewUserError(fmt.Sprintf("ID %q matches several entries", prefix), common.ErrInvalidInput)
			}
			match = e.ID
		}
	}
	if match == "" {
		return "", common.NewUserError(fmt.Sprintf("no entry with ID %q", prefix), common.ErrNotFound)
	}
	return match, nil
}

func historyRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove one capture",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(store service.HistoryStore) error {
				entries, err := store.Entries(cmd.Context())
				if err != nil {
					return err
				}
				id, err := resolveEntryID(entries, args[0])
				if err != nil {
					return err
				}
				if err := store.RemoveEntry(cmd.Context(), id); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed "+shortID(id)))
				return err
			})
		},
	}
}

func historyClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all captures",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				ok, err := cli.NewNonBlockingReader(cmd.InOrStdin()).Confirm(cmd.Context(), cmd.OutOrStdout(), "Delete all capture history?")
				if err != nil {
					return err
				}
				if !ok {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing deleted"))
					return err
				}
			}
			return withHistory(cmd, func(store service.HistoryStore) error {
				if err := store.ClearAll(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("History cleared"))
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}

func historyExportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all captures to stdout as JSON or YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, func(store service.HistoryStore) error {
				entries, err := store.Entries(cmd.Context())
				if err != nil {
					return err
				}
				return exportHistory(cmd.OutOrStdout(), entries, format)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format (json, yaml)")
	return cmd
}

func exportHistory(w io.Writer, entries []model.HistoryEntry, format string) error {
	if entries == nil {
		entries = []model.HistoryEntry{}
	}

	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		return enc.Close()
	default:
		return common.NewUserError(fmt.Sprintf("unsupported export format %q", format), common.ErrInvalidInput)
	}
}
