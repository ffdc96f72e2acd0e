package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ikwzm/qiita-utils/internal/config"
	"github.com/ikwzm/qiita-utils/internal/history"
)

var (
	flagHistoryLimit   int
	flagHistorySince   string
	flagPruneOlderThan string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently published items and uploaded images",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, _, err := openHistory()
		if err != nil {
			return err
		}
		defer j.Close()

		opts := history.QueryOpts{Limit: flagHistoryLimit}
		if flagHistorySince != "" {
			d, err := config.ParseDuration(flagHistorySince)
			if err != nil {
				return fmt.Errorf("invalid --since value: %w", err)
			}
			opts.Since = time.Now().Add(-d)
		}

		items, err := j.Items(opts)
		if err != nil {
			return err
		}
		uploads, err := j.Uploads(opts)
		if err != nil {
			return err
		}
		writeHistory(cmd.OutOrStdout(), items, uploads)
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old entries from the history",
	Long: `Delete history entries older than the retention period and reclaim disk space.

Uses the retention value from config (default: 365d) unless overridden with --older-than.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, cfg, err := openHistory()
		if err != nil {
			return err
		}
		defer j.Close()

		retention := cfg.RetentionDuration()
		if flagPruneOlderThan != "" {
			d, err := config.ParseDuration(flagPruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			retention = d
		}

		deleted, err := j.Prune(retention)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		out := cmd.OutOrStdout()
		if deleted == 0 {
			fmt.Fprintln(out, "Nothing to prune.")
		} else {
			fmt.Fprintf(out, "Pruned %d entries older than %s.\n", deleted, formatDuration(retention))
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, cfg, err := openHistory()
		if err != nil {
			return err
		}
		defer j.Close()

		dbPath := cfg.HistoryPath()
		s, err := j.Stats(dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "History: %s\n", dbPath)
		fmt.Fprintf(out, "Items: %d\n", s.Items)
		fmt.Fprintf(out, "Uploads: %d\n", s.Uploads)
		fmt.Fprintf(out, "Size: %s\n", formatBytes(s.Size))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum entries of each kind")
	historyCmd.Flags().StringVar(&flagHistorySince, "since", "", "only show entries from the last duration (e.g., 7d, 24h)")
	historyPruneCmd.Flags().StringVar(&flagPruneOlderThan, "older-than", "", "override retention period (e.g., 30d, 720h)")

	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the journal directly; unlike publishing, reading it
// fails hard when the database cannot be opened.
func openHistory() (*history.Journal, *config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	j, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening history: %w", err)
	}
	return j, cfg, nil
}

func writeHistory(w io.Writer, items []history.Item, uploads []history.Upload) {
	fmt.Fprintln(w, headerStyle.Render("Items"))
	if len(items) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  none"))
	}
	for _, it := range items {
		visibility := "public"
		if it.Private {
			visibility = "private"
		}
		fmt.Fprintf(w, "  %s  %s %s\n", dimStyle.Render(it.RecordedAt.Local().Format("2006-01-02 15:04")), it.Action, titleStyle.Render(it.Title))
		fmt.Fprintf(w, "      %s  %s  [%s]\n", it.URL, visibility, strings.Join(it.Tags, ", "))
	}

	fmt.Fprintln(w, headerStyle.Render("Uploads"))
	if len(uploads) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  none"))
	}
	for _, u := range uploads {
		fmt.Fprintf(w, "  %s  %s (%s)\n", dimStyle.Render(u.RecordedAt.Local().Format("2006-01-02 15:04")), titleStyle.Render(u.Name), u.MediaType)
		fmt.Fprintf(w, "      %s\n", u.URL)
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
