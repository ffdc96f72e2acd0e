package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ikwzm/qiita-utils/internal/config"
	"github.com/ikwzm/qiita-utils/internal/feed"
)

var (
	flagRecentLimit int
	flagRecentJSON  bool
)

var recentCmd = &cobra.Command{
	Use:   "recent USER",
	Short: "List a user's most recent public items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		entries, err := feed.NewFetcher(cfg.Feed.BaseURL).Recent(cmd.Context(), args[0], flagRecentLimit)
		if err != nil {
			return err
		}
		if flagRecentJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		writeEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	recentCmd.Flags().IntVar(&flagRecentLimit, "limit", 20, "maximum entries (0 for all)")
	recentCmd.Flags().BoolVar(&flagRecentJSON, "json", false, "print entries as JSON")

	rootCmd.AddCommand(recentCmd)
}

func writeEntries(w io.Writer, entries []feed.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No items."))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  %s\n", dimStyle.Render(e.Published.Local().Format("2006-01-02")), e.ID, titleStyle.Render(e.Title))
	}
}
