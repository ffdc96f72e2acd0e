package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ikwzm/qiita-utils/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagDebug  int
	flagConfig string
	flagCheck  bool
)

var rootCmd = &cobra.Command{
	Use:   "qiita-utils",
	Short: "Upload images and publish items to Qiita",
	Long: `qiita-utils talks to the Qiita API v2 with the access token found in
.qiita_token (working directory first, then next to the executable).

It uploads images, creates and patches items from markdown files, and can
drive both from a YAML manifest.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagDebug, "debug", "d", 0, "log level: 0 warn, 1 info, 2 debug")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.SetGlobalNormalizationFunc(normalizeFlag)

	versionCmd.Flags().BoolVar(&flagCheck, "check", false, "check GitHub for a newer release")

	rootCmd.AddCommand(versionCmd)
}

// normalizeFlag accepts underscore spellings such as --with_title.
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "qiita-utils %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagCheck {
			return nil
		}
		if r := update.Check(cmd.Context(), version); r != nil {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("A newer release is available: %s (%s)", r.Version, r.Published.Format("2006-01-02"))))
			fmt.Fprintln(out, dimStyle.Render(r.URL))
		} else {
			fmt.Fprintln(out, "Up to date.")
		}
		return nil
	},
}

func Execute() {
	ctx, stop := notifyContext(context.Background())
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
