package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ikwzm/qiita-utils/internal/item"
	"github.com/ikwzm/qiita-utils/internal/manifest"
	"github.com/ikwzm/qiita-utils/internal/retry"
	"github.com/ikwzm/qiita-utils/internal/upload"
)

var (
	flagSyncIn     string
	flagSyncOut    string
	flagSyncFile   string
	flagImgUpload  bool
	flagItemPost   bool
	flagItemPatch  bool
	flagSyncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload images and publish items listed in a YAML manifest",
	Long: `Read a YAML stream whose documents carry image_list and item_list, run the
selected steps in order (image upload, item post, item patch) and write the
stream back with ids, urls and a status per entry.

Entries that fail are marked "status: Error" and the remaining entries are
still processed; the command then exits non-zero.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.StringVarP(&flagSyncIn, "input", "i", "", "manifest to read")
	f.StringVarP(&flagSyncOut, "output", "o", "", "where to write the updated manifest (default: stdout)")
	f.StringVarP(&flagSyncFile, "file", "f", "", "manifest to read and update in place")
	f.BoolVar(&flagImgUpload, "image-upload", false, "upload images without a url")
	f.BoolVar(&flagItemPost, "item-post", false, "post items without an id")
	f.BoolVar(&flagItemPatch, "item-patch", false, "patch items with an id")
	f.BoolVarP(&flagSyncDryRun, "dry-run", "n", false, "log what would be done without calling the API")

	syncCmd.MarkFlagsMutuallyExclusive("input", "file")
	syncCmd.MarkFlagsMutuallyExclusive("output", "file")
	syncCmd.MarkFlagsOneRequired("input", "file")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	in, out := flagSyncIn, flagSyncOut
	if flagSyncFile != "" {
		in, out = flagSyncFile, flagSyncFile
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	docs, err := manifest.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	client, err := e.client()
	if err != nil {
		return err
	}
	e.openJournal()
	defer e.close()

	r := &manifest.Runner{
		Uploader:  upload.New(client, retry.Fixed(), e.log),
		Publisher: item.NewPublisher(client, e.log),
		DryRun:    flagSyncDryRun,
		Log:       e.log,
		OnUpload:  e.recordUpload,
		OnItem:    e.recordItem,
	}
	sum, runErr := r.Run(cmd.Context(), docs, manifest.Steps{
		ImageUpload: flagImgUpload,
		ItemPost:    flagItemPost,
		ItemPatch:   flagItemPatch,
	})

	// Results gathered before an interruption are still written.
	if err := writeManifest(cmd.OutOrStdout(), out, docs); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintln(cmd.ErrOrStderr(), summaryLine(sum))
	if sum.Failed > 0 {
		return fmt.Errorf("sync: %d entries failed", sum.Failed)
	}
	return nil
}

func writeManifest(stdout io.Writer, path string, docs []*manifest.Document) error {
	var buf bytes.Buffer
	if err := manifest.Encode(&buf, docs); err != nil {
		return err
	}
	if path == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func summaryLine(s manifest.Summary) string {
	line := fmt.Sprintf("uploaded %d, posted %d, patched %d, skipped %d", s.Uploaded, s.Posted, s.Patched, s.Skipped)
	if s.Failed > 0 {
		return warnStyle.Render(fmt.Sprintf("%s, failed %d", line, s.Failed))
	}
	return okStyle.Render(line)
}
