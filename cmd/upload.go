package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ikwzm/qiita-utils/internal/retry"
	"github.com/ikwzm/qiita-utils/internal/upload"
)

var (
	flagUploadName string
	flagUploadType string
	flagUploadJSON bool
	flagUploadDry  bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload an image and print its hosted URL",
	Long: `Request an upload policy for FILE, send the file directly to storage and
poll until the hosted URL is known (10 attempts, one second apart).

The name defaults to the file's base name without extension and the type is
guessed from the extension or the file contents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		req := upload.Request{
			Name:       flagUploadName,
			SourcePath: args[0],
			MediaType:  flagUploadType,
		}
		if flagUploadDry {
			planned, data, err := upload.Prepare(req)
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			e.log.WithFields(logrus.Fields{
				"file": planned.SourcePath,
				"name": planned.Name,
				"type": planned.MediaType,
				"size": len(data),
			}).Warn("dry run: skipping upload")
			fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("dry run: nothing sent"))
			return nil
		}

		up := upload.New(client, retry.Fixed(), e.log)
		res, err := up.Upload(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		e.recordUpload(res)

		if flagUploadJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.HostedURL)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVarP(&flagUploadName, "name", "N", "", "image name (default: file name without extension)")
	uploadCmd.Flags().StringVarP(&flagUploadType, "type", "T", "", "media type (default: detected)")
	uploadCmd.Flags().BoolVar(&flagUploadJSON, "json", false, "print the result as JSON")
	uploadCmd.Flags().BoolVarP(&flagUploadDry, "dry-run", "n", false, "log the upload instead of sending it")

	rootCmd.AddCommand(uploadCmd)
}
