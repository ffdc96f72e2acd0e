package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ikwzm/qiita-utils/internal/browser"
	"github.com/ikwzm/qiita-utils/internal/item"
	"github.com/ikwzm/qiita-utils/internal/qiita"
)

var (
	flagPost         bool
	flagPatch        string
	flagGet          string
	flagTitle        string
	flagTags         []string
	flagPrivate      bool
	flagPublic       bool
	flagWithTitle    bool
	flagWithoutTitle bool
	flagDryRun       bool
	flagItemJSON     bool
	flagFrontMatter  bool
	flagOpen         bool
)

var itemCmd = &cobra.Command{
	Use:   "item [FILE]",
	Short: "Post, patch or get an item",
	Long: `Post a markdown file as a new item, patch an existing item or fetch one.

--post prints the new item id, --patch and --get print Ok. With --json the
item is printed instead. When patching without a title or a body, the stored
values are fetched and kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runItem,
}

func init() {
	f := itemCmd.Flags()
	f.BoolVar(&flagPost, "post", false, "post FILE as a new item")
	f.StringVar(&flagPatch, "patch", "", "patch the item with this id")
	f.StringVar(&flagGet, "get", "", "get the item with this id")
	f.StringVarP(&flagTitle, "title", "N", "", "item title")
	f.StringArrayVarP(&flagTags, "tags", "T", nil, "comma separated tags (repeatable)")
	f.BoolVar(&flagPrivate, "private", false, "make the item private")
	f.BoolVar(&flagPublic, "public", false, "make the item public")
	f.BoolVar(&flagWithTitle, "with-title", false, "take the title from the first heading of FILE")
	f.BoolVar(&flagWithoutTitle, "without-title", false, "post FILE as is")
	f.BoolVarP(&flagDryRun, "dry-run", "n", false, "log requests instead of sending POST or PATCH")
	f.BoolVar(&flagItemJSON, "json", false, "print the item as JSON")
	f.BoolVar(&flagFrontMatter, "front-matter", false, "read title, tags and visibility from YAML or TOML front matter")
	f.BoolVar(&flagOpen, "open", false, "open the item in a browser")

	itemCmd.MarkFlagsMutuallyExclusive("post", "patch", "get")
	itemCmd.MarkFlagsOneRequired("post", "patch", "get")
	itemCmd.MarkFlagsMutuallyExclusive("private", "public")
	itemCmd.MarkFlagsMutuallyExclusive("with-title", "without-title")

	rootCmd.AddCommand(itemCmd)
}

// itemInput is the merged view of FILE and the command line flags.
type itemInput struct {
	title   *string
	tags    []string
	body    string
	private *bool
}

// resolveItemInput merges src with flag values. Flags win over the file.
func resolveItemInput(src *item.Source, title string, tags []string, private, public bool) itemInput {
	in := itemInput{body: src.Body, tags: item.SplitTags(tags), private: src.Private}
	if src.HasTitle {
		t := src.Title
		in.title = &t
	}
	if title != "" {
		in.title = &title
	}
	if len(in.tags) == 0 {
		in.tags = item.SplitTags(src.Tags)
	}
	switch {
	case private:
		v := true
		in.private = &v
	case public:
		v := false
		in.private = &v
	}
	return in
}

// itemMode reports which of --post, --patch and --get was given, with the
// item id for the latter two.
func itemMode(flags *pflag.FlagSet) (mode, id string, err error) {
	switch {
	case flags.Changed("patch"):
		mode, id = "patch", flagPatch
	case flags.Changed("get"):
		mode, id = "get", flagGet
	default:
		return "post", "", nil
	}
	if strings.TrimSpace(id) == "" {
		return "", "", fmt.Errorf("--%s requires an item id", mode)
	}
	return mode, id, nil
}

func runItem(cmd *cobra.Command, args []string) error {
	mode, id, err := itemMode(cmd.Flags())
	if err != nil {
		return err
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	src, err := item.LoadSource(path, item.SourceOptions{
		WithTitle:   flagWithTitle && !flagWithoutTitle,
		FrontMatter: flagFrontMatter,
	})
	if err != nil {
		return err
	}
	in := resolveItemInput(src, flagTitle, flagTags, flagPrivate, flagPublic)

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

	pub := item.NewPublisher(client, e.log, item.DryRun(flagDryRun))
	ctx := cmd.Context()

	var res *qiita.Item
	switch mode {
	case "post":
		d := item.Draft{Tags: in.tags, Body: in.body, Private: in.private}
		if in.title != nil {
			d.Title = *in.title
		}
		res, err = pub.Create(ctx, d)
	case "patch":
		res, err = pub.Update(ctx, id, item.Update{
			Title:   in.title,
			Tags:    in.tags,
			Body:    in.body,
			Private: in.private,
		})
	default:
		res, err = pub.Get(ctx, id)
	}
	if errors.Is(err, item.ErrDryRun) {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("dry run: nothing sent"))
		return nil
	}
	if err != nil {
		return err
	}
	if mode != "get" {
		e.recordItem(mode, res)
	}

	if err := printItem(cmd.OutOrStdout(), res, mode == "post"); err != nil {
		return err
	}
	if flagOpen {
		if err := browser.Open(res.URL); err != nil {
			e.log.WithError(err).Warn("could not open browser")
		}
	}
	return nil
}

func printItem(w io.Writer, res *qiita.Item, posted bool) error {
	switch {
	case flagItemJSON:
		return printJSON(w, res)
	case posted:
		_, err := fmt.Fprintln(w, res.ID)
		return err
	default:
		_, err := fmt.Fprintln(w, "Ok")
		return err
	}
}
