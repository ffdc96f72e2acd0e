package item

import (
	"fmt"
	"os"
)

type SourceOptions struct {
	// WithTitle takes the title from the first heading of the body.
	WithTitle bool
	// FrontMatter reads title, tags and visibility from a leading block.
	FrontMatter bool
}

// Source is what a markdown file contributes to a draft or update.
type Source struct {
	Title    string
	HasTitle bool
	Body     string
	Tags     []string
	Private  *bool
}

// LoadSource reads path into a Source. An empty path yields an empty Source.
func LoadSource(path string, opts SourceOptions) (*Source, error) {
	src := &Source{}
	if path == "" {
		return src, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if opts.FrontMatter {
		fm, rest, found, err := ParseFrontMatter(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if found {
			data = rest
			if fm.Title != "" {
				src.Title, src.HasTitle = fm.Title, true
			}
			src.Tags = fm.Tags
			src.Private = fm.Private
		}
	}

	lines := SplitLines(data)
	if opts.WithTitle {
		if title, rest, ok := SplitTitle(lines); ok {
			src.Title, src.HasTitle = title, true
			lines = rest
		}
	}
	src.Body = JoinBody(lines)
	return src, nil
}
