package item

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FrontMatter holds the item fields a markdown file may declare up front.
type FrontMatter struct {
	Title   string   `yaml:"title" toml:"title"`
	Tags    []string `yaml:"tags" toml:"tags"`
	Private *bool    `yaml:"private" toml:"private"`
}

// ParseFrontMatter splits a leading YAML (---) or TOML (+++) block off
// content. found is false, and body is content unchanged, when the file does
// not open with a closed delimiter block.
func ParseFrontMatter(content []byte) (fm FrontMatter, body []byte, found bool, err error) {
	for _, d := range []struct {
		delim  string
		decode func([]byte, any) error
	}{
		{"---", yaml.Unmarshal},
		{"+++", toml.Unmarshal},
	} {
		block, rest, ok := cutBlock(content, d.delim)
		if !ok {
			continue
		}
		if err := d.decode(block, &fm); err != nil {
			return FrontMatter{}, content, false, fmt.Errorf("parsing %s front matter: %w", d.delim, err)
		}
		return fm, rest, true, nil
	}
	return FrontMatter{}, content, false, nil
}

func cutBlock(content []byte, delim string) (block, rest []byte, ok bool) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	first, after, found := bytes.Cut(content, []byte("\n"))
	if !found || string(bytes.TrimRight(first, " \t\r")) != delim {
		return nil, nil, false
	}
	for off := 0; off < len(after); {
		line := after[off:]
		end := bytes.IndexByte(line, '\n')
		next := len(after)
		if end >= 0 {
			line = line[:end]
			next = off + end + 1
		}
		if string(bytes.TrimRight(line, " \t\r")) == delim {
			return after[:off], after[next:], true
		}
		off = next
	}
	return nil, nil, false
}
