// Package manifest drives uploads and item publication from a YAML stream
// and writes the results back into it.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	StageLocal   = "local"
	StagePrivate = "private"
	StagePublic  = "public"

	StatusOk    = "Ok"
	StatusError = "Error"
)

type Image struct {
	FileName string `yaml:"file_name,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Type     string `yaml:"type,omitempty"`
	URL      string `yaml:"url,omitempty"`
	Stage    string `yaml:"stage,omitempty"`
	Status   string `yaml:"status,omitempty"`
	Error    string `yaml:"error,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

type Item struct {
	FileName  string   `yaml:"file_name,omitempty"`
	ID        string   `yaml:"id,omitempty"`
	Title     string   `yaml:"title,omitempty"`
	URL       string   `yaml:"url,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	Stage     string   `yaml:"stage,omitempty"`
	WithTitle bool     `yaml:"with_title,omitempty"`
	CreatedAt string   `yaml:"created_at,omitempty"`
	UpdatedAt string   `yaml:"updated_at,omitempty"`
	Status    string   `yaml:"status,omitempty"`
	Error     string   `yaml:"error,omitempty"`
	Images    []*Image `yaml:"image_list,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

type Document struct {
	Images []*Image `yaml:"image_list,omitempty"`
	Items  []*Item  `yaml:"item_list,omitempty"`

	Extra map[string]any `yaml:",inline"`

	// source is the parsed document; Encode merges results back into it so
	// key order and comments survive.
	source *yaml.Node
}

// Decode reads every document of a YAML stream.
func Decode(r io.Reader) ([]*Document, error) {
	dec := yaml.NewDecoder(r)
	var docs []*Document
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding manifest document %d: %w", len(docs)+1, err)
		}
		doc := Document{source: &node}
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding manifest document %d: %w", len(docs)+1, err)
		}
		docs = append(docs, &doc)
	}
}

// Encode writes docs as a YAML stream.
func Encode(w io.Writer, docs []*Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for i, doc := range docs {
		var fresh yaml.Node
		if err := fresh.Encode(doc); err != nil {
			return fmt.Errorf("encoding manifest document %d: %w", i+1, err)
		}
		out := &fresh
		if doc.source != nil {
			out = mergeDocument(doc.source, &fresh)
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding manifest document %d: %w", i+1, err)
		}
	}
	return enc.Close()
}

// cleared lists keys the runner removes; other keys missing from the fresh
// encoding were only dropped by omitempty and are kept.
var cleared = map[string]bool{"error": true}

// mergeDocument keeps the document node itself so comments attached to it
// are written back.
func mergeDocument(source, fresh *yaml.Node) *yaml.Node {
	if source.Kind != yaml.DocumentNode || len(source.Content) != 1 {
		return merge(source, fresh)
	}
	doc := *source
	doc.Content = []*yaml.Node{merge(source.Content[0], fresh)}
	return &doc
}

// merge overlays fresh onto orig. Keys keep their original position and
// new keys are appended; unchanged scalars keep their original style.
func merge(orig, fresh *yaml.Node) *yaml.Node {
	switch {
	case orig.Kind == yaml.MappingNode && fresh.Kind == yaml.MappingNode:
		values := make(map[string]*yaml.Node, len(fresh.Content)/2)
		for i := 0; i+1 < len(fresh.Content); i += 2 {
			values[fresh.Content[i].Value] = fresh.Content[i+1]
		}
		out := *orig
		out.Content = nil
		seen := make(map[string]bool, len(values))
		for i := 0; i+1 < len(orig.Content); i += 2 {
			key, val := orig.Content[i], orig.Content[i+1]
			seen[key.Value] = true
			if v, ok := values[key.Value]; ok {
				out.Content = append(out.Content, key, merge(val, v))
			} else if !cleared[key.Value] {
				out.Content = append(out.Content, key, val)
			}
		}
		for i := 0; i+1 < len(fresh.Content); i += 2 {
			if !seen[fresh.Content[i].Value] {
				out.Content = append(out.Content, fresh.Content[i], fresh.Content[i+1])
			}
		}
		return &out

	case orig.Kind == yaml.SequenceNode && fresh.Kind == yaml.SequenceNode:
		out := *orig
		out.Content = make([]*yaml.Node, len(fresh.Content))
		for i, v := range fresh.Content {
			if i < len(orig.Content) {
				out.Content[i] = merge(orig.Content[i], v)
			} else {
				out.Content[i] = v
			}
		}
		return &out

	case orig.Kind == yaml.ScalarNode && fresh.Kind == yaml.ScalarNode && orig.Value == fresh.Value:
		return orig
	}

	out := *fresh
	out.HeadComment, out.LineComment, out.FootComment = orig.HeadComment, orig.LineComment, orig.FootComment
	return &out
}

var quoted = regexp.MustCompile(`^(?:"(.*)"|'(.*)')$`)

// unquote strips one pair of surrounding single or double quotes.
func unquote(s string) string {
	m := quoted.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// privateFor maps a stage to item visibility; nil leaves the default.
func privateFor(stage string) *bool {
	var v bool
	switch stage {
	case StagePrivate:
		v = true
	case StagePublic:
		v = false
	default:
		return nil
	}
	return &v
}
