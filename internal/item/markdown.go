package item

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// ReadLines reads a markdown file as lines with trailing whitespace removed.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return SplitLines(data), nil
}

func SplitLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for sc.Scan() {
		lines = append(lines, strings.TrimRightFunc(sc.Text(), isSpace))
	}
	return lines
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\f' || r == '\v'
}

// SplitTitle takes the title from a leading "# Title" heading or from a
// "Title" line underlined with "===". The consumed lines are dropped from the
// returned body. ok is false when neither form is present.
func SplitTitle(lines []string) (title string, body []string, ok bool) {
	if len(lines) > 0 && strings.HasPrefix(lines[0], "# ") {
		return strings.TrimSpace(strings.TrimPrefix(lines[0], "# ")), lines[1:], true
	}
	if len(lines) > 1 && strings.HasPrefix(lines[1], "===") {
		return strings.TrimSpace(lines[0]), lines[2:], true
	}
	return "", lines, false
}

// JoinBody joins lines back into the text sent as the item body.
func JoinBody(lines []string) string {
	return strings.Join(lines, "\n")
}

// SplitTags flattens repeated, comma-separated tag flags.
func SplitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
