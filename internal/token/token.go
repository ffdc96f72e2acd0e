// Package token locates the Qiita access token on disk.
package token

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the fixed name of the token file.
const FileName = ".qiita_token"

// ErrNotFound is returned when no candidate directory holds a usable token.
var ErrNotFound = errors.New("access token not found")

// Load returns the trimmed contents of the first readable, non-empty token
// file found in dirs, searched in order.
func Load(dirs []string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, FileName))
		if err != nil {
			continue
		}
		if tok := strings.TrimSpace(string(data)); tok != "" {
			return tok, nil
		}
	}
	return "", fmt.Errorf("%w (looked for %s in %s)", ErrNotFound, FileName, strings.Join(dirs, ", "))
}

// DefaultDirs returns the working directory followed by the directory of the
// running executable.
func DefaultDirs() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}
