// Package browser opens item pages in the user's web browser.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ErrUnsafeURL rejects anything but absolute http(s) URLs.
var ErrUnsafeURL = errors.New("only absolute http or https URLs can be opened")

// Open launches the platform's URL handler for rawURL without waiting for it.
func Open(rawURL string) error {
	c, err := command(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}
	return c.Start()
}

func command(goos, rawURL string) (*exec.Cmd, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrUnsafeURL)
	}

	switch goos {
	case "darwin":
		return exec.Command("open", rawURL), nil
	case "windows":
		// rundll32 avoids cmd.exe interpreting the URL.
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL), nil
	default:
		return exec.Command("xdg-open", rawURL), nil
	}
}
