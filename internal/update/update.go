// Package update looks up the latest qiita-utils release on GitHub.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const releasesURL = "https://api.github.com/repos/ikwzm/qiita-utils/releases/latest"

// Release is a published qiita-utils release newer than the running build.
type Release struct {
	Version   string
	URL       string
	Published time.Time
}

type ghRelease struct {
	TagName     string    `json:"tag_name"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
}

// Check returns the latest release when it is newer than current. Builds
// without a release version (such as "dev") are offered any release. Lookup
// failures yield nil.
func Check(ctx context.Context, current string) *Release {
	return check(ctx, http.DefaultClient, releasesURL, current)
}

func check(ctx context.Context, hc *http.Client, endpoint, current string) *Release {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rel, err := latest(ctx, hc, endpoint)
	if err != nil || rel.TagName == "" {
		return nil
	}
	if !newer(rel.TagName, current) {
		return nil
	}
	return &Release{
		Version:   strings.TrimPrefix(rel.TagName, "v"),
		URL:       rel.HTMLURL,
		Published: rel.PublishedAt,
	}
}

func latest(ctx context.Context, hc *http.Client, endpoint string) (*ghRelease, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github releases: status %d", resp.StatusCode)
	}
	var rel ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}
	return &rel, nil
}

// newer compares dotted numeric versions, ignoring a leading "v" and any
// pre-release suffix. An unparseable current version is always older.
func newer(candidate, current string) bool {
	c, ok := parseVersion(candidate)
	if !ok {
		return false
	}
	cur, ok := parseVersion(current)
	if !ok {
		return true
	}
	for i := range c {
		if c[i] != cur[i] {
			return c[i] > cur[i]
		}
	}
	return false
}

func parseVersion(s string) ([3]int, bool) {
	var v [3]int
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return v, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, false
		}
		v[i] = n
	}
	return v, true
}
