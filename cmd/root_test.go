package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikwzm/qiita-utils/internal/item"
)

func TestNormalizeFlag(t *testing.T) {
	for _, name := range []string{"with_title", "without_title", "dry_run"} {
		if itemCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %q not accepted", name)
		}
	}
	if got := normalizeFlag(nil, "item_patch"); got != "item-patch" {
		t.Errorf("normalizeFlag(item_patch) = %q", got)
	}
}

func TestResolveItemInput(t *testing.T) {
	yes, no := true, false
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		src     item.Source
		title   string
		tags    []string
		private bool
		public  bool
		want    itemInput
	}{
		{
			name: "file only",
			src:  item.Source{Title: "From file", HasTitle: true, Body: "body", Tags: []string{"go"}, Private: &no},
			want: itemInput{title: str("From file"), body: "body", tags: []string{"go"}, private: &no},
		},
		{
			name:    "flags override file",
			src:     item.Source{Title: "From file", HasTitle: true, Body: "body", Tags: []string{"go"}, Private: &no},
			title:   "From flag",
			tags:    []string{"cli,yaml", " go "},
			private: true,
			want:    itemInput{title: str("From flag"), body: "body", tags: []string{"cli", "yaml", "go"}, private: &yes},
		},
		{
			name:   "no title anywhere",
			src:    item.Source{Body: "body"},
			public: true,
			want:   itemInput{body: "body", private: &no},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveItemInput(&tt.src, tt.title, tt.tags, tt.private, tt.public)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(itemInput{})); diff != "" {
				t.Errorf("resolveItemInput mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{365 * 24 * time.Hour, "365d"},
		{24 * time.Hour, "1d"},
		{12 * time.Hour, "12h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// workspace prepares a working directory holding a token and a config that
// points the client at srv, then returns the config path.
func workspace(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("QIITA_UTILS_BASE_URL", "")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".qiita_token"), []byte("secret\n"), 0o600))
	cfg := "api:\n  base_url: " + srv.URL + "\nhistory:\n  enabled: false\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

// resetFlags restores every flag to its default; package-level flag state
// otherwise leaks from one execution into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

const storedItem = `{
	"id": "abc", "url": "https://qiita.com/u/items/abc", "title": "Stored title",
	"body": "stored body", "private": false,
	"tags": [{"name": "go", "versions": []}],
	"created_at": "2024-08-01T10:00:00+09:00", "updated_at": "2024-08-01T10:00:00+09:00"
}`

func TestItemPatchFetchesMissingFields(t *testing.T) {
	var patched map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if r.URL.Path != "/api/v2/items/abc" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, storedItem)
		case http.MethodPatch:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			io.WriteString(w, storedItem)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()
	cfg := workspace(t, srv)

	out, err := execute(t, "--config", cfg, "item", "--patch", "abc", "-T", "cli")
	require.NoError(t, err)
	assert.Equal(t, "Ok\n", out)

	require.NotNil(t, patched)
	assert.Equal(t, "Stored title", patched["title"])
	assert.Equal(t, "stored body", patched["body"])
	assert.Equal(t, []any{map[string]any{"name": "cli", "version": []any{}}}, patched["tags"])
	assert.NotContains(t, patched, "private")
}

func TestSyncPostsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v2/items" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello", req["title"])
		assert.Equal(t, "first line\n  indented", req["body"])
		assert.Equal(t, false, req["private"])
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"new1","url":"https://qiita.com/u/items/new1","title":"Hello",
			"tags":[{"name":"go","versions":[]}],"created_at":"2024-08-01T10:00:00Z","updated_at":"2024-08-01T10:00:00Z"}`)
	}))
	defer srv.Close()
	cfg := workspace(t, srv)

	require.NoError(t, os.WriteFile("post.md", []byte("# Hello\nfirst line\n  indented  \n"), 0o644))
	manifest := "item_list:\n  - file_name: post.md\n    with_title: true\n    tags: [go]\n    stage: public\n  - file_name: draft.md\n    stage: local\n"
	require.NoError(t, os.WriteFile("manifest.yaml", []byte(manifest), 0o644))

	out, err := execute(t, "--config", cfg, "sync", "-i", "manifest.yaml", "--item_post")
	require.NoError(t, err)
	assert.Contains(t, out, "id: new1")
	assert.Contains(t, out, "url: https://qiita.com/u/items/new1")
	assert.Contains(t, out, "status: Ok")
	assert.Equal(t, 1, strings.Count(out, "status:"))
}

func TestItemRequiresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()
	cfg := workspace(t, srv)
	require.NoError(t, os.Remove(".qiita_token"))

	_, err := execute(t, "--config", cfg, "item", "--get", "abc")
	assert.ErrorContains(t, err, "access token not found")
}

func noRequests(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUploadDryRunReadsFile(t *testing.T) {
	cfg := workspace(t, noRequests(t))

	_, err := execute(t, "--config", cfg, "upload", "-n", "nope.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile("x.png", []byte("png"), 0o644))
	out, err := execute(t, "--config", cfg, "upload", "-n", "x.png")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestItemRejectsEmptyID(t *testing.T) {
	cfg := workspace(t, noRequests(t))

	for _, mode := range []string{"--patch", "--get"} {
		_, err := execute(t, "--config", cfg, "item", mode, "", "-T", "x")
		assert.ErrorContains(t, err, mode+" requires an item id")
	}
}
