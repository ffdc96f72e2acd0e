package qiita

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client())), srv
}

const itemJSON = `{
	"id": "abc123",
	"url": "https://qiita.com/u/items/abc123",
	"title": "Hello",
	"body": "World",
	"private": true,
	"tags": [{"name": "a", "versions": []}, {"name": "b", "versions": []}],
	"created_at": "2024-08-01T10:00:00+09:00",
	"updated_at": "2024-08-02T10:00:00+09:00"
}`

func TestIssueUploadPolicy(t *testing.T) {
	var got map[string]map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload/policies", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"upload_url":"https://s3.example/bucket","form":{"key":"k1","policy":"p"}}`)
	})

	p, err := c.IssueUploadPolicy(context.Background(), ImageSpec{ContentType: "image/png", Name: "x", Size: 10})
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/bucket", p.UploadURL)
	assert.Equal(t, map[string]string{"key": "k1", "policy": "p"}, p.Form)

	assert.Equal(t, "image/png", got["image"]["content_type"])
	assert.Equal(t, "x", got["image"]["name"])
	assert.EqualValues(t, 10, got["image"]["size"])
}

func TestIssueUploadPolicyNon200(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"message":"forbidden"}`)
	})

	_, err := c.IssueUploadPolicy(context.Background(), ImageSpec{Name: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "forbidden")
}

func TestIssueUploadPolicyMissingURL(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"form":{}}`)
	})

	_, err := c.IssueUploadPolicy(context.Background(), ImageSpec{Name: "x"})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "upload_url", pe.Field)
}

func TestUploadFileSendsFormAndFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "direct upload must not carry the API token")
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "k1", r.FormValue("key"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "0123456789", string(data))
		assert.Equal(t, "x", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))

		w.Header().Set("Location", "https://example/i/abc")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient("secret", WithHTTPClient(srv.Client()))
	loc, err := c.UploadFile(context.Background(), &UploadPolicy{UploadURL: srv.URL, Form: map[string]string{"key": "k1"}},
		FilePart{Name: "x", ContentType: "image/png", Data: []byte("0123456789")})
	require.NoError(t, err)
	assert.Equal(t, "https://example/i/abc", loc)
}

func TestUploadFileNoLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient("secret", WithHTTPClient(srv.Client()))
	loc, err := c.UploadFile(context.Background(), &UploadPolicy{UploadURL: srv.URL}, FilePart{Name: "x", Data: []byte("d")})
	require.NoError(t, err)
	assert.Empty(t, loc)
}

func TestCreateItemPayloadAndResponse(t *testing.T) {
	var raw map[string]json.RawMessage
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/items", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, itemJSON)
	})

	item, err := c.CreateItem(context.Background(), NewItem{Title: "Hello", Body: "World", Private: true, Tags: Tags([]string{"a", "b"})})
	require.NoError(t, err)

	assert.JSONEq(t, `[{"name":"a","version":[]},{"name":"b","version":[]}]`, string(raw["tags"]))
	assert.JSONEq(t, `true`, string(raw["private"]))
	assert.JSONEq(t, `"Hello"`, string(raw["title"]))
	assert.JSONEq(t, `"World"`, string(raw["body"]))

	assert.Equal(t, "abc123", item.ID)
	assert.Equal(t, "https://qiita.com/u/items/abc123", item.URL)
	assert.Equal(t, []string{"a", "b"}, item.Tags)
	assert.Equal(t, 2024, item.CreatedAt.Year())
}

func TestPatchItemOmitsUnsetFields(t *testing.T) {
	var raw map[string]json.RawMessage
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v2/items/abc123", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		io.WriteString(w, itemJSON)
	})

	_, err := c.PatchItem(context.Background(), "abc123", ItemPatch{Tags: Tags([]string{"x"})})
	require.NoError(t, err)

	assert.Len(t, raw, 1)
	assert.JSONEq(t, `[{"name":"x","version":[]}]`, string(raw["tags"]))
}

func TestPatchItemKeepsExplicitEmptyValues(t *testing.T) {
	var raw map[string]json.RawMessage
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		io.WriteString(w, itemJSON)
	})

	private := false
	_, err := c.PatchItem(context.Background(), "abc123", ItemPatch{Private: &private})
	require.NoError(t, err)
	assert.JSONEq(t, `false`, string(raw["private"]))
	assert.NotContains(t, raw, "tags")
	assert.NotContains(t, raw, "title")
}

func TestGetItem(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/items/abc123", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		io.WriteString(w, itemJSON)
	})

	item, err := c.GetItem(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "World", item.Body)
	assert.Equal(t, "Hello", item.Title)
}

func TestItemCallWithoutURLIsAbsent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"Not found","type":"not_found"}`)
	})

	_, err := c.GetItem(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoURL))
}

func TestItemCallMissingID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"url":"https://qiita.com/x","title":"t"}`)
	})

	_, err := c.GetItem(context.Background(), "abc")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "id", pe.Field)
}

func TestItemCallNonJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := c.GetItem(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestTagsWrap(t *testing.T) {
	assert.Nil(t, Tags(nil))
	got := Tags([]string{"go", "cli"})
	require.Len(t, got, 2)
	assert.Equal(t, "go", got[0].Name)
	assert.NotNil(t, got[0].Versions)
}
