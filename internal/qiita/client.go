// Package qiita wraps the authenticated JSON calls this tool makes against
// the Qiita API: upload-policy issuance, direct upload, and item
// create/patch/get.
package qiita

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://qiita.com"

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     logrus.FieldLogger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient returns a client that authenticates every API call with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	return c
}

// IssueUploadPolicy asks the API for a signed upload policy. Anything other
// than 200 is returned as an *APIError.
func (c *Client) IssueUploadPolicy(ctx context.Context, img ImageSpec) (*UploadPolicy, error) {
	const op = "issue upload policy"

	resp, err := c.doJSON(ctx, http.MethodPost, "/api/upload/policies", map[string]ImageSpec{"image": img})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var pr struct {
		UploadURL *string           `json:"upload_url"`
		Form      map[string]string `json:"form"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", op, err)
	}
	if pr.UploadURL == nil || *pr.UploadURL == "" {
		return nil, &ParseError{Op: op, Field: "upload_url"}
	}
	if pr.Form == nil {
		return nil, &ParseError{Op: op, Field: "form"}
	}
	c.log.WithFields(logrus.Fields{"upload_url": *pr.UploadURL, "form_fields": len(pr.Form)}).Debug("upload policy issued")
	return &UploadPolicy{UploadURL: *pr.UploadURL, Form: pr.Form}, nil
}

// UploadFile performs one multipart POST to the policy's upload URL and
// returns the Location header, or "" when the response carries none.
func (c *Client) UploadFile(ctx context.Context, policy *UploadPolicy, file FilePart) (string, error) {
	body, contentType, err := encodeMultipart(policy.Form, file)
	if err != nil {
		return "", fmt.Errorf("encoding upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, policy.UploadURL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("direct upload: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	loc := resp.Header.Get("Location")
	c.log.WithFields(logrus.Fields{"status": resp.StatusCode, "location": loc}).Debug("direct upload response")
	return loc, nil
}

func (c *Client) CreateItem(ctx context.Context, item NewItem) (*Item, error) {
	return c.itemCall(ctx, "create item", http.MethodPost, "/api/v2/items", item)
}

func (c *Client) PatchItem(ctx context.Context, id string, patch ItemPatch) (*Item, error) {
	return c.itemCall(ctx, "patch item", http.MethodPatch, itemPath(id), patch)
}

func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	return c.itemCall(ctx, "get item", http.MethodGet, itemPath(id), nil)
}

func itemPath(id string) string {
	return "/api/v2/items/" + url.PathEscape(id)
}

type itemResponse struct {
	ID        *string   `json:"id"`
	URL       *string   `json:"url"`
	Title     *string   `json:"title"`
	Body      string    `json:"body"`
	Private   bool      `json:"private"`
	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Client) itemCall(ctx context.Context, op, method, path string, payload any) (*Item, error) {
	resp, err := c.doJSON(ctx, method, path, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var ir itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, fmt.Errorf("%s: decoding response (status %d): %w", op, resp.StatusCode, err)
	}
	if ir.URL == nil {
		return nil, fmt.Errorf("%s: %w (status %d)", op, ErrNoURL, resp.StatusCode)
	}
	if ir.ID == nil {
		return nil, &ParseError{Op: op, Field: "id"}
	}
	if ir.Title == nil {
		return nil, &ParseError{Op: op, Field: "title"}
	}

	names := make([]string, 0, len(ir.Tags))
	for _, t := range ir.Tags {
		names = append(names, t.Name)
	}
	return &Item{
		ID:        *ir.ID,
		URL:       *ir.URL,
		Title:     *ir.Title,
		Tags:      names,
		Body:      ir.Body,
		Private:   ir.Private,
		CreatedAt: ir.CreatedAt,
		UpdatedAt: ir.UpdatedAt,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		c.log.WithFields(logrus.Fields{"method": method, "path": path, "data": string(b)}).Debug("qiita request")
		body = bytes.NewReader(b)
	} else {
		c.log.WithFields(logrus.Fields{"method": method, "path": path}).Debug("qiita request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qiita API error: %w", err)
	}
	c.log.WithFields(logrus.Fields{"method": method, "path": path, "status": resp.StatusCode}).Debug("qiita response")
	return resp, nil
}

// encodeMultipart writes the policy form fields in key order followed by the
// file part, which must come last for the storage endpoint.
func encodeMultipart(form map[string]string, file FilePart) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, form[k]); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
