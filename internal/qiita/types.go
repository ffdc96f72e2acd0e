package qiita

import "time"

// ImageSpec describes the image a policy is requested for.
type ImageSpec struct {
	ContentType string `json:"content_type"`
	Name        string `json:"name"`
	Size        int    `json:"size"`
}

// UploadPolicy authorizes a single direct upload.
type UploadPolicy struct {
	UploadURL string
	Form      map[string]string
}

// FilePart is the file carried by a direct upload.
type FilePart struct {
	Name        string
	ContentType string
	Data        []byte
}

// Tag is the wire form of an item tag.
type Tag struct {
	Name     string   `json:"name"`
	Versions []string `json:"version"`
}

// Tags wraps plain tag names in their wire form.
func Tags(names []string) []Tag {
	if len(names) == 0 {
		return nil
	}
	out := make([]Tag, len(names))
	for i, n := range names {
		out[i] = Tag{Name: n, Versions: []string{}}
	}
	return out
}

// NewItem is the create payload. Every field is transmitted.
type NewItem struct {
	Body    string `json:"body"`
	Private bool   `json:"private"`
	Title   string `json:"title"`
	Tags    []Tag  `json:"tags"`
}

// ItemPatch is the update payload. Nil fields and empty tags are omitted so
// they never overwrite stored values.
type ItemPatch struct {
	Body    *string `json:"body,omitempty"`
	Private *bool   `json:"private,omitempty"`
	Title   *string `json:"title,omitempty"`
	Tags    []Tag   `json:"tags,omitempty"`
}

// Item is an article as returned by the API.
type Item struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Body      string    `json:"body,omitempty"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
