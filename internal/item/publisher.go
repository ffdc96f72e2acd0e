// Package item creates, updates and fetches Qiita items.
package item

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ikwzm/qiita-utils/internal/qiita"
)

var (
	ErrMissingTitle = errors.New("title is required")
	ErrMissingTags  = errors.New("at least one tag is required")
	ErrMissingBody  = errors.New("body is required")

	// ErrDryRun is returned instead of sending a POST or PATCH in dry-run mode.
	ErrDryRun = errors.New("dry run: request not sent")
)

// Gateway is the item half of the API client.
type Gateway interface {
	CreateItem(ctx context.Context, item qiita.NewItem) (*qiita.Item, error)
	PatchItem(ctx context.Context, id string, patch qiita.ItemPatch) (*qiita.Item, error)
	GetItem(ctx context.Context, id string) (*qiita.Item, error)
}

// Draft is a new item. Private nil means private.
type Draft struct {
	Title   string
	Tags    []string
	Body    string
	Private *bool
}

// Update lists the fields to change. Nil Title and empty Body are filled
// from the stored item; nil Private and empty Tags are left untouched.
type Update struct {
	Title   *string
	Tags    []string
	Body    string
	Private *bool
}

type Publisher struct {
	gw     Gateway
	dryRun bool
	log    logrus.FieldLogger
}

type Option func(*Publisher)

// DryRun makes the publisher skip every POST and PATCH.
func DryRun(enabled bool) Option {
	return func(p *Publisher) { p.dryRun = enabled }
}

func NewPublisher(gw Gateway, log logrus.FieldLogger, opts ...Option) *Publisher {
	p := &Publisher{gw: gw, log: log}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Create validates the draft and posts it.
func (p *Publisher) Create(ctx context.Context, d Draft) (*qiita.Item, error) {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return nil, ErrMissingTitle
	case len(d.Tags) == 0:
		return nil, ErrMissingTags
	case d.Body == "":
		return nil, ErrMissingBody
	}

	private := true
	if d.Private != nil {
		private = *d.Private
	}
	req := qiita.NewItem{
		Body:    d.Body,
		Private: private,
		Title:   d.Title,
		Tags:    qiita.Tags(d.Tags),
	}

	log := p.log.WithFields(logrus.Fields{"title": d.Title, "tags": d.Tags, "private": private})
	if p.dryRun {
		log.WithField("data", encode(req)).Warn("dry run: skipping POST /api/v2/items")
		return nil, ErrDryRun
	}
	log.Info("creating item")

	item, err := p.gw.CreateItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	return item, nil
}

// Update patches item id. When the title is not supplied or the body is
// empty, the stored item is fetched first and its values are reused.
func (p *Publisher) Update(ctx context.Context, id string, u Update) (*qiita.Item, error) {
	title, body := u.Title, u.Body

	if title == nil || body == "" {
		current, err := p.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if title == nil {
			title = &current.Title
		}
		if body == "" {
			body = current.Body
		}
	}

	patch := qiita.ItemPatch{
		Title:   title,
		Private: u.Private,
		Tags:    qiita.Tags(u.Tags),
	}
	if body != "" {
		patch.Body = &body
	}

	log := p.log.WithFields(logrus.Fields{"id": id, "title": *title, "tags": u.Tags})
	if p.dryRun {
		log.WithField("data", encode(patch)).Warn("dry run: skipping PATCH /api/v2/items/" + id)
		return nil, ErrDryRun
	}
	log.Info("patching item")

	item, err := p.gw.PatchItem(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", id, err)
	}
	return item, nil
}

// Get fetches item id including its body. Reads are not affected by dry run.
func (p *Publisher) Get(ctx context.Context, id string) (*qiita.Item, error) {
	p.log.WithField("id", id).Info("fetching item")
	item, err := p.gw.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return item, nil
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
