package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry is one article from a user's public feed.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
}

type Fetcher struct {
	baseURL string
	parser  *gofeed.Parser
}

func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{baseURL: strings.TrimRight(baseURL, "/"), parser: gofeed.NewParser()}
}

// FeedURL is the Atom feed of user's public articles.
func (f *Fetcher) FeedURL(user string) string {
	return f.baseURL + "/" + url.PathEscape(user) + "/feed"
}

// Recent returns up to limit entries, newest first as the feed orders them.
func (f *Fetcher) Recent(ctx context.Context, user string, limit int) ([]Entry, error) {
	feed, err := f.parser.ParseURLWithContext(f.FeedURL(user), ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed for %s: %w", user, err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		var pub time.Time
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}
		entries = append(entries, Entry{
			ID:        ItemID(item.Link),
			Title:     item.Title,
			URL:       item.Link,
			Published: pub,
		})
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

// ItemID extracts the item id from an ".../items/<id>" link.
func ItemID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "items" {
			return parts[i+1]
		}
	}
	return ""
}
