package history

import "time"

type Upload struct {
	URL        string
	Name       string
	MediaType  string
	SourceFile string
	RecordedAt time.Time
}

type Item struct {
	ID         string
	URL        string
	Title      string
	Tags       []string
	Private    bool
	Action     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RecordedAt time.Time
}

type QueryOpts struct {
	Since time.Time
	Limit int
}
