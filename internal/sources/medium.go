package sources

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/commentradar/internal/extract"
	"github.com/ppiankov/commentradar/internal/model"
)

const mediumBaseURL = "https://medium.com"

// MediumAdapter reads the RSS feed of a Medium tag
type MediumAdapter struct {
	BaseAdapter
	baseURL string
}

// NewMediumAdapter creates a Medium adapter
func NewMediumAdapter(base BaseAdapter, baseURL string) *MediumAdapter {
	return &MediumAdapter{
		BaseAdapter: base,
		baseURL:     strings.TrimRight(orDefault(baseURL, mediumBaseURL), "/"),
	}
}

// Name returns the adapter name
func (a *MediumAdapter) Name() string {
	return "medium"
}

// Fetch reads the tag feed for topic
func (a *MediumAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	page, err := a.fetcher.Get(ctx, a.baseURL+"/feed/tag/"+TagSlug(topic))
	if err != nil {
		return nil, err
	}

	// gofeed parsers are not safe for concurrent use
	feed, err := gofeed.NewParser().ParseString(string(page.Body))
	if err != nil {
		return nil, err
	}

	var records []model.Record
	for _, item := range feed.Items {
		text := a.JoinText(item.Title, extract.PlainText(item.Description))
		if !a.KeepAPIText(text) {
			continue
		}

		r, err := model.NewRecord(item.Link, a.Name(), feedAuthor(item), text)
		if err != nil {
			continue
		}
		if item.PublishedParsed != nil {
			r.PostedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		records = append(records, r)
	}

	return capRecords(records, limit), nil
}

func feedAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			return p.Name
		}
	}
	return ""
}
