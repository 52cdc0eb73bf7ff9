package sources

import (
	"context"
	"net/url"
	"strings"

	"github.com/ppiankov/commentradar/internal/model"
)

const hackerNewsBaseURL = "https://hn.algolia.com"

// HackerNewsAdapter searches stories through the Algolia HN API
type HackerNewsAdapter struct {
	BaseAdapter
	baseURL string
}

// NewHackerNewsAdapter creates a Hacker News adapter
func NewHackerNewsAdapter(base BaseAdapter, baseURL string) *HackerNewsAdapter {
	return &HackerNewsAdapter{BaseAdapter: base, baseURL: strings.TrimRight(orDefault(baseURL, hackerNewsBaseURL), "/")}
}

// Name returns the adapter name
func (a *HackerNewsAdapter) Name() string {
	return "hackernews"
}

type hnSearch struct {
	Hits []struct {
		URL         string `json:"url"`
		ObjectID    string `json:"objectID"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		StoryText   string `json:"story_text"`
		CreatedAt   string `json:"created_at"`
		Points      int    `json:"points"`
		NumComments int    `json:"num_comments"`
	} `json:"hits"`
}

// Fetch searches stories matching topic
func (a *HackerNewsAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("query", topic)
	q.Set("tags", "story")

	var result hnSearch
	if err := a.fetcher.GetJSON(ctx, a.baseURL+"/api/v1/search?"+q.Encode(), &result); err != nil {
		return nil, err
	}

	var records []model.Record
	for _, hit := range result.Hits {
		text := a.JoinText(hit.Title, hit.StoryText)
		if !a.KeepAPIText(text) {
			continue
		}

		source := hit.URL
		if source == "" {
			source = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		r, err := model.NewRecord(source, a.Name(), hit.Author, text)
		if err != nil {
			continue
		}
		r.PostedAt = hit.CreatedAt
		r.Likes = model.IntPtr(max(hit.Points, 0))
		r.Replies = model.IntPtr(max(hit.NumComments, 0))
		records = append(records, r)
	}

	return capRecords(records, limit), nil
}
