package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/commentradar/internal/model"
)

const redditBaseURL = "https://www.reddit.com"

// RedditAdapter searches posts through Reddit's public JSON endpoint
type RedditAdapter struct {
	BaseAdapter
	baseURL string
}

// NewRedditAdapter creates a Reddit adapter. An empty baseURL uses reddit.com.
func NewRedditAdapter(base BaseAdapter, baseURL string) *RedditAdapter {
	return &RedditAdapter{BaseAdapter: base, baseURL: strings.TrimRight(orDefault(baseURL, redditBaseURL), "/")}
}

// Name returns the adapter name
func (a *RedditAdapter) Name() string {
	return "reddit"
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Permalink   string  `json:"permalink"`
				Author      string  `json:"author"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				CreatedUTC  float64 `json:"created_utc"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch searches Reddit for topic. The API returns at most 100 posts.
func (a *RedditAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("q", topic)
	q.Set("sort", "relevance")
	q.Set("limit", fmt.Sprint(apiPageSize(limit, 100)))

	var listing redditListing
	if err := a.fetcher.GetJSON(ctx, a.baseURL+"/search.json?"+q.Encode(), &listing); err != nil {
		return nil, err
	}

	var records []model.Record
	for _, child := range listing.Data.Children {
		post := child.Data
		text := a.JoinText(post.Title, post.Selftext)
		if !a.KeepAPIText(text) {
			continue
		}

		r, err := model.NewRecord("https://reddit.com"+post.Permalink, a.Name(), post.Author, text)
		if err != nil {
			continue
		}
		r.PostedAt = EpochToRFC3339(post.CreatedUTC)
		r.Likes = model.IntPtr(max(post.Score, 0))
		r.Replies = model.IntPtr(max(post.NumComments, 0))
		records = append(records, r)
	}

	return capRecords(records, limit), nil
}
