package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/commentradar/internal/model"
)

const devToBaseURL = "https://dev.to"

// DevToAdapter lists articles for a tag through the DEV Community API
type DevToAdapter struct {
	BaseAdapter
	baseURL string
}

// NewDevToAdapter creates a DEV adapter
func NewDevToAdapter(base BaseAdapter, baseURL string) *DevToAdapter {
	return &DevToAdapter{BaseAdapter: base, baseURL: strings.TrimRight(orDefault(baseURL, devToBaseURL), "/")}
}

// Name returns the adapter name
func (a *DevToAdapter) Name() string {
	return "devto"
}

type devToArticle struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	User        struct {
		Name string `json:"name"`
	} `json:"user"`
	PublishedAt            string `json:"published_at"`
	PositiveReactionsCount int    `json:"positive_reactions_count"`
	CommentsCount          int    `json:"comments_count"`
}

// Fetch lists articles tagged with topic. Tags are single words, so spaces become dashes.
func (a *DevToAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("tag", TagSlug(topic))
	q.Set("per_page", fmt.Sprint(apiPageSize(limit, 30)))

	var articles []devToArticle
	if err := a.fetcher.GetJSON(ctx, a.baseURL+"/api/articles?"+q.Encode(), &articles); err != nil {
		return nil, err
	}

	var records []model.Record
	for _, article := range articles {
		text := a.JoinText(article.Title, article.Description)
		if !a.KeepAPIText(text) {
			continue
		}

		r, err := model.NewRecord(article.URL, a.Name(), orDefault(article.User.Name, "Dev.to User"), text)
		if err != nil {
			continue
		}
		r.PostedAt = article.PublishedAt
		r.Likes = model.IntPtr(max(article.PositiveReactionsCount, 0))
		r.Replies = model.IntPtr(max(article.CommentsCount, 0))
		records = append(records, r)
	}

	return capRecords(records, limit), nil
}

// TagSlug turns a topic into a lowercase dash-separated tag
func TagSlug(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(topic)), "-")
}
