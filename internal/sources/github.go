package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/commentradar/internal/model"
)

const gitHubBaseURL = "https://api.github.com"

// GitHubAdapter searches issues and pull requests through the GitHub search API
type GitHubAdapter struct {
	BaseAdapter
	baseURL string
}

// NewGitHubAdapter creates a GitHub adapter
func NewGitHubAdapter(base BaseAdapter, baseURL string) *GitHubAdapter {
	return &GitHubAdapter{BaseAdapter: base, baseURL: strings.TrimRight(orDefault(baseURL, gitHubBaseURL), "/")}
}

// Name returns the adapter name
func (a *GitHubAdapter) Name() string {
	return "github"
}

type gitHubSearch struct {
	Items []struct {
		HTMLURL string `json:"html_url"`
		Title   string `json:"title"`
		Body    string `json:"body"`
		User    struct {
			Login string `json:"login"`
		} `json:"user"`
		CreatedAt string `json:"created_at"`
		Comments  int    `json:"comments"`
		Reactions struct {
			TotalCount int `json:"total_count"`
		} `json:"reactions"`
	} `json:"items"`
}

// Fetch searches issues whose title or body mention topic, most recently updated first
func (a *GitHubAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("q", topic+" in:title,body")
	q.Set("sort", "updated")
	q.Set("per_page", fmt.Sprint(apiPageSize(limit, 100)))

	var result gitHubSearch
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	page, err := a.fetcher.GetWithHeaders(ctx, a.baseURL+"/search/issues?"+q.Encode(), headers)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(page.Body, &result); err != nil {
		return nil, err
	}

	var records []model.Record
	for _, item := range result.Items {
		text := a.JoinText(item.Title, item.Body)
		if !a.KeepAPIText(text) {
			continue
		}

		r, err := model.NewRecord(item.HTMLURL, a.Name(), orDefault(item.User.Login, "GitHub User"), text)
		if err != nil {
			continue
		}
		r.PostedAt = item.CreatedAt
		r.Likes = model.IntPtr(max(item.Reactions.TotalCount, 0))
		r.Replies = model.IntPtr(max(item.Comments, 0))
		records = append(records, r)
	}

	return capRecords(records, limit), nil
}
