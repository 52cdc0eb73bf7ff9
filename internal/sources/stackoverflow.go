package sources

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/ppiankov/commentradar/internal/model"
)

const stackExchangeBaseURL = "https://api.stackexchange.com"

// bodyExcerptLength bounds the question body kept before joining with the title
const bodyExcerptLength = 300

// StackOverflowAdapter searches questions through the Stack Exchange API
type StackOverflowAdapter struct {
	BaseAdapter
	baseURL string
}

// NewStackOverflowAdapter creates a Stack Overflow adapter
func NewStackOverflowAdapter(base BaseAdapter, baseURL string) *StackOverflowAdapter {
	return &StackOverflowAdapter{BaseAdapter: base, baseURL: strings.TrimRight(orDefault(baseURL, stackExchangeBaseURL), "/")}
}

// Name returns the adapter name
func (a *StackOverflowAdapter) Name() string {
	return "stackoverflow"
}

type stackExchangeSearch struct {
	Items []struct {
		Link         string `json:"link"`
		Title        string `json:"title"`
		BodyMarkdown string `json:"body_markdown"`
		Owner        struct {
			DisplayName string `json:"display_name"`
		} `json:"owner"`
		CreationDate int64 `json:"creation_date"`
		Score        int   `json:"score"`
		AnswerCount  int   `json:"answer_count"`
	} `json:"items"`
	ErrorMessage string `json:"error_message"`
}

// Fetch searches questions whose title matches topic
func (a *StackOverflowAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("order", "desc")
	q.Set("sort", "relevance")
	q.Set("intitle", topic)
	q.Set("site", "stackoverflow")
	q.Set("pagesize", fmt.Sprint(apiPageSize(limit, 100)))

	var result stackExchangeSearch
	if err := a.fetcher.GetJSON(ctx, a.baseURL+"/2.3/search?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	if result.ErrorMessage != "" {
		return nil, fmt.Errorf("stack exchange: %s", result.ErrorMessage)
	}

	var records []model.Record
	for _, item := range result.Items {
		// the API HTML-escapes titles and bodies
		body := model.Truncate(html.UnescapeString(item.BodyMarkdown), bodyExcerptLength)
		text := a.JoinText(html.UnescapeString(item.Title), body)
		if !a.KeepAPIText(text) {
			continue
		}

		r, err := model.NewRecord(item.Link, a.Name(), orDefault(html.UnescapeString(item.Owner.DisplayName), "SO User"), text)
		if err != nil {
			continue
		}
		r.PostedAt = EpochToRFC3339(float64(item.CreationDate))
		r.Likes = model.IntPtr(max(item.Score, 0))
		r.Replies = model.IntPtr(max(item.AnswerCount, 0))
		records = append(records, r)
	}

	return capRecords(records, limit), nil
}
