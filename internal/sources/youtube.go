package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/commentradar/internal/model"
)

const (
	youTubeBaseURL = "https://www.youtube.com"

	// maxVideos bounds how many search results are turned into records
	maxVideos = 5
)

var videoIDPattern = regexp.MustCompile(`"videoId":"([^"]+)"`)

// YouTubeAdapter records the top videos of a YouTube search. The search
// page embeds its results as JSON, so video ids are matched directly.
type YouTubeAdapter struct {
	BaseAdapter
	baseURL string
}

// NewYouTubeAdapter creates a YouTube adapter
func NewYouTubeAdapter(base BaseAdapter, baseURL string) *YouTubeAdapter {
	return &YouTubeAdapter{BaseAdapter: base, baseURL: strings.TrimRight(orDefault(baseURL, youTubeBaseURL), "/")}
}

// Name returns the adapter name
func (a *YouTubeAdapter) Name() string {
	return "youtube"
}

// Fetch returns one record per distinct video id, first five at most
func (a *YouTubeAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("search_query", topic)

	page, err := a.fetcher.Get(ctx, a.baseURL+"/results?"+q.Encode())
	if err != nil {
		return nil, err
	}

	want := maxVideos
	if limit > 0 && limit < want {
		want = limit
	}

	seen := make(map[string]bool)
	var records []model.Record
	for _, m := range videoIDPattern.FindAllSubmatch(page.Body, -1) {
		id := string(m[1])
		if seen[id] {
			continue
		}
		seen[id] = true

		r, err := model.NewRecord(a.baseURL+"/watch?v="+url.QueryEscape(id), a.Name(), "YouTube Video", fmt.Sprintf("Video about %s", topic))
		if err != nil {
			continue
		}
		records = append(records, r)
		if len(records) >= want {
			break
		}
	}

	return records, nil
}
