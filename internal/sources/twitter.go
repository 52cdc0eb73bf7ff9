package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/model"
)

// TwitterAdapter searches tweets through public Nitter instances. The first
// instance that yields tweets wins; the others are not queried.
type TwitterAdapter struct {
	BaseAdapter
	hosts []string
}

// NewTwitterAdapter creates a Twitter adapter over the given Nitter hosts
func NewTwitterAdapter(base BaseAdapter, hosts []string) *TwitterAdapter {
	trimmed := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.TrimRight(strings.TrimSpace(h), "/"); h != "" {
			trimmed = append(trimmed, h)
		}
	}
	return &TwitterAdapter{BaseAdapter: base, hosts: trimmed}
}

// Name returns the adapter name
func (a *TwitterAdapter) Name() string {
	return "twitter"
}

// Fetch tries each instance in order. It fails only if every instance failed.
func (a *TwitterAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	if len(a.hosts) == 0 {
		return nil, errors.New("no nitter instances configured")
	}

	var errs []error
	for _, host := range a.hosts {
		records, err := a.fetchInstance(ctx, host, topic, limit)
		if err != nil {
			a.log.WithFields(logrus.Fields{"instance": host, "error": err}).Debug("Nitter instance failed")
			errs = append(errs, fmt.Errorf("%s: %w", host, err))
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}

	if len(errs) == len(a.hosts) {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func (a *TwitterAdapter) fetchInstance(ctx context.Context, host, topic string, limit int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("f", "tweets")
	q.Set("q", topic)

	page, err := a.fetcher.Get(ctx, host+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}
	doc, err := a.Document(page.Body)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	doc.Find("div.timeline-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		text := a.Text(item.Find("div.tweet-content").First())
		if len([]rune(text)) <= model.MinAPITextLength {
			return true
		}

		username := a.Text(item.Find("a.username").First())
		if username == "" {
			username = "Twitter User"
		}

		link := host
		if href, ok := item.Find("a.tweet-link").First().Attr("href"); ok && href != "" {
			link = host + href
		}

		r, err := model.NewRecord(link, a.Name(), username, text)
		if err != nil {
			return true
		}
		r.Likes = tweetStat(item, "icon-heart")
		r.Replies = tweetStat(item, "icon-comment")

		records = append(records, r)
		return limit <= 0 || len(records) < limit
	})

	return records, nil
}

// tweetStat reads the counter next to the given icon, or nil if absent
func tweetStat(item *goquery.Selection, icon string) *int {
	var value *int
	item.Find("span.tweet-stat").EachWithBreak(func(_ int, stat *goquery.Selection) bool {
		if stat.Find("span."+icon).Length() == 0 {
			return true
		}
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, stat.Text())
		if n, err := strconv.Atoi(digits); err == nil {
			value = model.IntPtr(n)
		} else {
			value = model.IntPtr(0)
		}
		return false
	})
	return value
}
