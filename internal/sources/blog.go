package sources

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/extract"
	"github.com/ppiankov/commentradar/internal/fetch"
	"github.com/ppiankov/commentradar/internal/model"
)

const (
	duckDuckGoBaseURL = "https://html.duckduckgo.com"

	// maxBlogs bounds how many search hits are scraped per topic
	maxBlogs = 5

	// maxBlocksPerSelector bounds the comment blocks read per selector
	maxBlocksPerSelector = 50

	// minCommentLength is the shortest comment body kept from a page
	minCommentLength = 10

	anonymousAuthor = "Anonymous"
)

var blogIndicators = []string{
	"/blog/", "/post/", "/article/", "/news/",
	"medium.com", "wordpress.com", "blogger.com",
	"substack.com", "ghost.io",
}

// Comment block selectors, most specific first. The first selector that
// yields comments on a page wins.
var commentSelectors = []string{
	"li.comment, article.comment, div.comment",
	"div.comment-body, article.comment-body, li.comment-body",
	"div.comment-content, article.comment-content",
	`div[id^="comment-"], article[id^="comment-"], li[id^="comment-"]`,
	`[itemprop="comment"]`,
	`div[class*="response"], article[class*="response"]`,
	`div[class*="user-comment"], li[class*="user-comment"]`,
}

var reviewSelectors = []string{
	`div[class*="review"], article[class*="review"]`,
	`[itemprop="review"]`,
	`div[class*="testimonial"], article[class*="testimonial"]`,
}

var (
	authorSelector = `[class*="author"], [class*="commenter"], [class*="user-name"], [class*="username"], [itemprop="author"], [rel="author"], cite`
	textSelector   = `[class*="comment-text"], [class*="comment-content"], [class*="comment-body"], [itemprop="text"], [class*="description"]`
	reviewText     = `[class*="text"], [class*="content"], [class*="body"]`
	dateSelector   = `time, [class*="date"]`
)

// BlogAdapter finds blog posts about a topic through a DuckDuckGo search and
// extracts the comment blocks of each post. robots.txt is honored and pages
// are fetched with a courtesy delay between them.
type BlogAdapter struct {
	BaseAdapter
	searchURL string
	pageDelay time.Duration
}

// NewBlogAdapter creates a blog adapter
func NewBlogAdapter(base BaseAdapter, searchURL string, pageDelay time.Duration) *BlogAdapter {
	return &BlogAdapter{
		BaseAdapter: base,
		searchURL:   strings.TrimRight(orDefault(searchURL, duckDuckGoBaseURL), "/"),
		pageDelay:   pageDelay,
	}
}

// Name returns the adapter name
func (a *BlogAdapter) Name() string {
	return "blog"
}

// Fetch searches for blog posts and collects their comments. Only a failed
// search fails the source; unreachable or disallowed pages are skipped.
func (a *BlogAdapter) Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error) {
	urls, err := a.searchBlogs(ctx, topic)
	if err != nil {
		return nil, err
	}
	log := a.log.WithFields(logrus.Fields{"source": a.Name(), "topic": topic})
	if len(urls) == 0 {
		log.Warn("No blog URLs found")
		return nil, nil
	}

	var records []model.Record
	for i, pageURL := range urls {
		if limit > 0 && len(records) >= limit {
			break
		}
		if i > 0 {
			if err := a.fetcher.Pause(ctx, a.pageDelay); err != nil {
				return capRecords(records, limit), err
			}
		}

		page, err := a.fetcher.GetPage(ctx, pageURL)
		if errors.Is(err, fetch.ErrDisallowed) {
			log.WithField("url", pageURL).Warn("robots.txt disallows page")
			continue
		}
		if err != nil {
			log.WithError(err).WithField("url", pageURL).Debug("Blog page failed")
			continue
		}

		found, err := a.ExtractComments(page.Body, pageURL)
		if err != nil {
			log.WithError(err).WithField("url", pageURL).Debug("Blog page unparsable")
			continue
		}
		log.WithFields(logrus.Fields{"url": pageURL, "comments": len(found)}).Debug("Extracted blog comments")
		records = append(records, found...)
	}

	return capRecords(records, limit), nil
}

func (a *BlogAdapter) searchBlogs(ctx context.Context, topic string) ([]string, error) {
	q := url.Values{}
	q.Set("q", topic+" blog")

	page, err := a.fetcher.Get(ctx, a.searchURL+"/html/?"+q.Encode())
	if err != nil {
		return nil, err
	}
	links, err := extract.Links(page.Body, page.URL)
	if err != nil {
		return nil, err
	}

	var urls []string
	seen := make(map[string]bool)
	for _, link := range links {
		target := resolveSearchLink(link.URL)
		if target == "" || seen[target] || !IsBlogURL(target) {
			continue
		}
		seen[target] = true
		urls = append(urls, target)
		if len(urls) == maxBlogs {
			break
		}
	}
	return urls, nil
}

// resolveSearchLink unwraps DuckDuckGo redirect links (/l/?uddg=<target>)
func resolveSearchLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// IsBlogURL reports whether a URL looks like a blog post
func IsBlogURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, indicator := range blogIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ExtractComments returns the comment blocks of a blog page. Pages without
// a recognizable comment section fall back to review blocks.
func (a *BlogAdapter) ExtractComments(body []byte, pageURL string) ([]model.Record, error) {
	doc, err := a.Document(body)
	if err != nil {
		return nil, err
	}

	for _, sel := range commentSelectors {
		var records []model.Record
		blocks := doc.Find(sel)
		blocks.Slice(0, min(blocks.Length(), maxBlocksPerSelector)).Each(func(_ int, block *goquery.Selection) {
			if r, ok := a.parseComment(block, pageURL); ok {
				records = append(records, r)
			}
		})
		if len(records) > 0 {
			return records, nil
		}
	}

	return a.extractReviews(doc, pageURL), nil
}

func (a *BlogAdapter) parseComment(block *goquery.Selection, pageURL string) (model.Record, bool) {
	author := a.Text(block.Find(authorSelector).First())
	if author == "" {
		author = anonymousAuthor
	}
	author = model.Truncate(author, 100)

	text := a.Text(block.Find(textSelector).First())
	if text == "" {
		clone := block.Clone()
		clone.Find("time, footer, header").Remove()
		text = a.Text(clone)
	}
	if utf8.RuneCountInString(text) < minCommentLength {
		return model.Record{}, false
	}

	r, err := model.NewRecord(pageURL, a.Name(), author, text)
	if err != nil {
		return model.Record{}, false
	}

	date := block.Find(dateSelector).First()
	if dt, ok := date.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		r.PostedAt = strings.TrimSpace(dt)
	} else if t := a.Text(date); t != "" {
		r.PostedAt = t
	}
	return r, true
}

func (a *BlogAdapter) extractReviews(doc *goquery.Document, pageURL string) []model.Record {
	var records []model.Record
	for _, sel := range reviewSelectors {
		blocks := doc.Find(sel)
		blocks.Slice(0, min(blocks.Length(), 20)).Each(func(_ int, review *goquery.Selection) {
			author := a.Text(review.Find(`[class*="author"], [class*="name"]`).First())
			if author == "" {
				author = "Reviewer"
			}

			textSel := review.Find(reviewText).First()
			if textSel.Length() == 0 {
				textSel = review.Find("p").First()
			}
			text := a.Text(textSel)
			if utf8.RuneCountInString(text) < minCommentLength {
				return
			}

			if r, err := model.NewRecord(pageURL, a.Name(), author, text); err == nil {
				records = append(records, r)
			}
		})
	}
	return records
}
