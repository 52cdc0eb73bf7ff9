// Package sources holds the per-platform adapters that turn a topic into
// normalized records.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/fetch"
	"github.com/ppiankov/commentradar/internal/model"
)

// Adapter fetches records about a topic from one platform
type Adapter interface {
	// Name returns the platform tag
	Name() string

	// Fetch returns at most limit records (0 = no limit). An error means the
	// source as a whole failed; records that do not parse are skipped.
	Fetch(ctx context.Context, topic string, limit int) ([]model.Record, error)
}

// SourceError identifies the adapter that failed
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Registry manages adapters in declaration order
type Registry struct {
	adapters []Adapter
	byName   map[string]Adapter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Adapter),
	}
}

// NewDefaultRegistry registers every built-in adapter in declaration order
func NewDefaultRegistry(f *fetch.Fetcher, cfg model.CollectionConfig, log logrus.FieldLogger) *Registry {
	base := NewBaseAdapter(f, log)

	r := NewRegistry()
	r.Register(NewRedditAdapter(base, ""))
	r.Register(NewHackerNewsAdapter(base, ""))
	r.Register(NewTwitterAdapter(base, cfg.NitterHosts))
	r.Register(NewGitHubAdapter(base, ""))
	r.Register(NewStackOverflowAdapter(base, ""))
	r.Register(NewDevToAdapter(base, ""))
	r.Register(NewMediumAdapter(base, ""))
	r.Register(NewYouTubeAdapter(base, ""))
	r.Register(NewBlogAdapter(base, "", cfg.BlogPageDelay))
	return r
}

// Register adds an adapter, replacing any adapter with the same name
func (r *Registry) Register(adapter Adapter) {
	name := adapter.Name()
	if _, exists := r.byName[name]; exists {
		for i, a := range r.adapters {
			if a.Name() == name {
				r.adapters[i] = adapter
			}
		}
	} else {
		r.adapters = append(r.adapters, adapter)
	}
	r.byName[name] = adapter
}

// Get returns the adapter registered under name
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names returns the registered platform tags in declaration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Resolve returns the adapters for the given platform tags, kept in
// declaration order. An unknown tag is an error.
func (r *Registry) Resolve(names []string) ([]Adapter, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if _, ok := r.byName[n]; !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrUnknownPlatform, n)
		}
		want[n] = true
	}

	var out []Adapter
	for _, a := range r.adapters {
		if want[a.Name()] {
			out = append(out, a)
		}
	}
	return out, nil
}

// BaseAdapter provides the transport and helpers shared by adapters
type BaseAdapter struct {
	fetcher *fetch.Fetcher
	log     logrus.FieldLogger
}

// NewBaseAdapter creates a BaseAdapter
func NewBaseAdapter(f *fetch.Fetcher, log logrus.FieldLogger) BaseAdapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return BaseAdapter{fetcher: f, log: log.WithField("component", "sources")}
}

// JoinText builds the "title - body" text used by API sources
func (b *BaseAdapter) JoinText(title, body string) string {
	return model.Truncate(fmt.Sprintf("%s - %s", title, body), model.MaxTextLength)
}

// KeepAPIText reports whether an aggregated API text is long enough to keep
func (b *BaseAdapter) KeepAPIText(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > model.MinAPITextLength
}

// Document parses an HTML body
func (b *BaseAdapter) Document(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// Text returns the whitespace-collapsed text of a selection
func (b *BaseAdapter) Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// EpochToRFC3339 converts a Unix timestamp to an RFC 3339 UTC string so that
// dates compare lexicographically. Zero yields "".
func EpochToRFC3339(sec float64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}

// capRecords trims records to limit; 0 means no limit
func capRecords(records []model.Record, limit int) []model.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

// apiPageSize bounds a per-request page size to [1, max]
func apiPageSize(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
