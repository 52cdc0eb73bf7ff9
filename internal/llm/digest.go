package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/model"
)

// Digest is a generated summary of a record store
type Digest struct {
	Topic       string
	Provider    string
	Model       string
	Text        string
	CitedURLs   []string
	RecordsUsed int
	RecordsSeen int
	TokensUsed  int
	GeneratedAt time.Time
}

// Digester samples records from a store and asks a provider to summarize them
type Digester struct {
	provider Provider
	config   Config
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewDigester creates a digester. A nil provider yields ErrDisabled on Generate.
func NewDigester(provider Provider, config Config, log logrus.FieldLogger) *Digester {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.MaxRecords <= 0 {
		config.MaxRecords = DefaultConfig().MaxRecords
	}
	return &Digester{
		provider: provider,
		config:   config,
		log:      log.WithField("component", "digest"),
		now:      time.Now,
	}
}

// Generate writes a digest of records. Records are never modified. In strict
// evidence mode the provider rejects any cited URL that is not a source_url
// of the given records.
func (d *Digester) Generate(ctx context.Context, topic string, records []model.Record) (*Digest, error) {
	if d.provider == nil {
		return nil, ErrDisabled
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("nothing to digest: store is empty")
	}

	sample := SampleRecords(records, d.config.MaxRecords)
	req := DigestRequest{
		Topic:        topic,
		Records:      sample,
		EvidenceURLs: sourceURLs(records),
		Prompt:       BuildPrompt(topic, sample, sourceURLs(sample)),
		Model:        d.config.Model,
		MaxTokens:    d.config.MaxTokens,
	}

	d.log.WithFields(logrus.Fields{
		"provider": d.provider.Name(),
		"records":  len(sample),
		"allowed":  len(req.EvidenceURLs),
	}).Info("Generating digest")

	resp, err := d.provider.Digest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("digest via %s: %w", d.provider.Name(), err)
	}

	return &Digest{
		Topic:       topic,
		Provider:    d.provider.Name(),
		Model:       resp.Model,
		Text:        resp.Text,
		CitedURLs:   resp.CitedURLs,
		RecordsUsed: len(sample),
		RecordsSeen: len(records),
		TokensUsed:  resp.TokensUsed,
		GeneratedAt: d.now().UTC(),
	}, nil
}

// SampleRecords picks up to n records, most liked first. Records without a
// like count keep their store order after the liked ones. The input slice is
// left untouched.
func SampleRecords(records []model.Record, n int) []model.Record {
	sample := make([]model.Record, len(records))
	copy(sample, records)

	sort.SliceStable(sample, func(i, j int) bool {
		return likes(sample[i]) > likes(sample[j])
	})
	if n > 0 && len(sample) > n {
		sample = sample[:n]
	}
	return sample
}

func likes(r model.Record) int {
	if r.Likes == nil {
		return -1
	}
	return *r.Likes
}

// sourceURLs returns the distinct source URLs in store order
func sourceURLs(records []model.Record) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, r := range records {
		if r.SourceURL == "" || seen[r.SourceURL] {
			continue
		}
		seen[r.SourceURL] = true
		urls = append(urls, r.SourceURL)
	}
	return urls
}

// RenderMarkdown renders a digest as a standalone Markdown document
func RenderMarkdown(d *Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Comment digest: %s\n\n", d.Topic)
	fmt.Fprintf(&b, "_Generated %s by %s", d.GeneratedAt.Format(time.RFC3339), d.Provider)
	if d.Model != "" {
		fmt.Fprintf(&b, " (%s)", d.Model)
	}
	fmt.Fprintf(&b, " from %d of %d comments._\n\n", d.RecordsUsed, d.RecordsSeen)

	b.WriteString(strings.TrimSpace(d.Text))
	b.WriteString("\n")

	if len(d.CitedURLs) > 0 {
		b.WriteString("\n## Sources\n\n")
		for _, u := range d.CitedURLs {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}
	return b.String()
}
