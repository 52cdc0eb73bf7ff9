// Package filter narrows a record set by date, sentiment and text length.
package filter

import (
	"strings"

	"github.com/ppiankov/commentradar/internal/model"
)

// Options holds the filter parameters. Zero values disable a filter.
type Options struct {
	StartDate string
	EndDate   string
	Sentiment string
	MinLength int
	MaxLength int
}

// OptionsFromConfig converts the filter section of the configuration.
func OptionsFromConfig(cfg model.FilterConfig) Options {
	return Options{
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
		Sentiment: cfg.Sentiment,
		MinLength: cfg.MinLength,
		MaxLength: cfg.MaxLength,
	}
}

// Active reports whether any filter is enabled
func (o Options) Active() bool {
	return o.StartDate != "" || o.EndDate != "" || o.Sentiment != "" || o.MinLength > 0 || o.MaxLength > 0
}

// Apply runs the date, sentiment and length filters in that order.
// The input slice is never modified.
func Apply(records []model.Record, opts Options) []model.Record {
	out := ByDate(records, opts.StartDate, opts.EndDate)
	out = BySentiment(out, opts.Sentiment)
	return ByLength(out, opts.MinLength, opts.MaxLength)
}

// ByDate keeps records whose PostedAt lies within [start, end].
// Comparison is lexicographic, which orders ISO-8601 strings correctly.
// Records without a date are dropped when either bound is set.
func ByDate(records []model.Record, start, end string) []model.Record {
	if start == "" && end == "" {
		return clone(records)
	}
	return keep(records, func(r model.Record) bool {
		if r.PostedAt == "" {
			return false
		}
		if start != "" && r.PostedAt < start {
			return false
		}
		if end != "" && r.PostedAt > end {
			return false
		}
		return true
	})
}

// BySentiment keeps records whose label matches case-insensitively.
// Untagged records never match.
func BySentiment(records []model.Record, sentiment string) []model.Record {
	want := strings.ToLower(strings.TrimSpace(sentiment))
	if want == "" {
		return clone(records)
	}
	return keep(records, func(r model.Record) bool {
		return r.Sentiment != "" && strings.ToLower(string(r.Sentiment)) == want
	})
}

// ByLength keeps records whose text length in characters lies within
// [min, max]. A zero bound is unbounded.
func ByLength(records []model.Record, min, max int) []model.Record {
	if min <= 0 && max <= 0 {
		return clone(records)
	}
	return keep(records, func(r model.Record) bool {
		n := r.TextLength()
		if min > 0 && n < min {
			return false
		}
		if max > 0 && n > max {
			return false
		}
		return true
	})
}

func keep(records []model.Record, pred func(model.Record) bool) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func clone(records []model.Record) []model.Record {
	return append([]model.Record(nil), records...)
}
